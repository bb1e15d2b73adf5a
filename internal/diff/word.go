package diff

import (
    "html"
    "strings"
    "unicode"

    dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// Word diffs whitespace-preserving tokens: maximal runs of non-space and of
// space characters. Whitespace-only edits count as changes.
type Word struct{}

func (Word) Name() string { return NameWord }

func (Word) Diff(baseline, edited string) Result {
    if baseline == edited {
        return unchanged(baseline, NameWord)
    }

    enc := newTokenEncoder()
    a := enc.encode(tokenize(baseline))
    b := enc.encode(tokenize(edited))

    d := dmp.New()
    // no deadline: the diff is minimal, so counts are symmetric
    d.DiffTimeout = 0
    diffs := d.DiffMainRunes(a, b, false)

    res := Result{Strategy: NameWord}
    for _, df := range diffs {
        text, n := enc.decode(df.Text)
        switch df.Type {
        case dmp.DiffInsert:
            res.Added += n
            res.Runs = appendRun(res.Runs, text, Added)
        case dmp.DiffDelete:
            res.Removed += n
            res.Runs = appendRun(res.Runs, text, Removed)
        default:
            res.Runs = appendRun(res.Runs, text, Unchanged)
        }
    }
    return res
}

// HTML renders green added, red removed and grey common spans followed by
// the summary line.
func (Word) HTML(r Result) string {
    var sb strings.Builder
    sb.WriteString(`<pre class="diff">`)
    for _, run := range r.Runs {
        color := "grey"
        switch run.Category {
        case Added:
            color = "green"
        case Removed:
            color = "red"
        }
        sb.WriteString(`<span class="` + run.Category.String() + `" style="color:` + color + `">`)
        sb.WriteString(html.EscapeString(run.Text))
        sb.WriteString(`</span>`)
    }
    sb.WriteString(`</pre>`)
    sb.WriteString(`<p class="summary">` + r.Summary() + `</p>`)
    return sb.String()
}

func tokenize(s string) []string {
    var toks []string
    start := 0
    inSpace := false
    for i, r := range s {
        sp := unicode.IsSpace(r)
        if i > start && sp != inSpace {
            toks = append(toks, s[start:i])
            start = i
        }
        inSpace = sp
    }
    if start < len(s) {
        toks = append(toks, s[start:])
    }
    return toks
}

// tokenEncoder maps each distinct token to one rune so the rune diff works
// at token granularity.
type tokenEncoder struct {
    index  map[string]rune
    tokens []string
}

func newTokenEncoder() *tokenEncoder {
    return &tokenEncoder{index: map[string]rune{}}
}

func (e *tokenEncoder) encode(toks []string) []rune {
    out := make([]rune, len(toks))
    for i, t := range toks {
        r, ok := e.index[t]
        if !ok {
            r = tokenRune(len(e.tokens))
            e.index[t] = r
            e.tokens = append(e.tokens, t)
        }
        out[i] = r
    }
    return out
}

func (e *tokenEncoder) decode(s string) (string, int) {
    var sb strings.Builder
    n := 0
    for _, r := range s {
        sb.WriteString(e.tokens[tokenIndex(r)])
        n++
    }
    return sb.String(), n
}

// tokenRune skips the surrogate range, which does not survive a string
// round trip.
func tokenRune(i int) rune {
    r := rune(i)
    if r >= 0xD800 {
        r += 0x800
    }
    return r
}

func tokenIndex(r rune) int {
    if r >= 0xE000 {
        r -= 0x800
    }
    return int(r)
}
