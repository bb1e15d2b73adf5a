package diff

import (
    "unicode/utf8"

    dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// Structural is a character diff cleaned up to semantic boundaries and
// rendered as <ins>/<del> markup. Counts come from the minimal diff, which
// the cleanup would inflate.
type Structural struct{}

func (Structural) Name() string { return NameHTML }

func (Structural) Diff(baseline, edited string) Result {
    if baseline == edited {
        return unchanged(baseline, NameHTML)
    }
    d := dmp.New()
    d.DiffTimeout = 0
    diffs := d.DiffMain(baseline, edited, false)

    res := Result{Strategy: NameHTML}
    for _, df := range diffs {
        n := utf8.RuneCountInString(df.Text)
        switch df.Type {
        case dmp.DiffInsert:
            res.Added += n
        case dmp.DiffDelete:
            res.Removed += n
        }
    }

    for _, df := range d.DiffCleanupSemantic(diffs) {
        switch df.Type {
        case dmp.DiffInsert:
            res.Runs = appendRun(res.Runs, df.Text, Added)
        case dmp.DiffDelete:
            res.Runs = appendRun(res.Runs, df.Text, Removed)
        default:
            res.Runs = appendRun(res.Runs, df.Text, Unchanged)
        }
    }
    return res
}

func (Structural) HTML(r Result) string {
    diffs := make([]dmp.Diff, 0, len(r.Runs))
    for _, run := range r.Runs {
        op := dmp.DiffEqual
        switch run.Category {
        case Added:
            op = dmp.DiffInsert
        case Removed:
            op = dmp.DiffDelete
        }
        diffs = append(diffs, dmp.Diff{Type: op, Text: run.Text})
    }
    return dmp.New().DiffPrettyHtml(diffs)
}
