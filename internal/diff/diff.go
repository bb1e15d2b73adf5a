// Package diff compares a baseline comment with an edited one and renders the
// result for review before saving.
package diff

import (
    "fmt"
    "strings"
)

type Category int

const (
    Unchanged Category = iota
    Added
    Removed
)

func (c Category) String() string {
    switch c {
    case Added:
        return "added"
    case Removed:
        return "removed"
    default:
        return "unchanged"
    }
}

// Run is a maximal stretch of text with one category.
type Run struct {
    Text     string
    Category Category
}

// Result is derived from (baseline, edited) and never stored.
// Added and Removed count the strategy's units: tokens for Word, runes for
// Structural.
type Result struct {
    Runs     []Run
    Added    int
    Removed  int
    Strategy string
}

// Changed reports whether any run is not Unchanged.
func (r Result) Changed() bool {
    return r.Added > 0 || r.Removed > 0
}

// Summary is the trailing count line.
func (r Result) Summary() string {
    return fmt.Sprintf("Added %d Removed %d", r.Added, r.Removed)
}

// Strategy is a pure diff over two strings.
type Strategy interface {
    Name() string
    Diff(baseline, edited string) Result
    // HTML renders a fragment for a rich display.
    HTML(r Result) string
}

// Strategy names, as accepted by ForName.
const (
    NameWord = "word"
    NameHTML = "html"
)

func ForName(name string) (Strategy, error) {
    switch strings.ToLower(name) {
    case NameWord, "":
        return Word{}, nil
    case NameHTML:
        return Structural{}, nil
    default:
        return nil, fmt.Errorf("unknown diff strategy %q", name)
    }
}

func unchanged(s, name string) Result {
    return Result{Runs: []Run{{Text: s, Category: Unchanged}}, Strategy: name}
}

// appendRun merges text into the last run when the category matches.
func appendRun(runs []Run, text string, c Category) []Run {
    if text == "" {
        return runs
    }
    if n := len(runs); n > 0 && runs[n-1].Category == c {
        runs[n-1].Text += text
        return runs
    }
    return append(runs, Run{Text: text, Category: c})
}
