package diff

import (
    "fmt"
    "strings"
)

type DiffView struct{}

func NewDiffView() DiffView { return DiffView{} }

// Summary carries what the session reported for the last diff.
type Summary struct {
    Strategy string
    Body     string
    Added    int
    Removed  int
}

// View frames a rendered diff body with a header naming the strategy and a
// footer with the change counts. An empty body means nothing changed.
func (DiffView) View(s Summary) string {
    var b strings.Builder
    strategy := s.Strategy
    if strategy == "" {
        strategy = "word"
    }
    fmt.Fprintf(&b, "SAVED vs BUFFER (%s)\n", strategy)
    if s.Added == 0 && s.Removed == 0 {
        b.WriteString("No changes\n")
        return b.String()
    }
    body := strings.TrimRight(s.Body, "\n")
    b.WriteString(body)
    b.WriteString("\n")
    unit := "tokens"
    if strategy == "html" {
        unit = "characters"
    }
    fmt.Fprintf(&b, "%d %s added, %d removed\n", s.Added, unit, s.Removed)
    return b.String()
}
