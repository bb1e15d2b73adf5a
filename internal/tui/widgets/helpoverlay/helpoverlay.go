package helpoverlay

import (
    "fmt"
    "strings"

    "spicecomment/internal/tui/state"
)

type HelpOverlay struct{}

func NewHelpOverlay() HelpOverlay { return HelpOverlay{} }

type entry struct {
    key, desc string
    shown     func(state.Visibility) bool
}

func always(state.Visibility) bool { return true }

var sections = []struct {
    title   string
    entries []entry
}{
    {"Views", []entry{
        {"ctrl+b", "kernel summary", func(v state.Visibility) bool { return v.Brief }},
        {"ctrl+o", "comment editor", func(v state.Visibility) bool { return v.Comment }},
        {"ctrl+d", "diff against saved comment", func(v state.Visibility) bool { return v.Diff }},
    }},
    {"Buffer", []entry{
        {"ctrl+s", "save comment to kernel", func(v state.Visibility) bool { return v.Save }},
        {"ctrl+r", "discard edits", func(v state.Visibility) bool { return v.Reset }},
        {"ctrl+l", "reload from disk", always},
        {"ctrl+y", "copy panel to clipboard", always},
    }},
    {"General", []entry{
        {"f1", "toggle help", always},
        {"ctrl+c", "quit", always},
    }},
}

// View returns grouped keys help. Keys for controls hidden in the current
// mode are left out.
func (HelpOverlay) View(mode state.ViewMode, v state.Visibility) string {
    var b strings.Builder
    fmt.Fprintf(&b, "Help (Mode: %s)\n", mode)
    for _, sec := range sections {
        var lines []string
        for _, e := range sec.entries {
            if e.shown(v) {
                lines = append(lines, fmt.Sprintf("  %-7s %s", e.key, e.desc))
            }
        }
        if len(lines) == 0 {
            continue
        }
        fmt.Fprintf(&b, "\n%s:\n%s\n", sec.title, strings.Join(lines, "\n"))
    }
    return b.String()
}
