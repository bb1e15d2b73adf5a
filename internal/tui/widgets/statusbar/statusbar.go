package statusbar

import (
    "strings"

    "spicecomment/internal/tui/state"
    "spicecomment/internal/tui/util"
)

type StatusBar struct {
    palette util.Palette
    noColor bool
}

func NewStatusBar(p util.Palette, noColor bool) StatusBar {
    return StatusBar{palette: p, noColor: noColor}
}

// View composes a concise status line: mode, buffer flags, then the latest
// notice colored by its level.
func (b StatusBar) View(s state.ViewState, editable bool, level string) string {
    mode := "[" + strings.ToUpper(s.Mode.String()) + "]"
    parts := []string{b.palette.Style(b.palette.Primary, b.noColor).Render(mode)}
    if s.Dirty {
        parts = append(parts, "modified")
    }
    if !editable {
        parts = append(parts, "read-only")
    }
    if s.Notice != "" {
        parts = append(parts, b.palette.Style(b.palette.Level(level), b.noColor).Render(s.Notice))
    }
    return strings.Join(parts, "  ")
}
