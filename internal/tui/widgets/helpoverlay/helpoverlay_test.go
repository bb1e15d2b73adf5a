package helpoverlay

import (
    "strings"
    "testing"

    "spicecomment/internal/tui/state"
)

func TestHelpFollowsVisibility(t *testing.T) {
    h := NewHelpOverlay()
    clean := h.View(state.Comment, state.Visible(state.Comment, false))
    if strings.Contains(clean, "save comment") { t.Fatalf("save listed for a clean buffer:\n%s", clean) }
    if !strings.Contains(clean, "kernel summary") { t.Fatalf("brief missing:\n%s", clean) }

    dirty := h.View(state.Comment, state.Visible(state.Comment, true))
    if !strings.Contains(dirty, "save comment") || !strings.Contains(dirty, "discard edits") {
        t.Fatalf("dirty help incomplete:\n%s", dirty)
    }
    if !strings.HasPrefix(dirty, "Help (Mode: comment)") { t.Fatalf("header: %q", dirty) }
}
