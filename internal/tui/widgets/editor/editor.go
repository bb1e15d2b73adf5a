package editor

import (
    "fmt"
    "path/filepath"
    "strings"

    "spicecomment/internal/tui/state"
)

type Editor struct{}

func NewEditor() Editor { return Editor{} }

// View renders the comment panel: a title line with the kernel name and
// buffer flags, then the body produced by the text area.
func (Editor) View(path string, s state.ViewState, editable bool, body string) string {
    title := filepath.Base(path)
    if path == "" {
        title = "untitled"
    }
    var flags []string
    if s.Dirty {
        flags = append(flags, "modified")
    }
    if !editable {
        flags = append(flags, "read-only")
    }
    var b strings.Builder
    b.WriteString(title)
    if len(flags) > 0 {
        fmt.Fprintf(&b, " [%s]", strings.Join(flags, ", "))
    }
    b.WriteString("\n")
    b.WriteString(body)
    return b.String()
}
