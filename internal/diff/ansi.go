package diff

import (
    "strings"

    "github.com/charmbracelet/lipgloss"
)

var (
    addStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "114"})
    delStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"}).Strikethrough(true)
    commonStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "243"})
    summaryStyle = lipgloss.NewStyle().Bold(true)
)

// ANSI renders r for a terminal. With noColor set, changes are marked
// {+added+} and [-removed-] instead.
func ANSI(r Result, noColor bool) string {
    var sb strings.Builder
    for _, run := range r.Runs {
        switch {
        case noColor && run.Category == Added:
            sb.WriteString("{+" + run.Text + "+}")
        case noColor && run.Category == Removed:
            sb.WriteString("[-" + run.Text + "-]")
        case noColor:
            sb.WriteString(run.Text)
        default:
            sb.WriteString(styleLines(styleFor(run.Category), run.Text))
        }
    }
    if !strings.HasSuffix(sb.String(), "\n") {
        sb.WriteString("\n")
    }
    if noColor {
        sb.WriteString(r.Summary())
    } else {
        sb.WriteString(summaryStyle.Render(r.Summary()))
    }
    sb.WriteString("\n")
    return sb.String()
}

func styleFor(c Category) lipgloss.Style {
    switch c {
    case Added:
        return addStyle
    case Removed:
        return delStyle
    default:
        return commonStyle
    }
}

// styleLines styles each line separately so escape codes never span a
// newline.
func styleLines(st lipgloss.Style, text string) string {
    lines := strings.Split(text, "\n")
    for i, l := range lines {
        if l != "" {
            lines[i] = st.Render(l)
        }
    }
    return strings.Join(lines, "\n")
}
