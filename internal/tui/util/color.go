package util

import (
    "os"

    "github.com/charmbracelet/lipgloss"
)

// NoColor returns true if color output should be disabled.
func NoColor(explicit bool) bool {
    if explicit {
        return true
    }
    return os.Getenv("NO_COLOR") != ""
}

// Palette defines a small set of colors used across widgets.
type Palette struct {
    Primary lipgloss.Color
    Success lipgloss.Color
    Danger  lipgloss.Color
    Warning lipgloss.Color
    Muted   lipgloss.Color
}

// DefaultPalette returns the default palette.
func DefaultPalette() Palette {
    return Palette{
        Primary: lipgloss.Color("#3D6DFF"),
        Success: lipgloss.Color("#2AA876"),
        Danger:  lipgloss.Color("#D9534F"),
        Warning: lipgloss.Color("#F0AD4E"),
        Muted:   lipgloss.Color("#6C757D"),
    }
}

// Level picks the color for a status level ("info", "warn", "error").
func (p Palette) Level(level string) lipgloss.Color {
    switch level {
    case "error":
        return p.Danger
    case "warn":
        return p.Warning
    case "saved":
        return p.Success
    default:
        return p.Muted
    }
}

// Style returns a foreground style, or a plain one when color is off.
func (p Palette) Style(c lipgloss.Color, noColor bool) lipgloss.Style {
    if noColor {
        return lipgloss.NewStyle()
    }
    return lipgloss.NewStyle().Foreground(c)
}
