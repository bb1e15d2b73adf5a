package config

import (
    "fmt"

    "github.com/bmatcuk/doublestar/v4"
    "github.com/hay-kot/criterio"

    "spicecomment/internal/diff"
)

// Validate checks the values that would otherwise fail late, inside a save.
// The tool root is deliberately not required to exist: a missing tool is
// reported in-band by the extractor rather than refusing to start.
func (c *Config) Validate() error {
    return criterio.ValidateStruct(
        criterio.Run("diff_strategy", c.DiffStrategy, knownStrategy),
        criterio.Run("tool_timeout", c.ToolTimeout.String(), func(string) error {
            if c.ToolTimeout < 0 {
                return fmt.Errorf("must not be negative")
            }
            return nil
        }),
        criterio.Run("companions.lsk_pattern", c.Companions.LSKPattern, validPattern),
        criterio.Run("companions.sclk_pattern", c.Companions.SCLKPattern, validPattern),
    )
}

func knownStrategy(name string) error {
    if _, err := diff.ForName(name); err != nil {
        return fmt.Errorf("%w (want %s or %s)", err, diff.NameWord, diff.NameHTML)
    }
    return nil
}

func validPattern(p string) error {
    if !doublestar.ValidatePattern(p) {
        return fmt.Errorf("invalid pattern %q", p)
    }
    return nil
}
