package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "spicecomment/internal/diff"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
    t.Chdir(t.TempDir())
    t.Setenv(EnvUtilitiesPath, "")

    dataDir := t.TempDir()
    cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), dataDir)
    require.NoError(t, err)

    assert.Equal(t, diff.NameWord, cfg.DiffStrategy)
    assert.Equal(t, 2*time.Minute, cfg.ToolTimeout)
    assert.Equal(t, "*.tls", cfg.Companions.LSKPattern)
    assert.Equal(t, filepath.Join(dataDir, "journal.db"), cfg.JournalPath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
    t.Chdir(t.TempDir())
    t.Setenv(EnvUtilitiesPath, "")

    path := filepath.Join(t.TempDir(), "config.yaml")
    body := `utilities_path: /opt/naif/exe
tool_timeout: 45s
diff_strategy: html
companions:
  lsk_pattern: "naif*.tls"
`
    require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

    cfg, err := Load(path, t.TempDir())
    require.NoError(t, err)

    assert.Equal(t, "/opt/naif/exe", cfg.UtilitiesPath)
    assert.Equal(t, 45*time.Second, cfg.ToolTimeout)
    assert.Equal(t, diff.NameHTML, cfg.DiffStrategy)
    assert.Equal(t, "naif*.tls", cfg.Companions.LSKPattern)
    assert.Equal(t, "sclk", cfg.Companions.SCLKDir, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
    t.Chdir(t.TempDir())

    path := filepath.Join(t.TempDir(), "config.yaml")
    require.NoError(t, os.WriteFile(path, []byte("utilities_path: /from/file\n"), 0o644))
    t.Setenv(EnvUtilitiesPath, "/from/env")

    cfg, err := Load(path, t.TempDir())
    require.NoError(t, err)
    assert.Equal(t, "/from/env", cfg.UtilitiesPath)
}

func TestLoad_DotEnv(t *testing.T) {
    dir := t.TempDir()
    t.Chdir(dir)
    t.Setenv(EnvUtilitiesPath, "")
    require.NoError(t, os.Unsetenv(EnvUtilitiesPath))
    require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvUtilitiesPath+"=/from/dotenv\n"), 0o644))

    cfg, err := Load("", t.TempDir())
    require.NoError(t, err)
    assert.Equal(t, "/from/dotenv", cfg.UtilitiesPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
    t.Chdir(t.TempDir())
    path := filepath.Join(t.TempDir(), "config.yaml")
    require.NoError(t, os.WriteFile(path, []byte("utilities_path: [unclosed\n"), 0o644))

    _, err := Load(path, t.TempDir())
    require.Error(t, err)
    assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
    tests := []struct {
        name    string
        mutate  func(c *Config)
        wantErr bool
    }{
        {name: "defaults", mutate: func(c *Config) {}},
        {name: "html strategy", mutate: func(c *Config) { c.DiffStrategy = diff.NameHTML }},
        {name: "unknown strategy", mutate: func(c *Config) { c.DiffStrategy = "lines" }, wantErr: true},
        {name: "strategy case folded", mutate: func(c *Config) { c.DiffStrategy = "HTML" }},
        {name: "negative timeout", mutate: func(c *Config) { c.ToolTimeout = -time.Second }, wantErr: true},
        {name: "zero timeout disables", mutate: func(c *Config) { c.ToolTimeout = 0 }},
        {name: "bad pattern", mutate: func(c *Config) { c.Companions.SCLKPattern = "[" }, wantErr: true},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            c := DefaultConfig()
            tt.mutate(&c)
            err := c.Validate()
            if tt.wantErr {
                require.Error(t, err)
                return
            }
            require.NoError(t, err)
        })
    }
}
