// Package config loads spicecomment settings: the tool root that holds the
// NAIF utilities, execution limits, diff strategy and companion-kernel lookup.
package config

import (
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "time"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"

    "spicecomment/internal/diff"
)

// EnvUtilitiesPath overrides utilities_path from the config file.
const EnvUtilitiesPath = "SPICE_UTILITIES_PATH"

type Config struct {
    // UtilitiesPath is the directory holding commnt, brief, dskbrief and ckbrief.
    UtilitiesPath string        `yaml:"utilities_path"`
    ToolTimeout   time.Duration `yaml:"tool_timeout"` // 0 disables
    DiffStrategy  string        `yaml:"diff_strategy"`
    Companions    Companions    `yaml:"companions"`
    JournalPath   string        `yaml:"journal_path"`
    Watch         bool          `yaml:"watch"`
    NoColor       bool          `yaml:"no_color"`
    DataDir       string        `yaml:"-"` // set by caller
}

// Companions locates the leapseconds and spacecraft clock kernels ckbrief
// needs. Directories are siblings of the CK's own directory.
type Companions struct {
    LSKDir      string `yaml:"lsk_dir"`
    LSKPattern  string `yaml:"lsk_pattern"`
    SCLKDir     string `yaml:"sclk_dir"`
    SCLKPattern string `yaml:"sclk_pattern"`
}

func DefaultConfig() Config {
    return Config{
        ToolTimeout:  2 * time.Minute,
        DiffStrategy: diff.NameWord,
        Companions: Companions{
            LSKDir:      "lsk",
            LSKPattern:  "*.tls",
            SCLKDir:     "sclk",
            SCLKPattern: "*.tsc",
        },
        Watch: true,
    }
}

// Load reads configPath over the defaults. A missing file is not an error.
// A .env file in the working directory is loaded first so the tool root can
// be set per project.
func Load(configPath, dataDir string) (*Config, error) {
    if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
        return nil, fmt.Errorf("load .env: %w", err)
    }

    cfg := DefaultConfig()
    if configPath != "" {
        data, err := os.ReadFile(configPath)
        switch {
        case errors.Is(err, fs.ErrNotExist):
            // defaults
        case err != nil:
            return nil, fmt.Errorf("read config file: %w", err)
        default:
            if err := yaml.Unmarshal(data, &cfg); err != nil {
                return nil, fmt.Errorf("parse config file: %w", err)
            }
        }
    }

    cfg.DataDir = dataDir
    if v := os.Getenv(EnvUtilitiesPath); v != "" {
        cfg.UtilitiesPath = v
    }
    cfg.applyDefaults()

    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    return &cfg, nil
}

func (c *Config) applyDefaults() {
    d := DefaultConfig()
    if c.DiffStrategy == "" {
        c.DiffStrategy = d.DiffStrategy
    }
    if c.Companions.LSKDir == "" {
        c.Companions.LSKDir = d.Companions.LSKDir
    }
    if c.Companions.LSKPattern == "" {
        c.Companions.LSKPattern = d.Companions.LSKPattern
    }
    if c.Companions.SCLKDir == "" {
        c.Companions.SCLKDir = d.Companions.SCLKDir
    }
    if c.Companions.SCLKPattern == "" {
        c.Companions.SCLKPattern = d.Companions.SCLKPattern
    }
    if c.JournalPath == "" && c.DataDir != "" {
        c.JournalPath = filepath.Join(c.DataDir, "journal.db")
    }
}
