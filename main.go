// Copyright
// SPDX-License-Identifier: MIT
// spicecomment: view and edit the comment area of SPICE kernels through the NAIF utilities
package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "path/filepath"
    "syscall"

    "github.com/rs/zerolog/log"
    "github.com/urfave/cli/v3"

    "spicecomment/internal/commentsync"
    "spicecomment/internal/config"
    "spicecomment/internal/diff"
    "spicecomment/internal/host"
    "spicecomment/internal/journal"
    "spicecomment/internal/kernel"
    "spicecomment/internal/logging"
    "spicecomment/internal/session"
    "spicecomment/internal/toolrun"
)

const Version = "0.3.0"

const (
    appName     = "spicecomment"
    logFileName = "spicecomment.log"
)

/* ---------- wiring ---------- */

type globalFlags struct {
    LogLevel   string
    LogFile    string
    ConfigPath string
    DataDir    string
}

// app holds what the Before hook builds for every command.
type app struct {
    flags globalFlags

    cfg      *config.Config
    runner   *toolrun.ExecRunner
    extract  *kernel.Extractor
    journal  *journal.Store
    engine   *commentsync.Engine
    strategy diff.Strategy

    logCloser func()
}

func defaultConfigPath() string {
    configHome := os.Getenv("XDG_CONFIG_HOME")
    if configHome == "" {
        home, _ := os.UserHomeDir()
        configHome = filepath.Join(home, ".config")
    }
    return filepath.Join(configHome, appName, "config.yaml")
}

func defaultDataDir() string {
    dataHome := os.Getenv("XDG_DATA_HOME")
    if dataHome == "" {
        home, _ := os.UserHomeDir()
        dataHome = filepath.Join(home, ".local", "share")
    }
    return filepath.Join(dataHome, appName)
}

// wantsTerminal reports whether the command line opens the terminal editor,
// which owns the screen, so logs must go to a file.
func wantsTerminal(c *cli.Command) bool {
    first := c.Args().First()
    if first == "" {
        return false
    }
    if first == "edit" {
        return true
    }
    for _, sub := range c.Commands {
        if sub.Name == first {
            return false
        }
    }
    return true
}

func (a *app) before(ctx context.Context, c *cli.Command) (context.Context, error) {
    logFile := a.flags.LogFile
    if logFile == "" && wantsTerminal(c) {
        logFile = filepath.Join(a.flags.DataDir, logFileName)
    }
    logger, closer, err := logging.New(a.flags.LogLevel, logFile)
    if err != nil {
        return ctx, fmt.Errorf("setup logger: %w", err)
    }
    log.Logger = logger
    a.logCloser = closer

    cfg, err := config.Load(a.flags.ConfigPath, a.flags.DataDir)
    if err != nil {
        return ctx, fmt.Errorf("load config: %w", err)
    }
    a.cfg = cfg

    a.strategy, err = diff.ForName(cfg.DiffStrategy)
    if err != nil {
        return ctx, err
    }

    a.runner = toolrun.NewExecRunner(cfg.UtilitiesPath, cfg.ToolTimeout, logging.Component("toolrun"))
    a.extract = kernel.NewExtractor(a.runner, kernel.Companions{
        LSKDir:      cfg.Companions.LSKDir,
        LSKPattern:  cfg.Companions.LSKPattern,
        SCLKDir:     cfg.Companions.SCLKDir,
        SCLKPattern: cfg.Companions.SCLKPattern,
    }, logging.Component("kernel"))

    a.journal, err = journal.Open(cfg.JournalPath, logging.Component("journal"))
    if err != nil {
        return ctx, fmt.Errorf("open journal: %w", err)
    }
    a.engine = commentsync.NewEngine(a.runner, a.journal, logging.Component("commentsync"))

    log.Debug().
        Str("utilities", cfg.UtilitiesPath).
        Str("strategy", a.strategy.Name()).
        Str("journal", cfg.JournalPath).
        Msg("ready")
    return ctx, nil
}

func (a *app) after(ctx context.Context, c *cli.Command) error {
    var err error
    if a.journal != nil {
        if err = a.journal.Close(); err != nil {
            log.Error().Err(err).Msg("close journal")
        }
    }
    if a.logCloser != nil {
        a.logCloser()
    }
    return err
}

// deps are the shared pieces every session gets.
func (a *app) deps() host.Deps {
    return host.Deps{
        Loader: a.extract,
        Saver:  a.engine,
        Options: session.Options{
            Strategy: a.strategy,
            NoColor:  a.cfg.NoColor,
        },
        Watch:    a.cfg.Watch,
        Log:      logging.Component("session"),
        Registry: host.NewRegistry(),
    }
}

/* ---------- CLI ---------- */

func main() {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    a := &app{}
    root := &cli.Command{
        Name:      appName,
        Usage:     "View and edit the comment area of SPICE kernels",
        UsageText: appName + " [global options] <file>\n   " + appName + " [global options] command [command options]",
        Description: `spicecomment reads the comment area of SPICE kernels (.bsp, .bpc, .bds, .bc) with
the NAIF commnt utility and shows the matching brief summary next to it.

Edits are reviewed as a diff before they are written back. Writing replaces the
comment in two steps (delete, then append); the original text is kept in a local
journal until the new text is in place, so an interrupted save can be recovered
with 'spicecomment recover'.

Set utilities_path in the config file, or SPICE_UTILITIES_PATH, to the directory
holding commnt, brief, dskbrief and ckbrief.`,
        Version: Version,
        Flags: []cli.Flag{
            &cli.StringFlag{
                Name:        "log-level",
                Usage:       "log level (debug, info, warn, error)",
                Sources:     cli.EnvVars("SPICECOMMENT_LOG_LEVEL"),
                Value:       "warn",
                Destination: &a.flags.LogLevel,
            },
            &cli.StringFlag{
                Name:        "log-file",
                Usage:       "path to log file (stderr by default; <data-dir>/" + logFileName + " in the editor)",
                Sources:     cli.EnvVars("SPICECOMMENT_LOG_FILE"),
                Destination: &a.flags.LogFile,
            },
            &cli.StringFlag{
                Name:        "config",
                Aliases:     []string{"c"},
                Usage:       "path to config file",
                Sources:     cli.EnvVars("SPICECOMMENT_CONFIG"),
                Value:       defaultConfigPath(),
                Destination: &a.flags.ConfigPath,
            },
            &cli.StringFlag{
                Name:        "data-dir",
                Usage:       "path to data directory (journal, logs)",
                Sources:     cli.EnvVars("SPICECOMMENT_DATA_DIR"),
                Value:       defaultDataDir(),
                Destination: &a.flags.DataDir,
            },
        },
        Before: a.before,
        After:  a.after,
        Commands: []*cli.Command{
            a.editCmd(),
            a.serveCmd(),
            a.listenCmd(),
            a.commentCmd(),
            a.briefCmd(),
            a.diffCmd(),
            a.saveCmd(),
            a.recoverCmd(),
            a.doctorCmd(),
        },
        // a bare file argument opens the editor
        Action: func(ctx context.Context, c *cli.Command) error {
            if c.Args().Len() == 0 {
                return fmt.Errorf("missing <file> argument. Run '%s --help' for usage", appName)
            }
            return a.edit(ctx, c)
        },
    }

    if err := root.Run(ctx, os.Args); err != nil {
        fmt.Fprintln(os.Stderr, err.Error())
        os.Exit(1)
    }
}
