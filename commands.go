package main

import (
    "context"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "text/tabwriter"
    "time"

    "github.com/atotto/clipboard"
    "github.com/urfave/cli/v3"

    "spicecomment/internal/diff"
    "spicecomment/internal/host"
    "spicecomment/internal/kernel"
    "spicecomment/internal/protocol"
    "spicecomment/internal/session"
    "spicecomment/internal/tui"
    "spicecomment/internal/tui/util"
)

const defaultListenAddr = "127.0.0.1:8765"

// fileArg returns the absolute form of the first positional argument.
func fileArg(c *cli.Command) (string, error) {
    p := c.Args().First()
    if p == "" {
        return "", errors.New("missing <file> argument")
    }
    return filepath.Abs(p)
}

// readInput reads a text file, or stdin for "-".
func readInput(p string) (string, error) {
    if p == "-" {
        data, err := io.ReadAll(os.Stdin)
        return string(data), err
    }
    data, err := os.ReadFile(p)
    return string(data), err
}

/* ---------- interactive ---------- */

func (a *app) editCmd() *cli.Command {
    return &cli.Command{
        Name:      "edit",
        Usage:     "Open a kernel's comment in the terminal editor",
        UsageText: appName + " edit <file>",
        Action:    a.edit,
    }
}

func (a *app) edit(ctx context.Context, c *cli.Command) error {
    path, err := fileArg(c)
    if err != nil {
        return err
    }
    return tui.Run(ctx, path, a.deps())
}

func (a *app) serveCmd() *cli.Command {
    return &cli.Command{
        Name:      "serve",
        Usage:     "Speak the editor protocol as JSON lines on stdin/stdout",
        UsageText: appName + " serve <file>",
        Action: func(ctx context.Context, c *cli.Command) error {
            path, err := fileArg(c)
            if err != nil {
                return err
            }
            conn := protocol.NewLineConn(os.Stdin, os.Stdout, os.Stdin)
            return host.Serve(ctx, conn, path, a.deps())
        },
    }
}

func (a *app) listenCmd() *cli.Command {
    var addr string
    return &cli.Command{
        Name:      "listen",
        Usage:     "Accept websocket editor surfaces at /ws?path=<file>",
        UsageText: appName + " listen [--addr HOST:PORT]",
        Flags: []cli.Flag{
            &cli.StringFlag{
                Name:        "addr",
                Usage:       "listen address",
                Value:       defaultListenAddr,
                Destination: &addr,
            },
        },
        Action: func(ctx context.Context, c *cli.Command) error {
            fmt.Fprintf(os.Stderr, "listening on ws://%s/ws?path=<file>\n", addr)
            return host.NewListener(a.deps()).ListenAndServe(ctx, addr)
        },
    }
}

/* ---------- one-shot ---------- */

func (a *app) commentCmd() *cli.Command {
    return &cli.Command{
        Name:      "comment",
        Usage:     "Print the comment area of a kernel",
        UsageText: appName + " comment <file>",
        Action: func(ctx context.Context, c *cli.Command) error {
            path, err := fileArg(c)
            if err != nil {
                return err
            }
            text, err := a.extract.ExtractComment(ctx, path)
            if err != nil {
                fmt.Fprint(os.Stderr, text)
                return cli.Exit(session.Describe("Reading the comment", err), 1)
            }
            fmt.Fprint(c.Root().Writer, text)
            return nil
        },
    }
}

func (a *app) briefCmd() *cli.Command {
    return &cli.Command{
        Name:      "brief",
        Usage:     "Print the brief summary of a kernel",
        UsageText: appName + " brief <file>",
        Action: func(ctx context.Context, c *cli.Command) error {
            path, err := fileArg(c)
            if err != nil {
                return err
            }
            text, err := a.extract.ExtractBrief(ctx, path)
            fmt.Fprint(c.Root().Writer, text)
            if err != nil {
                return cli.Exit("", 1)
            }
            return nil
        },
    }
}

func (a *app) diffCmd() *cli.Command {
    var with, strategy string
    var html bool
    return &cli.Command{
        Name:      "diff",
        Usage:     "Show the diff between a kernel's comment and a text file",
        UsageText: appName + " diff <file> --with <textfile> [--strategy word|html] [--html]",
        Flags: []cli.Flag{
            &cli.StringFlag{
                Name:        "with",
                Usage:       "text file holding the new comment (- for stdin)",
                Required:    true,
                Destination: &with,
            },
            &cli.StringFlag{
                Name:        "strategy",
                Usage:       "diff strategy (word, html); defaults to diff_strategy from config",
                Destination: &strategy,
            },
            &cli.BoolFlag{
                Name:        "html",
                Usage:       "print the HTML rendering instead of terminal colors",
                Destination: &html,
            },
        },
        Action: func(ctx context.Context, c *cli.Command) error {
            path, err := fileArg(c)
            if err != nil {
                return err
            }
            s := a.strategy
            if strategy != "" {
                if s, err = diff.ForName(strategy); err != nil {
                    return err
                }
            }
            stored, err := a.extract.ExtractComment(ctx, path)
            if err != nil {
                return cli.Exit(session.Describe("Reading the comment", err), 1)
            }
            edited, err := readInput(with)
            if err != nil {
                return fmt.Errorf("read %s: %w", with, err)
            }

            r := s.Diff(stored, edited)
            if html {
                fmt.Fprintln(c.Root().Writer, s.HTML(r))
                return nil
            }
            fmt.Fprint(c.Root().Writer, diff.ANSI(r, util.NoColor(a.cfg.NoColor)))
            return nil
        },
    }
}

func (a *app) saveCmd() *cli.Command {
    var from string
    return &cli.Command{
        Name:      "save",
        Usage:     "Replace a kernel's comment with the contents of a text file",
        UsageText: appName + " save <file> --from <textfile>",
        Flags: []cli.Flag{
            &cli.StringFlag{
                Name:        "from",
                Usage:       "text file holding the new comment (- for stdin)",
                Required:    true,
                Destination: &from,
            },
        },
        Action: func(ctx context.Context, c *cli.Command) error {
            path, err := fileArg(c)
            if err != nil {
                return err
            }
            if !kernel.Writable(path) {
                return cli.Exit(session.Describe("Save", session.ErrNotEditable), 1)
            }
            text, err := readInput(from)
            if err != nil {
                return fmt.Errorf("read %s: %w", from, err)
            }
            if err := a.engine.Save(ctx, path, text); err != nil {
                return cli.Exit(session.Describe("Save", err), 1)
            }
            fmt.Fprintf(c.Root().Writer, "Comment saved (%d bytes)\n", len(text))
            return nil
        },
    }
}

func (a *app) recoverCmd() *cli.Command {
    var (
        list   bool
        show   bool
        toClip bool
        id     int64
    )
    return &cli.Command{
        Name:      "recover",
        Usage:     "List or reattach original comments kept by interrupted saves",
        UsageText: appName + " recover [<file>] [--list] [--id N [--show | --copy]]",
        Description: `Every save keeps the kernel's original comment in the journal until the new
comment is in place. Artifacts left behind by a failed save are listed here;
--id writes one back into its kernel.`,
        Flags: []cli.Flag{
            &cli.BoolFlag{Name: "list", Usage: "list artifacts (default without --id)", Destination: &list},
            &cli.Int64Flag{Name: "id", Usage: "artifact to act on", Destination: &id},
            &cli.BoolFlag{Name: "show", Usage: "print the artifact instead of reattaching it", Destination: &show},
            &cli.BoolFlag{Name: "copy", Usage: "copy the artifact to the clipboard instead of reattaching it", Destination: &toClip},
        },
        Action: func(ctx context.Context, c *cli.Command) error {
            if id == 0 || list {
                var path string
                if c.Args().Present() {
                    p, err := fileArg(c)
                    if err != nil {
                        return err
                    }
                    path = p
                }
                return a.listArtifacts(ctx, c.Root().Writer, path)
            }

            art, err := a.journal.Get(ctx, id)
            if err != nil {
                return err
            }
            switch {
            case show:
                fmt.Fprint(c.Root().Writer, art.Comment)
                return nil
            case toClip:
                if err := clipboard.WriteAll(art.Comment); err != nil {
                    return fmt.Errorf("copy to clipboard: %w", err)
                }
                fmt.Fprintf(c.Root().Writer, "Copied artifact %d (%d bytes)\n", id, len(art.Comment))
                return nil
            }
            if err := a.engine.Reattach(ctx, id); err != nil {
                return cli.Exit(session.Describe("Recover", err), 1)
            }
            fmt.Fprintf(c.Root().Writer, "Reattached artifact %d to %s\n", id, art.Path)
            return nil
        },
    }
}

func (a *app) listArtifacts(ctx context.Context, w io.Writer, path string) error {
    arts, err := a.journal.List(ctx, path)
    if err != nil {
        return err
    }
    if len(arts) == 0 {
        fmt.Fprintln(w, "No recovery artifacts.")
        return nil
    }
    tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
    fmt.Fprintln(tw, "ID\tSTATE\tCREATED\tBYTES\tPATH\tREASON")
    for _, art := range arts {
        fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
            art.ID, art.State, art.CreatedAt.Format(time.DateTime), len(art.Comment), art.Path, art.Reason)
    }
    return tw.Flush()
}

/* ---------- doctor ---------- */

func (a *app) doctorCmd() *cli.Command {
    return &cli.Command{
        Name:      "doctor",
        Usage:     "Check which SPICE utilities are present under the tool root",
        UsageText: appName + " doctor",
        Action: func(ctx context.Context, c *cli.Command) error {
            w := c.Root().Writer
            root := a.cfg.UtilitiesPath
            if root == "" {
                root = "(not set)"
            }
            fmt.Fprintf(w, "Utilities path: %s\n", root)
            fmt.Fprintf(w, "Journal:        %s\n", a.cfg.JournalPath)
            fmt.Fprintln(w, "Dependency checks:")

            ok := true
            var missing []string
            for _, tool := range []string{kernel.ToolCommnt, kernel.ToolBrief, kernel.ToolDSKBrief, kernel.ToolCKBrief} {
                if err := a.runner.Check(tool); err != nil {
                    fmt.Fprintf(w, "  ✗ %s not found\n", tool)
                    missing = append(missing, tool)
                    if tool == kernel.ToolCommnt {
                        ok = false
                    }
                } else {
                    fmt.Fprintf(w, "  ✓ %s found\n", tool)
                }
            }
            switch {
            case len(missing) == 0:
                fmt.Fprintln(w, "All utilities found.")
            case ok:
                fmt.Fprintf(w, "Summaries unavailable for kernels that need: %s\n", strings.Join(missing, ", "))
            default:
                fmt.Fprintln(w, "commnt is required. Set utilities_path or SPICE_UTILITIES_PATH to the NAIF exe directory.")
                return cli.Exit("", 1)
            }
            return nil
        },
    }
}
