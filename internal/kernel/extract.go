package kernel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"spicecomment/internal/toolrun"
)

// NotConfiguredText is shown in place of the comment when commnt is missing
// from the utilities root.
const NotConfiguredText = "\n" +
	"SPICE Viewer not configured!                            \n" +
	"========================================================\n" +
	"Please, ensure to setup properly the SPICE utility path.\n" +
	"                                                        \n" +
	"Vscode-spice: Spice Utilities Path                      \n" +
	"Path to the folder containing the SPICE utilities.      \n" +
	"                                                        \n" +
	"Get commnt from:                                        \n" +
	"https://naif.jpl.nasa.gov/naif/utilities.html           \n"

const (
	ExecFailedText  = "commnt cannot be executed"
	UnsupportedText = "Extension not supported"
)

// Extractor obtains comment and brief text for kernel files.
type Extractor struct {
	runner     toolrun.Runner
	companions Companions
	log        zerolog.Logger
}

func NewExtractor(runner toolrun.Runner, companions Companions, log zerolog.Logger) *Extractor {
	return &Extractor{runner: runner, companions: companions, log: log}
}

// ExtractComment exports the comment area of path. The returned text is
// always displayable: when err is non-nil it holds a diagnostic instead of
// the comment, and must not be written back.
func (e *Extractor) ExtractComment(ctx context.Context, path string) (string, error) {
	if err := e.runner.Check(ToolCommnt); err != nil {
		return NotConfiguredText, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ExecFailedText, err
	}

	var text string
	err = toolrun.WithScratchDir(func(dir string) error {
		tmp := filepath.Join(dir, "comment.txt")
		out, err := e.runner.Run(ctx, ToolCommnt, []string{"-e", abs, tmp}, "")
		if err != nil {
			text = diagnostic(ExecFailedText, out, err)
			return err
		}
		data, err := os.ReadFile(tmp)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// commnt writes nothing for an empty comment area
			text = ""
			return nil
		case err != nil:
			text = ExecFailedText
			return fmt.Errorf("read exported comment: %w", err)
		}
		text = string(data)
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("path", abs).Msg("comment extraction failed")
	}
	return text, err
}

// ExtractBrief summarizes path with the utility matching its extension.
// Unrecognized extensions yield UnsupportedText without running anything.
func (e *Extractor) ExtractBrief(ctx context.Context, path string) (string, error) {
	kind := KindOf(path)
	tool := kind.BriefTool()
	if tool == "" {
		return UnsupportedText, nil
	}
	if err := e.runner.Check(tool); err != nil {
		return fmt.Sprintf("%s is not available in the SPICE utilities path", tool), err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Sprintf("%s cannot be executed", tool), err
	}

	args, err := e.briefArgs(kind, abs)
	if err != nil {
		return fmt.Sprintf("%s cannot be executed", tool), err
	}

	out, err := e.runner.Run(ctx, tool, args, "")
	if err != nil {
		e.log.Warn().Err(err).Str("path", abs).Str("tool", tool).Msg("brief extraction failed")
		return diagnostic(tool+" cannot be executed", out, err), err
	}
	return out.Stdout, nil
}

func (e *Extractor) briefArgs(kind Kind, abs string) ([]string, error) {
	switch kind {
	case KindDSK:
		return []string{"-full", abs}, nil
	case KindCK:
		args := []string{abs}
		lsk, err := findCompanion(abs, e.companions.LSKDir, e.companions.LSKPattern)
		if err != nil {
			return nil, fmt.Errorf("find leapseconds kernel: %w", err)
		}
		sclk, err := findCompanion(abs, e.companions.SCLKDir, e.companions.SCLKPattern)
		if err != nil {
			return nil, fmt.Errorf("find clock kernel: %w", err)
		}
		for _, c := range []string{lsk, sclk} {
			if c != "" {
				args = append(args, c)
			}
		}
		return args, nil
	default:
		return []string{abs}, nil
	}
}

// diagnostic builds the in-band text for a failed invocation.
func diagnostic(head string, out toolrun.Output, err error) string {
	var b strings.Builder
	b.WriteString(head)
	if errors.Is(err, toolrun.ErrToolTimedOut) {
		b.WriteString(" (timed out)")
	}
	if msg := strings.TrimSpace(out.Stderr); msg != "" {
		b.WriteString("\n\n")
		b.WriteString(msg)
	}
	return b.String()
}
