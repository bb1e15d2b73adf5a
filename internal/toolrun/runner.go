// Package toolrun invokes the external kernel utilities (commnt, brief,
// dskbrief, ckbrief) that live in a single configured directory.
package toolrun

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

const maxStderrLen = 4096

// Output is what a tool printed.
type Output struct {
	Stdout string
	Stderr string
}

// Runner runs a named utility from the tool root.
type Runner interface {
	// Check reports ErrToolNotConfigured when the tool is absent. It never
	// executes anything.
	Check(tool string) error
	// Run executes tool with args in dir. Errors are one of
	// ErrToolNotConfigured, ErrToolExecutionFailed or ErrToolTimedOut.
	Run(ctx context.Context, tool string, args []string, dir string) (Output, error)
}

// ExecRunner runs real executables found under Root.
type ExecRunner struct {
	Root    string
	Timeout time.Duration // 0 disables
	Log     zerolog.Logger
}

func NewExecRunner(root string, timeout time.Duration, log zerolog.Logger) *ExecRunner {
	return &ExecRunner{Root: root, Timeout: timeout, Log: log}
}

// Resolve returns the executable path for tool or a *NotConfiguredError.
func (r *ExecRunner) Resolve(tool string) (string, error) {
	path := filepath.Join(r.Root, tool)
	// an unset root never falls back to the working directory
	if r.Root == "" {
		return "", &NotConfiguredError{Tool: tool, Path: path}
	}
	if isFile(path) {
		return path, nil
	}
	if runtime.GOOS == "windows" && isFile(path+".exe") {
		return path + ".exe", nil
	}
	return "", &NotConfiguredError{Tool: tool, Path: path}
}

func (r *ExecRunner) Check(tool string) error {
	_, err := r.Resolve(tool)
	return err
}

func (r *ExecRunner) Run(ctx context.Context, tool string, args []string, dir string) (Output, error) {
	path, err := r.Resolve(tool)
	if err != nil {
		return Output{}, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	if cmd.Dir == "" {
		cmd.Dir = r.Root
	}
	cmd.SysProcAttr = newSysProcAttrForGroup()
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{buf: &stderr, max: maxStderrLen}

	start := time.Now()
	runErr := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	ev := r.Log.Debug()
	if runErr != nil {
		ev = r.Log.Warn().Err(runErr)
	}
	ev.Str("tool", tool).
		Strs("args", args).
		Str("dir", cmd.Dir).
		Dur("took", time.Since(start)).
		Int("exit", exitCode(cmd)).
		Msg("tool invocation")

	switch {
	case runErr == nil:
		return out, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return out, newTimeoutError(tool, args, out, runErr)
	default:
		return out, NewExecError(tool, args, out, runErr)
	}
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

var _ io.Writer = (*limitedWriter)(nil)

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}
