package toolrun

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolNotConfigured means the executable is absent under the tool root.
	ErrToolNotConfigured = errors.New("tool not configured")
	// ErrToolExecutionFailed covers non-zero exits and spawn errors.
	ErrToolExecutionFailed = errors.New("tool execution failed")
	// ErrToolTimedOut means the tool exceeded the configured timeout and was killed.
	ErrToolTimedOut = errors.New("tool timed out")
)

// NotConfiguredError names the tool and the path that was probed.
type NotConfiguredError struct {
	Tool string
	Path string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s not found at %s", e.Tool, e.Path)
}

func (e *NotConfiguredError) Unwrap() error { return ErrToolNotConfigured }

// ExecError carries the captured output of a failed invocation.
type ExecError struct {
	Tool   string
	Args   []string
	Stdout string
	Stderr string
	Err    error

	kind error
}

// NewExecError wraps err as an execution failure of tool.
func NewExecError(tool string, args []string, out Output, err error) *ExecError {
	return &ExecError{Tool: tool, Args: args, Stdout: out.Stdout, Stderr: out.Stderr, Err: err, kind: ErrToolExecutionFailed}
}

func newTimeoutError(tool string, args []string, out Output, err error) *ExecError {
	e := NewExecError(tool, args, out, err)
	e.kind = ErrToolTimedOut
	return e
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Tool, strings.Join(e.Args, " "))
	if e.kind == ErrToolTimedOut {
		b.WriteString(": timed out")
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExecError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.Err}
}

// classify converts an arbitrary error from a fake or a wrapped call into
// one of the runner's error kinds.
func classify(tool string, args []string, out Output, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrToolNotConfigured) || errors.Is(err, ErrToolExecutionFailed) || errors.Is(err, ErrToolTimedOut) {
		return err
	}
	return NewExecError(tool, args, out, err)
}
