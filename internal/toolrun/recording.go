package toolrun

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// RecordedCommand captures a tool invocation.
type RecordedCommand struct {
	Dir  string
	Tool string
	Args []string
}

// Key returns "tool" or "tool firstArg", the form used by Outputs and Errors.
func (c RecordedCommand) Key() string {
	if len(c.Args) == 0 {
		return c.Tool
	}
	return c.Tool + " " + c.Args[0]
}

// RecordingRunner captures invocations for testing.
// Outputs and Errors are looked up by "tool firstArg" first, then by "tool".
type RecordingRunner struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Missing lists tools reported as not configured.
	Missing map[string]bool

	Outputs map[string]Output
	Errors  map[string]error

	// OnRun, when set, runs before the configured output is returned. A
	// non-nil error from it is returned as the invocation error.
	OnRun func(cmd RecordedCommand) error
}

// recordingRoot is the tool root named in Check failures.
const recordingRoot = "/fake/utilities"

func (r *RecordingRunner) Check(tool string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Missing[tool] {
		return &NotConfiguredError{Tool: tool, Path: filepath.Join(recordingRoot, tool)}
	}
	return nil
}

func (r *RecordingRunner) Run(ctx context.Context, tool string, args []string, dir string) (Output, error) {
	if err := r.Check(tool); err != nil {
		return Output{}, err
	}

	cmd := RecordedCommand{Dir: dir, Tool: tool, Args: append([]string(nil), args...)}

	r.mu.Lock()
	r.Commands = append(r.Commands, cmd)
	onRun := r.OnRun
	out, hasOut := r.Outputs[cmd.Key()]
	if !hasOut {
		out = r.Outputs[tool]
	}
	err, hasErr := r.Errors[cmd.Key()]
	if !hasErr {
		err = r.Errors[tool]
	}
	r.mu.Unlock()

	if onRun != nil {
		if hookErr := onRun(cmd); hookErr != nil {
			return out, classify(tool, args, out, hookErr)
		}
	}
	if err := ctx.Err(); err != nil {
		return out, classify(tool, args, out, err)
	}
	return out, classify(tool, args, out, err)
}

// Ops returns the Key of every recorded command in order.
func (r *RecordingRunner) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		ops[i] = c.Key()
	}
	return ops
}

// Calls counts invocations whose Key starts with prefix.
func (r *RecordingRunner) Calls(prefix string) int {
	n := 0
	for _, op := range r.Ops() {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

// Reset clears recorded commands.
func (r *RecordingRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commands = nil
}
