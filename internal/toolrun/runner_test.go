package toolrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, max: 5}

	n, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = w.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = w.Write([]byte("ijk"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "abcde", buf.String())
}

func TestWithScratchDir_RemovedAfterSuccess(t *testing.T) {
	var seen string
	err := WithScratchDir(func(dir string) error {
		seen = dir
		return os.WriteFile(filepath.Join(dir, "comment.txt"), []byte("x"), 0o600)
	})
	require.NoError(t, err)
	assert.NoDirExists(t, seen)
}

func TestWithScratchDir_RemovedAfterError(t *testing.T) {
	boom := errors.New("boom")
	var seen string
	err := WithScratchDir(func(dir string) error {
		seen = dir
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoDirExists(t, seen)
}

func TestWithScratchDir_RemovedAfterPanic(t *testing.T) {
	var seen string
	assert.Panics(t, func() {
		_ = WithScratchDir(func(dir string) error {
			seen = dir
			panic("tool exploded")
		})
	})
	require.NotEmpty(t, seen)
	assert.NoDirExists(t, seen)
}

func TestWithScratchDir_Unique(t *testing.T) {
	var a, b string
	require.NoError(t, WithScratchDir(func(dir string) error {
		a = dir
		return WithScratchDir(func(inner string) error {
			b = inner
			return nil
		})
	}))
	assert.NotEqual(t, a, b)
}

func TestRecordingRunner(t *testing.T) {
	r := &RecordingRunner{
		Missing: map[string]bool{"dskbrief": true},
		Outputs: map[string]Output{
			"commnt -e": {Stdout: "exported"},
			"brief":     {Stdout: "summary"},
		},
		Errors: map[string]error{"commnt -a": errors.New("disk full")},
	}
	ctx := context.Background()

	out, err := r.Run(ctx, "commnt", []string{"-e", "k.bsp", "/tmp/c.txt"}, "/tmp")
	require.NoError(t, err)
	assert.Equal(t, "exported", out.Stdout)

	out, err = r.Run(ctx, "brief", []string{"k.bsp"}, "")
	require.NoError(t, err)
	assert.Equal(t, "summary", out.Stdout)

	_, err = r.Run(ctx, "commnt", []string{"-a", "k.bsp", "/tmp/c.txt"}, "")
	assert.ErrorIs(t, err, ErrToolExecutionFailed)

	_, err = r.Run(ctx, "dskbrief", []string{"-full", "k.bds"}, "")
	assert.ErrorIs(t, err, ErrToolNotConfigured)

	assert.Equal(t, []string{"commnt -e", "brief k.bsp", "commnt -a"}, r.Ops())
	assert.Equal(t, 2, r.Calls("commnt"))
	assert.Equal(t, "/tmp", r.Commands[0].Dir)

	r.Reset()
	assert.Empty(t, r.Ops())
}

func TestRecordingRunner_OnRun(t *testing.T) {
	var got RecordedCommand
	r := &RecordingRunner{OnRun: func(cmd RecordedCommand) error {
		got = cmd
		return ErrToolTimedOut
	}}

	_, err := r.Run(context.Background(), "ckbrief", []string{"a.bc"}, "")
	assert.ErrorIs(t, err, ErrToolTimedOut)
	assert.NotErrorIs(t, err, ErrToolExecutionFailed)
	assert.Equal(t, "ckbrief", got.Tool)
}

func TestExecError_Message(t *testing.T) {
	err := NewExecError("commnt", []string{"-d", "k.bsp"}, Output{Stderr: "  locked \n"}, errors.New("exit status 1"))
	assert.Equal(t, "commnt -d k.bsp: locked: exit status 1", err.Error())

	te := newTimeoutError("brief", []string{"k.bsp"}, Output{}, nil)
	assert.Equal(t, "brief k.bsp: timed out", te.Error())
	assert.ErrorIs(t, te, ErrToolTimedOut)
}

func TestResolve_EmptyRootIgnoresWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{"commnt", "commnt.exe"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o755))
	}

	r := NewExecRunner("", 0, zerolog.Nop())
	_, err := r.Resolve("commnt")
	assert.ErrorIs(t, err, ErrToolNotConfigured)
	assert.ErrorIs(t, r.Check("commnt"), ErrToolNotConfigured)
}
