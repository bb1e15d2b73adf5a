package commentsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spicecomment/internal/journal"
	"spicecomment/internal/toolrun"
)

const kernelPath = "/data/kernels/de440.bsp"

// fakeCommnt simulates the comment area of one kernel on top of a
// RecordingRunner. Appended file contents are captured in order.
type fakeCommnt struct {
	comment  string
	appended []string
}

func (f *fakeCommnt) hook(cmd toolrun.RecordedCommand) error {
	switch cmd.Args[0] {
	case "-e":
		if f.comment == "" {
			return nil
		}
		return os.WriteFile(cmd.Args[2], []byte(f.comment), 0o600)
	case "-a":
		data, err := os.ReadFile(cmd.Args[2])
		if err != nil {
			return err
		}
		f.appended = append(f.appended, string(data))
	}
	return nil
}

func newTestJournal(t *testing.T) *journal.Store {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func setup(t *testing.T, original string) (*Engine, *toolrun.RecordingRunner, *fakeCommnt, *journal.Store) {
	t.Helper()
	fc := &fakeCommnt{comment: original}
	r := &toolrun.RecordingRunner{OnRun: fc.hook, Errors: map[string]error{}}
	j := newTestJournal(t)
	return NewEngine(r, j, zerolog.Nop()), r, fc, j
}

func TestSave_NotConfigured(t *testing.T) {
	r := &toolrun.RecordingRunner{Missing: map[string]bool{"commnt": true}}
	e := NewEngine(r, nil, zerolog.Nop())

	err := e.Save(context.Background(), kernelPath, "new")
	assert.ErrorIs(t, err, toolrun.ErrToolNotConfigured)
	assert.Empty(t, r.Ops())
}

func TestSave_Success(t *testing.T) {
	e, r, fc, j := setup(t, "old comment")

	require.NoError(t, e.Save(context.Background(), kernelPath, "new comment"))
	assert.Equal(t, []string{"commnt -e", "commnt -d", "commnt -a"}, r.Ops())
	assert.Equal(t, []string{"new comment"}, fc.appended)

	left, err := j.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, left, "artifact released after append")
}

func TestSave_DeleteFailsNeverAppends(t *testing.T) {
	e, r, fc, j := setup(t, "old comment")
	r.Errors["commnt -d"] = errors.New("file locked")

	err := e.Save(context.Background(), kernelPath, "new comment")
	require.Error(t, err)
	assert.ErrorIs(t, err, toolrun.ErrToolExecutionFailed)
	assert.NotErrorIs(t, err, ErrSaveDataLossRisk)

	assert.Equal(t, []string{"commnt -e", "commnt -d"}, r.Ops())
	assert.Equal(t, 0, r.Calls("commnt -a"))
	assert.Empty(t, fc.appended)

	left, err := j.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSave_DeleteTimeoutKeepsArtifact(t *testing.T) {
	e, r, fc, j := setup(t, "old comment")
	r.Errors["commnt -d"] = fmt.Errorf("killed: %w", toolrun.ErrToolTimedOut)

	err := e.Save(context.Background(), kernelPath, "new comment")
	assert.ErrorIs(t, err, ErrDeleteInterrupted)
	assert.ErrorIs(t, err, toolrun.ErrToolTimedOut)
	assert.NotErrorIs(t, err, ErrSaveDataLossRisk)
	assert.Empty(t, fc.appended)

	var di *DeleteInterruptedError
	require.ErrorAs(t, err, &di)
	require.NotZero(t, di.ArtifactID)

	a, err := j.Get(context.Background(), di.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, "old comment", a.Comment)
	assert.Equal(t, journal.StateStranded, a.State)
}

func TestSave_CancelDuringDeleteKeepsArtifact(t *testing.T) {
	e, r, fc, j := setup(t, "old comment")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.OnRun = func(cmd toolrun.RecordedCommand) error {
		if cmd.Args[0] == "-d" {
			cancel()
		}
		return fc.hook(cmd)
	}

	err := e.Save(ctx, kernelPath, "new comment")
	assert.ErrorIs(t, err, ErrDeleteInterrupted)
	assert.Equal(t, []string{"commnt -e", "commnt -d"}, r.Ops())

	left, err := j.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, journal.StateStranded, left[0].State)
}

func TestSave_CancelDuringAppendStillFinishes(t *testing.T) {
	e, r, fc, j := setup(t, "old comment")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.OnRun = func(cmd toolrun.RecordedCommand) error {
		if cmd.Args[0] == "-a" {
			cancel()
		}
		return fc.hook(cmd)
	}

	require.NoError(t, e.Save(ctx, kernelPath, "new comment"))
	assert.Equal(t, []string{"commnt -e", "commnt -d", "commnt -a"}, r.Ops())
	assert.Equal(t, []string{"new comment"}, fc.appended)

	left, err := j.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, left, "artifact released after append")
}

func TestSave_CancelledAppendFailureStillReattaches(t *testing.T) {
	e, r, fc, j := setup(t, "old comment")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	r.OnRun = func(cmd toolrun.RecordedCommand) error {
		if cmd.Args[0] == "-a" {
			calls++
			if calls == 1 {
				cancel()
				return context.Canceled
			}
		}
		return fc.hook(cmd)
	}

	err := e.Save(ctx, kernelPath, "new comment")
	var dl *DataLossError
	require.ErrorAs(t, err, &dl)
	assert.True(t, dl.Restored)
	assert.Equal(t, []string{"old comment"}, fc.appended)

	left, err := j.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSave_ExportFailsNothingChanged(t *testing.T) {
	e, r, _, _ := setup(t, "old")
	r.Errors["commnt -e"] = errors.New("unreadable")

	err := e.Save(context.Background(), kernelPath, "new")
	assert.ErrorIs(t, err, toolrun.ErrToolExecutionFailed)
	assert.NotErrorIs(t, err, ErrSaveDataLossRisk)
	assert.Equal(t, []string{"commnt -e"}, r.Ops())
}

func TestSave_AppendFailsOriginalReattached(t *testing.T) {
	e, r, fc, j := setup(t, "old comment")
	calls := 0
	r.OnRun = func(cmd toolrun.RecordedCommand) error {
		if err := fc.hook(cmd); err != nil {
			return err
		}
		if cmd.Args[0] == "-a" {
			calls++
			if calls == 1 {
				return errors.New("disk full")
			}
		}
		return nil
	}

	err := e.Save(context.Background(), kernelPath, "new comment")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveDataLossRisk)

	var dl *DataLossError
	require.ErrorAs(t, err, &dl)
	assert.True(t, dl.Restored)
	assert.NoError(t, dl.RestoreErr)
	assert.Equal(t, kernelPath, dl.Path)

	assert.Equal(t, []string{"commnt -e", "commnt -d", "commnt -a", "commnt -a"}, r.Ops())
	assert.Equal(t, []string{"new comment", "old comment"}, fc.appended)

	left, err := j.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSave_AppendAndReattachFail(t *testing.T) {
	e, r, _, j := setup(t, "old comment")
	r.Errors["commnt -a"] = errors.New("disk full")

	err := e.Save(context.Background(), kernelPath, "new comment")
	assert.ErrorIs(t, err, ErrSaveDataLossRisk)

	var dl *DataLossError
	require.ErrorAs(t, err, &dl)
	assert.False(t, dl.Restored)
	assert.ErrorIs(t, dl.RestoreErr, toolrun.ErrToolExecutionFailed)
	require.NotZero(t, dl.ArtifactID)
	assert.Contains(t, err.Error(), "recovery artifact")

	a, err := j.Get(context.Background(), dl.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, "old comment", a.Comment)
	assert.Equal(t, journal.StateStranded, a.State)
	assert.Equal(t, kernelPath, a.Path)
}

func TestSave_AppendFailsOnEmptyOriginal(t *testing.T) {
	e, r, _, _ := setup(t, "")
	r.Errors["commnt -a"] = errors.New("disk full")

	err := e.Save(context.Background(), kernelPath, "first comment")
	var dl *DataLossError
	require.ErrorAs(t, err, &dl)
	assert.True(t, dl.Restored, "an empty original needs no reattach")
	assert.Equal(t, []string{"commnt -e", "commnt -d", "commnt -a"}, r.Ops())
}

func TestSave_EmptyTextOnlyDeletes(t *testing.T) {
	e, r, fc, _ := setup(t, "old")

	require.NoError(t, e.Save(context.Background(), kernelPath, ""))
	assert.Equal(t, []string{"commnt -e", "commnt -d"}, r.Ops())
	assert.Empty(t, fc.appended)
}

type failingJournal struct{}

func (failingJournal) Retain(context.Context, string, string) (int64, error) {
	return 0, errors.New("disk full")
}
func (failingJournal) Release(context.Context, int64) error        { return nil }
func (failingJournal) Strand(context.Context, int64, string) error { return nil }
func (failingJournal) Get(context.Context, int64) (journal.Artifact, error) {
	return journal.Artifact{}, journal.ErrArtifactNotFound
}

func TestSave_RetainFailsBeforeDelete(t *testing.T) {
	fc := &fakeCommnt{comment: "old"}
	r := &toolrun.RecordingRunner{OnRun: fc.hook}
	e := NewEngine(r, failingJournal{}, zerolog.Nop())

	err := e.Save(context.Background(), kernelPath, "new")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSaveDataLossRisk)
	assert.Equal(t, []string{"commnt -e"}, r.Ops())
}

func TestSave_WithoutJournal(t *testing.T) {
	fc := &fakeCommnt{comment: "old"}
	r := &toolrun.RecordingRunner{OnRun: fc.hook, Errors: map[string]error{"commnt -a": errors.New("x")}}
	e := NewEngine(r, nil, zerolog.Nop())

	err := e.Save(context.Background(), kernelPath, "new")
	var dl *DataLossError
	require.ErrorAs(t, err, &dl)
	assert.Zero(t, dl.ArtifactID)
}

func TestReattach(t *testing.T) {
	e, r, fc, j := setup(t, "")
	ctx := context.Background()

	id, err := j.Retain(ctx, kernelPath, "recovered text")
	require.NoError(t, err)
	require.NoError(t, j.Strand(ctx, id, "disk full"))

	require.NoError(t, e.Reattach(ctx, id))
	assert.Equal(t, []string{"recovered text"}, fc.appended)
	assert.Equal(t, 1, r.Calls("commnt -d"))

	_, err = j.Get(ctx, id)
	assert.ErrorIs(t, err, journal.ErrArtifactNotFound)
}

func TestReattach_Unknown(t *testing.T) {
	e, _, _, _ := setup(t, "")
	assert.ErrorIs(t, e.Reattach(context.Background(), 42), journal.ErrArtifactNotFound)
}
