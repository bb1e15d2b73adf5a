package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRetainGetRelease(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Retain(ctx, "/k/de440.bsp", "original comment\n")
	require.NoError(t, err)

	a, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/k/de440.bsp", a.Path)
	assert.Equal(t, "original comment\n", a.Comment)
	assert.Equal(t, StatePending, a.State)
	assert.False(t, a.CreatedAt.IsZero())

	require.NoError(t, s.Release(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	require.NoError(t, s.Release(ctx, id), "release is idempotent")
}

func TestStrand(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Retain(ctx, "/k/a.bc", "keep me")
	require.NoError(t, err)
	require.NoError(t, s.Strand(ctx, id, "append failed"))

	a, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateStranded, a.State)
	assert.Equal(t, "append failed", a.Reason)

	assert.ErrorIs(t, s.Strand(ctx, id+100, "x"), ErrArtifactNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Retain(ctx, "/k/a.bsp", "one")
	require.NoError(t, err)
	_, err = s.Retain(ctx, "/k/b.bsp", "other file")
	require.NoError(t, err)
	second, err := s.Retain(ctx, "/k/a.bsp", "two")
	require.NoError(t, err)

	got, err := s.List(ctx, "/k/a.bsp")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second, got[0].ID)
	assert.Equal(t, first, got[1].ID)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	ctx := context.Background()

	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	id, err := s.Retain(ctx, "/k/a.bsp", "survives")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	a, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "survives", a.Comment)
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Retain(context.Background(), "/k/a.bsp", "x")
	require.NoError(t, err)
	got, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
