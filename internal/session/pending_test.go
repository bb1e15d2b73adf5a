package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_ResolvesExactlyOnce(t *testing.T) {
	tbl := NewPendingTable()
	ids := make(chan int, 1)

	done := make(chan json.RawMessage, 1)
	go func() {
		body, err := tbl.Request(context.Background(), "getFileData", func(id int) error {
			ids <- id
			return nil
		})
		assert.NoError(t, err)
		done <- body
	}()

	id := <-ids
	require.NoError(t, tbl.Resolve(id, json.RawMessage(`{"value":"first"}`)))
	err := tbl.Resolve(id, json.RawMessage(`{"value":"second"}`))
	assert.ErrorIs(t, err, ErrRequestCorrelation)

	assert.JSONEq(t, `{"value":"first"}`, string(<-done))
	assert.Zero(t, tbl.Len())
}

func TestPending_OutOfOrderResponses(t *testing.T) {
	tbl := NewPendingTable()
	type result struct {
		id   int
		body string
	}
	results := make(chan result, 2)
	issued := make(chan int, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var mine int
			body, err := tbl.Request(context.Background(), "getFileData", func(id int) error {
				mine = id
				issued <- id
				return nil
			})
			assert.NoError(t, err)
			results <- result{id: mine, body: string(body)}
		}()
	}
	a, b := <-issued, <-issued

	// answer the later one first
	require.NoError(t, tbl.Resolve(b, json.RawMessage(`"for-b"`)))
	require.NoError(t, tbl.Resolve(a, json.RawMessage(`"for-a"`)))
	wg.Wait()
	close(results)

	for r := range results {
		switch r.id {
		case a:
			assert.Equal(t, `"for-a"`, r.body)
		case b:
			assert.Equal(t, `"for-b"`, r.body)
		}
	}
}

func TestPending_UnknownID(t *testing.T) {
	tbl := NewPendingTable()
	assert.ErrorIs(t, tbl.Resolve(99, nil), ErrRequestCorrelation)
}

func TestPending_DisposeFailsOutstanding(t *testing.T) {
	tbl := NewPendingTable()
	sent := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		_, err := tbl.Request(context.Background(), "getFileData", func(int) error {
			close(sent)
			return nil
		})
		errc <- err
	}()
	<-sent
	assert.Equal(t, 1, tbl.DisposeAll())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSurfaceDisposed)
	case <-time.After(time.Second):
		t.Fatal("request hung after dispose")
	}

	_, err := tbl.Request(context.Background(), "getFileData", func(int) error { return nil })
	assert.ErrorIs(t, err, ErrSurfaceDisposed)
}

func TestPending_ContextEvicts(t *testing.T) {
	tbl := NewPendingTable()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var issued int
	_, err := tbl.Request(ctx, "getFileData", func(id int) error {
		issued = id
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, tbl.Len())
	assert.ErrorIs(t, tbl.Resolve(issued, nil), ErrRequestCorrelation, "late response is uncorrelated")
}

func TestPending_SendFailureEvicts(t *testing.T) {
	tbl := NewPendingTable()
	boom := errors.New("pipe closed")
	_, err := tbl.Request(context.Background(), "getFileData", func(int) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, tbl.Len())
}
