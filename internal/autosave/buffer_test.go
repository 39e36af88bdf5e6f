package autosave_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/autosave"
)

type recordingSaver struct {
	mu    sync.Mutex
	calls []autosave.Patch
	err   error
	gate  chan struct{}
}

func (r *recordingSaver) save(ctx context.Context, key string, patch autosave.Patch) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, patch)
	return r.err
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingSaver) last() autosave.Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func patch(t *testing.T, s string) autosave.Patch {
	t.Helper()
	p, err := autosave.ParsePatch([]byte(s))
	require.NoError(t, err)
	return p
}

func TestBuffer_CoalescesEdits(t *testing.T) {
	saver := &recordingSaver{}
	buf := autosave.New[string](saver.save, 30*time.Millisecond, zap.NewNop())

	require.NoError(t, buf.Edit("stage-1", patch(t, `{"notes":"a"}`)))
	require.NoError(t, buf.Edit("stage-1", patch(t, `{"notes":"ab"}`)))
	require.NoError(t, buf.Edit("stage-1", patch(t, `{"address":"Main st"}`)))

	assert.Equal(t, autosave.StatePending, buf.State("stage-1").State)

	view, ok := buf.View("stage-1")
	require.True(t, ok)
	assert.JSONEq(t, `"ab"`, string(view["notes"]))

	assert.Eventually(t, func() bool {
		return buf.State("stage-1").State == autosave.StateSaved
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, saver.count())
	saved := saver.last()
	assert.JSONEq(t, `"ab"`, string(saved["notes"]))
	assert.JSONEq(t, `"Main st"`, string(saved["address"]))

	_, ok = buf.View("stage-1")
	assert.False(t, ok)
}

func TestBuffer_FlushBypassesDebounce(t *testing.T) {
	saver := &recordingSaver{}
	buf := autosave.New[string](saver.save, time.Hour, zap.NewNop())

	require.NoError(t, buf.Edit("k", patch(t, `{"notes":"x"}`)))
	require.NoError(t, buf.Flush(context.Background(), "k"))

	assert.Equal(t, 1, saver.count())
	assert.Equal(t, autosave.StateSaved, buf.State("k").State)

	// nothing pending
	require.NoError(t, buf.Flush(context.Background(), "k"))
	require.NoError(t, buf.Flush(context.Background(), "unknown"))
	assert.Equal(t, 1, saver.count())
}

func TestBuffer_FailedSaveKeepsEdits(t *testing.T) {
	saver := &recordingSaver{err: errors.New("database is down")}
	buf := autosave.New[string](saver.save, time.Hour, zap.NewNop())

	require.NoError(t, buf.Edit("k", patch(t, `{"notes":"x"}`)))
	err := buf.Flush(context.Background(), "k")
	require.Error(t, err)

	status := buf.State("k")
	assert.Equal(t, autosave.StateFailed, status.State)
	assert.EqualError(t, status.LastError, "database is down")

	view, ok := buf.View("k")
	require.True(t, ok)
	assert.JSONEq(t, `"x"`, string(view["notes"]))

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	require.NoError(t, buf.Flush(context.Background(), "k"))
	assert.Equal(t, autosave.StateSaved, buf.State("k").State)
	assert.Nil(t, buf.State("k").LastError)
}

func TestBuffer_PermanentErrorDropsEdits(t *testing.T) {
	rejected := errors.New("field is immutable")
	saver := &recordingSaver{err: rejected}
	buf := autosave.New[string](saver.save, time.Hour, zap.NewNop(),
		autosave.WithPermanentErrors(func(err error) bool { return errors.Is(err, rejected) }))

	require.NoError(t, buf.Edit("k", patch(t, `{"originalPosition":"A"}`)))
	err := buf.Flush(context.Background(), "k")
	assert.ErrorIs(t, err, rejected)

	status := buf.State("k")
	assert.Equal(t, autosave.StateFailed, status.State)
	assert.ErrorIs(t, status.LastError, rejected)

	_, ok := buf.View("k")
	assert.False(t, ok, "rejected edits must not stay buffered")

	// nothing left to retry
	require.NoError(t, buf.Flush(context.Background(), "k"))
	assert.Equal(t, 1, saver.count())

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	require.NoError(t, buf.Edit("k", patch(t, `{"notes":"later"}`)))
	require.NoError(t, buf.Flush(context.Background(), "k"))
	assert.Equal(t, autosave.StateSaved, buf.State("k").State)
	assert.JSONEq(t, `"later"`, string(saver.last()["notes"]))
	_, stale := saver.last()["originalPosition"]
	assert.False(t, stale)
}

func TestBuffer_EditDuringSave(t *testing.T) {
	saver := &recordingSaver{gate: make(chan struct{})}
	buf := autosave.New[string](saver.save, time.Hour, zap.NewNop())

	require.NoError(t, buf.Edit("k", patch(t, `{"notes":"first"}`)))

	done := make(chan error, 1)
	go func() { done <- buf.Flush(context.Background(), "k") }()

	assert.Eventually(t, func() bool {
		return buf.State("k").State == autosave.StateSaving
	}, time.Second, time.Millisecond)

	require.NoError(t, buf.Edit("k", patch(t, `{"address":"second"}`)))

	view, ok := buf.View("k")
	require.True(t, ok)
	assert.Len(t, view, 2)

	close(saver.gate)
	require.NoError(t, <-done)
	assert.Equal(t, autosave.StatePending, buf.State("k").State)

	require.NoError(t, buf.Flush(context.Background(), "k"))
	assert.Equal(t, 2, saver.count())
	assert.JSONEq(t, `"second"`, string(saver.last()["address"]))
}

func TestBuffer_CloseFlushesEverything(t *testing.T) {
	saver := &recordingSaver{}
	buf := autosave.New[string](saver.save, time.Hour, zap.NewNop())

	require.NoError(t, buf.Edit("a", patch(t, `{"notes":"1"}`)))
	require.NoError(t, buf.Edit("b", patch(t, `{"notes":"2"}`)))

	require.NoError(t, buf.Close(context.Background()))
	assert.Equal(t, 2, saver.count())

	err := buf.Edit("a", patch(t, `{"notes":"3"}`))
	assert.ErrorIs(t, err, autosave.ErrClosed)
}

func TestBuffer_UnknownKeyIsIdle(t *testing.T) {
	buf := autosave.New[int](func(context.Context, int, autosave.Patch) error { return nil }, 0, zap.NewNop())
	assert.Equal(t, autosave.StateIdle, buf.State(42).State)
	assert.Equal(t, autosave.DefaultDelay, buf.Delay())
}

func TestParsePatch(t *testing.T) {
	_, err := autosave.ParsePatch([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = autosave.ParsePatch([]byte(``))
	assert.Error(t, err)

	p, err := autosave.ParsePatch([]byte(` {"a": {"b": 1}} `))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":1}`, string(p["a"]))

	merged := autosave.Merge(p, autosave.Patch{"c": json.RawMessage(`true`)})
	assert.Len(t, merged, 2)
	assert.Len(t, p, 1)
}
