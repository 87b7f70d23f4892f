package worker

import (
	"bytes"
	"sync"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

// syncWriter collects log output from any goroutine.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func newTestLogger(out *syncWriter) *logiface.Logger[logiface.Event] {
	return logiface.New(stumpy.WithStumpy(stumpy.WithWriter(out))).Logger()
}

func TestLogging_PushIntoDestroyedWorker(t *testing.T) {
	out := &syncWriter{}
	w, err := Create(nil, nil, nil, WithLogger(newTestLogger(out)))
	require.NoError(t, err)
	require.NoError(t, w.DestroySync())

	require.ErrorIs(t, w.PushLoad(func(any) {}, nil), ErrInvalidHandle)
	require.Contains(t, out.String(), "destroyed worker")
}

func TestLogging_DoubleFree(t *testing.T) {
	out := &syncWriter{}
	w, err := Create(nil, nil, nil, WithLogger(newTestLogger(out)))
	require.NoError(t, err)
	require.NoError(t, w.DestroySync())

	require.ErrorIs(t, w.DestroyAsync(), ErrDoubleFree)
	require.Contains(t, out.String(), "double free")
}

func TestLogging_NilLoggerIsSilent(t *testing.T) {
	// The nil logger must be usable from every log site.
	w, err := Create(nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.DestroySync())
	require.ErrorIs(t, w.PushLoad(func(any) {}, nil), ErrInvalidHandle)
	require.ErrorIs(t, w.DestroyAsync(), ErrDoubleFree)
}
