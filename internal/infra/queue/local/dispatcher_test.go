package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type fakeProcessor struct {
	mu        sync.Mutex
	processed []int64
	done      chan struct{}
}

func (p *fakeProcessor) ProcessRefund(ctx context.Context, bookingID int64) error {
	p.mu.Lock()
	p.processed = append(p.processed, bookingID)
	p.mu.Unlock()
	close(p.done)
	return nil
}

func TestDispatchRefund_RunsProcessorInBackground(t *testing.T) {
	proc := &fakeProcessor{done: make(chan struct{})}
	d := NewDispatcher(time.Second, nopLogger{})
	d.Bind(proc)

	err := d.DispatchRefund(context.Background(), 10)
	require.NoError(t, err)

	select {
	case <-proc.done:
	case <-time.After(time.Second):
		t.Fatal("processor was not called")
	}

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Equal(t, []int64{10}, proc.processed)
}

func TestDispatchRefund_UnboundProcessor(t *testing.T) {
	d := NewDispatcher(time.Second, nopLogger{})

	err := d.DispatchRefund(context.Background(), 10)

	require.Error(t, err)
}
