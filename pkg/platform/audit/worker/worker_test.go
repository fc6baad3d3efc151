package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/audit/store/memory"
)

type failingSink struct{}

func (failingSink) Emit(context.Context, audit.Event) error { return errors.New("boom") }

type countingMetrics struct {
	mu    sync.Mutex
	sinks []string
}

func (m *countingMetrics) IncrementAuditPublishFailure(sink string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

func (m *countingMetrics) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sinks...)
}

func TestWorkerDeliversQueuedEvents(t *testing.T) {
	sink := memory.NewInMemoryStore()
	w := NewWorker(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, w.Emit(ctx, audit.Event{Action: audit.EventDonorCreated}))
	require.NoError(t, w.Emit(ctx, audit.Event{Action: audit.EventDonorDeleted}))

	require.Eventually(t, func() bool {
		return len(sink.Actions()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []audit.AuditEvent{audit.EventDonorCreated, audit.EventDonorDeleted}, sink.Actions())
}

func TestWorkerDrainsOnShutdown(t *testing.T) {
	sink := memory.NewInMemoryStore()
	w := NewWorker(sink, WithBuffer(4))

	for range 3 {
		require.NoError(t, w.Emit(context.Background(), audit.Event{Action: audit.EventLoginSucceeded}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	assert.Len(t, sink.Actions(), 3)
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	m := &countingMetrics{}
	w := NewWorker(memory.NewInMemoryStore(), WithBuffer(1), WithMetrics(m))

	require.NoError(t, w.Emit(context.Background(), audit.Event{Action: audit.EventLoginFailed}))
	require.NoError(t, w.Emit(context.Background(), audit.Event{Action: audit.EventLoginFailed}))

	assert.Equal(t, []string{"queue"}, m.snapshot())
}

func TestWorkerRecordsSinkFailures(t *testing.T) {
	m := &countingMetrics{}
	w := NewWorker(failingSink{}, WithMetrics(m))
	require.NoError(t, w.Emit(context.Background(), audit.Event{Action: audit.EventUserDeleted}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	assert.Equal(t, []string{"sink"}, m.snapshot())
}
