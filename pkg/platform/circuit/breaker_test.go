package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "donorhub/pkg/platform/audit"
)

type stubPublisher struct {
	err   error
	calls int
}

func (s *stubPublisher) Emit(context.Context, audit.Event) error {
	s.calls++
	return s.err
}

func TestPublisher_InitialState(t *testing.T) {
	p := New("test", &stubPublisher{}, nil)
	assert.Equal(t, "closed", p.State())
}

func TestPublisher_PassesThroughErrorsUntilThreshold(t *testing.T) {
	sink := &stubPublisher{err: errors.New("broker down")}
	p := New("test", sink, nil, WithFailureThreshold(3))

	for range 2 {
		err := p.Emit(context.Background(), audit.Event{Action: "donor_created"})
		require.EqualError(t, err, "broker down")
	}
	assert.Equal(t, "closed", p.State())

	err := p.Emit(context.Background(), audit.Event{Action: "donor_created"})
	require.EqualError(t, err, "broker down")
	assert.Equal(t, "open", p.State())
}

func TestPublisher_OpenCircuitSkipsSink(t *testing.T) {
	sink := &stubPublisher{err: errors.New("broker down")}
	p := New("test", sink, nil, WithFailureThreshold(1), WithOpenTimeout(time.Hour))

	_ = p.Emit(context.Background(), audit.Event{})
	require.Equal(t, 1, sink.calls)

	err := p.Emit(context.Background(), audit.Event{})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 1, sink.calls)
}

func TestPublisher_HalfOpenProbeCloses(t *testing.T) {
	sink := &stubPublisher{err: errors.New("broker down")}
	p := New("test", sink, nil, WithFailureThreshold(1), WithOpenTimeout(10*time.Millisecond))

	_ = p.Emit(context.Background(), audit.Event{})
	require.Equal(t, "open", p.State())

	time.Sleep(20 * time.Millisecond)
	sink.err = nil
	require.NoError(t, p.Emit(context.Background(), audit.Event{}))
	assert.Equal(t, "closed", p.State())
}

func TestPublisher_SuccessResetsConsecutiveFailures(t *testing.T) {
	sink := &stubPublisher{}
	p := New("test", sink, nil, WithFailureThreshold(2))

	sink.err = errors.New("blip")
	_ = p.Emit(context.Background(), audit.Event{})
	sink.err = nil
	require.NoError(t, p.Emit(context.Background(), audit.Event{}))
	sink.err = errors.New("blip")
	_ = p.Emit(context.Background(), audit.Event{})

	assert.Equal(t, "closed", p.State())
}
