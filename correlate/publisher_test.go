package correlate

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStatsSource struct {
	stats core.SystemStats
	err   error
}

func (s *stubStatsSource) Stats() (core.SystemStats, error) {
	return s.stats, s.err
}

func TestStatsPublisher_TickPublishesSnapshot(t *testing.T) {
	source := &stubStatsSource{stats: core.SystemStats{HoneypotHits: 7, ActiveThreats: 2}}
	sink := &recordingSink{}
	p := NewStatsPublisher(source, []Sink{sink}, time.Hour, zap.NewNop().Sugar())

	p.Tick()
	p.Tick()

	messages := sink.all()
	require.Len(t, messages, 2)
	for _, m := range messages {
		assert.Equal(t, core.MessageStatsUpdate, m.Type)
		stats := m.Payload.(core.SystemStats)
		assert.Equal(t, int64(7), stats.HoneypotHits)
		assert.Equal(t, int64(2), stats.ActiveThreats)
	}
}

func TestStatsPublisher_SourceErrorSkipsTick(t *testing.T) {
	source := &stubStatsSource{err: errors.New("store unavailable")}
	sink := &recordingSink{}
	p := NewStatsPublisher(source, []Sink{sink}, time.Hour, zap.NewNop().Sugar())

	p.Tick()
	assert.Empty(t, sink.all())

	// Recovery on the next tick once the source is healthy again.
	source.err = nil
	p.Tick()
	assert.Len(t, sink.all(), 1)
}

func TestStatsPublisher_PeriodicLoop(t *testing.T) {
	source := &stubStatsSource{stats: core.SystemStats{PhishingBlocked: 1}}
	sink := &recordingSink{}
	p := NewStatsPublisher(source, []Sink{sink}, 10*time.Millisecond, zap.NewNop().Sugar())

	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool {
		return len(sink.all()) >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStatsPublisher_StartStopIdempotent(t *testing.T) {
	source := &stubStatsSource{}
	p := NewStatsPublisher(source, nil, time.Hour, zap.NewNop().Sugar())

	p.Start(context.Background())
	p.Start(context.Background()) // no-op while running
	p.Stop()
	p.Stop() // no-op once stopped
}

func TestStatsPublisher_DefaultInterval(t *testing.T) {
	p := NewStatsPublisher(&stubStatsSource{}, nil, 0, nil)
	assert.Equal(t, 30*time.Second, p.interval)
}
