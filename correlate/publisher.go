package correlate

import (
	"context"
	"sync"
	"time"

	"sentinel/core"

	"go.uber.org/zap"
)

// StatsSource provides the stats snapshot for periodic publishing.
type StatsSource interface {
	Stats() (core.SystemStats, error)
}

// StatsPublisher pushes a stats snapshot to all sinks on a fixed interval.
// A failed read logs and skips the tick; publisher failures are never
// fatal to the process.
type StatsPublisher struct {
	source   StatsSource
	sinks    []Sink
	interval time.Duration
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatsPublisher creates a publisher. interval <= 0 falls back to 30s.
func NewStatsPublisher(source StatsSource, sinks []Sink, interval time.Duration, logger *zap.SugaredLogger) *StatsPublisher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StatsPublisher{
		source:   source,
		sinks:    sinks,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the publishing loop. Idempotent: a second Start while
// running is a no-op.
func (p *StatsPublisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx)
	p.logger.Infow("Stats publisher started", "interval", p.interval)
}

func (p *StatsPublisher) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishOnce()
		}
	}
}

// publishOnce reads the current stats and fans them out. Exposed to tests
// through Tick.
func (p *StatsPublisher) publishOnce() {
	stats, err := p.source.Stats()
	if err != nil {
		p.logger.Warnw("Skipping stats publish, store read failed", "error", err)
		return
	}
	for _, sink := range p.sinks {
		sink.Publish(core.MessageStatsUpdate, stats)
	}
}

// Tick forces an immediate publish outside the timer loop.
func (p *StatsPublisher) Tick() {
	p.publishOnce()
}

// Stop halts the loop and waits for it to exit. Idempotent.
func (p *StatsPublisher) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("Stats publisher stopped")
}
