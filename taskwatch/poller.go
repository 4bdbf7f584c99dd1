// Package taskwatch observes long-running server tasks (file processing,
// GDPR masking, archive generation) by polling their status endpoints
// until they finish or fail.
package taskwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bitrise-io/go-utils/v2/log"
)

// DefaultInterval is the delay between two progress queries.
const DefaultInterval = 1000 * time.Millisecond

// ProgressFetcher ...
type ProgressFetcher interface {
	// FetchProgress returns the task's completion percentage (0-100).
	FetchProgress(ctx context.Context, kind Kind, taskID string) (int, error)
}

// PollerConfig holds configuration for a Poller.
type PollerConfig struct {
	// Interval is the delay between two queries. Default: DefaultInterval.
	Interval time.Duration

	// Clock drives the poll schedule. Tests inject a mock clock here to
	// simulate time. Default: the wall clock.
	Clock clock.Clock

	// OnComplete, if set, is called exactly once when a query first reports
	// progress >= 100.
	OnComplete func()
}

// Poller repeatedly queries a task's progress: once immediately on Start,
// then once per interval. Polling stops on completion (progress >= 100),
// on the first query error, or when Stop is called. At most one query is
// in flight at any moment, and a response arriving after Stop or after a
// retarget is discarded instead of being applied.
type Poller struct {
	fetcher    ProgressFetcher
	interval   time.Duration
	clock      clock.Clock
	logger     log.Logger
	onComplete func()

	mu         sync.Mutex
	generation int
	cancel     context.CancelFunc
	done       chan struct{}
	progress   int
	err        error
	completed  bool
	polling    bool
}

// NewPoller creates a new Poller with the given configuration.
func NewPoller(fetcher ProgressFetcher, config PollerConfig, logger log.Logger) *Poller {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Poller{
		fetcher:    fetcher,
		interval:   interval,
		clock:      clk,
		logger:     logger,
		onComplete: config.OnComplete,
	}
}

// Start begins polling the given task. The first query is issued right
// away, not after the first interval. Starting while a cycle is active
// stops the old cycle first, so changing the task ID or kind retargets
// the poller instead of leaving a second cycle behind.
func (p *Poller) Start(taskID string, kind Kind) error {
	if !kind.valid() {
		return fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	p.mu.Lock()
	p.stopLocked()
	generation := p.generation
	p.progress = 0
	p.err = nil
	p.completed = false
	p.polling = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	// The ticker is created before the goroutine starts so that a tick
	// scheduled for the first interval is never missed.
	ticker := p.clock.Ticker(p.interval)

	go p.run(ctx, ticker, generation, done, taskID, kind)
	return nil
}

// Stop ends the current polling cycle. No further query is issued, and a
// query already in flight is discarded when it resolves. Stop is safe to
// call multiple times and after natural completion.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Progress returns the last reported completion percentage (0-100).
func (p *Poller) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Completed reports whether the task reached 100%.
func (p *Poller) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// Err returns the *PollError that ended the cycle, or nil.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Polling reports whether a cycle is currently active.
func (p *Poller) Polling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polling
}

// Done returns a channel that is closed when the current cycle ends,
// whether by completion, error, or Stop. It returns nil when no cycle has
// been started yet.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// stopLocked invalidates the running cycle. The generation bump makes any
// in-flight query resolve into a no-op.
func (p *Poller) stopLocked() {
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	p.polling = false
}

func (p *Poller) run(ctx context.Context, ticker *clock.Ticker, generation int, done chan struct{}, taskID string, kind Kind) {
	defer ticker.Stop()

	if p.poll(ctx, generation, taskID, kind) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.poll(ctx, generation, taskID, kind) {
				return
			}
		}
	}
}

// poll issues one query and applies the result. It returns true when the
// cycle is over. The fetch happens outside the lock; the generation check
// afterwards drops results that belong to a stopped or retargeted cycle.
func (p *Poller) poll(ctx context.Context, generation int, taskID string, kind Kind) bool {
	progress, err := p.fetcher.FetchProgress(ctx, kind, taskID)

	p.mu.Lock()
	if generation != p.generation {
		p.mu.Unlock()
		return true
	}

	if err != nil {
		p.logger.Warnf("Polling %s task %s failed: %s", kind, taskID, err)
		p.err = &PollError{TaskID: taskID, Kind: kind, Err: err}
		p.finishLocked()
		p.mu.Unlock()
		return true
	}

	p.progress = progress
	if progress >= 100 {
		p.completed = true
		p.finishLocked()
		onComplete := p.onComplete
		p.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return true
	}
	p.mu.Unlock()
	return false
}

// finishLocked ends the cycle without invalidating its last result.
func (p *Poller) finishLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	p.polling = false
}
