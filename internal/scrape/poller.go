package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/sched"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval       = 2 * time.Second
	DefaultIndicatorReset = 3 * time.Second
)

var (
	doneRefetches    = []time.Duration{0, time.Second, 3 * time.Second}
	stoppedRefetches = []time.Duration{2 * time.Second}
)

// ErrPollTimeout is reported when a job is still running after MaxDuration.
var ErrPollTimeout = errors.New("scraper status polling timed out")

// StatusClient is the status endpoint.
type StatusClient interface {
	ScraperStatus(ctx context.Context) (models.ScraperStatus, error)
}

// Callbacks receive the poll outcomes. Any of them may be nil.
type Callbacks struct {
	OnRunning   func(progress *float64, message string)
	OnDone      func()
	OnStopped   func()
	OnError     func(message string)
	OnIndicator func(Indicator)
	// Refetch reloads the listings after the job finishes.
	Refetch func()
}

type Options struct {
	Client         StatusClient
	Clock          sched.Clock
	Logger         zerolog.Logger
	Interval       time.Duration
	IndicatorReset time.Duration
	// MaxDuration bounds a run; zero polls until a terminal status.
	MaxDuration time.Duration
}

type Poller struct {
	client         StatusClient
	clock          sched.Clock
	logger         zerolog.Logger
	interval       time.Duration
	indicatorReset time.Duration
	maxDuration    time.Duration
}

func NewPoller(opts Options) *Poller {
	clock := opts.Clock
	if clock == nil {
		clock = sched.Real()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	reset := opts.IndicatorReset
	if reset <= 0 {
		reset = DefaultIndicatorReset
	}
	return &Poller{
		client:         opts.Client,
		clock:          clock,
		logger:         opts.Logger,
		interval:       interval,
		indicatorReset: reset,
		maxDuration:    opts.MaxDuration,
	}
}

// Outcome is the terminal result of a run.
type Outcome struct {
	State   models.ScraperState
	Message string
	Err     error
}

// Run is one polling loop, from the first status request to a terminal state.
type Run struct {
	poller  *Poller
	cb      Callbacks
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	mu        sync.Mutex
	timer     sched.Timer
	followups []sched.Timer
	pending   int
	finished  bool
	polls     int
	outcome   Outcome
	done      chan struct{}
	settled   chan struct{}
}

// Start polls immediately and then every Interval until a terminal state.
func (p *Poller) Start(ctx context.Context, cb Callbacks) *Run {
	ctx, cancel := context.WithCancel(ctx)
	run := &Run{
		poller:  p,
		cb:      cb,
		ctx:     ctx,
		cancel:  cancel,
		started: p.clock.Now(),
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}
	run.mu.Lock()
	run.timer = p.clock.AfterFunc(0, run.poll)
	run.mu.Unlock()
	return run
}

// Done is closed when the run reaches a terminal state or is stopped.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Settled is closed after Done once every follow-up refetch and the indicator reset have fired.
func (r *Run) Settled() <-chan struct{} {
	return r.settled
}

func (r *Run) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Polls reports how many status requests were issued.
func (r *Run) Polls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}

// Stop abandons the run without invoking callbacks.
func (r *Run) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel()
	if r.timer != nil {
		r.timer.Stop()
	}
	for _, t := range r.followups {
		t.Stop()
	}
	if !r.finished {
		r.finished = true
		r.outcome = Outcome{Err: context.Canceled, Message: "polling stopped"}
		close(r.done)
	}
	select {
	case <-r.settled:
	default:
		close(r.settled)
	}
}

func (r *Run) poll() {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.polls++
	r.mu.Unlock()

	status, err := r.poller.client.ScraperStatus(r.ctx)

	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	p := r.poller
	r.indicator(IndicatorFor(status, err))
	if err != nil {
		message := "Network error: " + api.Message(err)
		p.logger.Warn().Err(err).Msg("scraper status poll failed")
		if r.finish(Outcome{State: models.StateError, Message: message, Err: err}, nil) && r.cb.OnError != nil {
			r.cb.OnError(message)
		}
		return
	}

	p.logger.Debug().Str("status", string(status.Status)).Msg("scraper status")
	switch status.Status {
	case models.StateStarting, models.StateRunning:
		if p.maxDuration > 0 && p.clock.Now().Sub(r.started) >= p.maxDuration {
			message := fmt.Sprintf("Scraper still %s after %s", status.Status, p.maxDuration)
			r.indicator(IndicatorFor(models.ScraperStatus{Status: models.StateError, Message: message}, nil))
			if r.finish(Outcome{State: models.StateError, Message: message, Err: ErrPollTimeout}, nil) && r.cb.OnError != nil {
				r.cb.OnError(message)
			}
			return
		}
		message := RunningMessage(status)
		if r.cb.OnRunning != nil {
			r.cb.OnRunning(status.ProgressPercent, message)
		}
		r.mu.Lock()
		if !r.finished {
			r.timer = p.clock.AfterFunc(p.interval, r.poll)
		}
		r.mu.Unlock()
	case models.StateCompleted, models.StateIdle:
		if !r.finish(Outcome{State: status.Status, Message: firstNonEmpty(status.DisplayMessage, status.Message)}, doneRefetches) {
			return
		}
		if r.cb.OnDone != nil {
			r.cb.OnDone()
		}
		r.refetchNow(doneRefetches)
	case models.StateStopped:
		if r.finish(Outcome{State: status.Status, Message: firstNonEmpty(status.DisplayMessage, status.Message)}, stoppedRefetches) && r.cb.OnStopped != nil {
			r.cb.OnStopped()
		}
	default:
		message := ErrorMessage(status)
		outcome := Outcome{State: models.StateError, Message: message}
		if err := api.CheckState(status.Status); err != nil {
			outcome.Err = err
		}
		if r.finish(outcome, nil) && r.cb.OnError != nil {
			r.cb.OnError(message)
		}
	}
}

// finish records the outcome and schedules the indicator reset plus the
// delayed refetches. Zero delays are left to refetchNow. It reports false
// when the run already ended, in which case the caller must stay silent.
func (r *Run) finish(outcome Outcome, refetches []time.Duration) bool {
	p := r.poller
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return false
	}
	r.finished = true
	r.outcome = outcome
	r.cancel()
	close(r.done)

	r.schedule(p.indicatorReset, func() { r.indicator(IdleIndicator()) })
	for _, delay := range refetches {
		if delay > 0 {
			r.schedule(delay, r.refetch)
		}
	}
	return true
}

func (r *Run) refetchNow(refetches []time.Duration) {
	for _, delay := range refetches {
		if delay == 0 {
			r.refetch()
		}
	}
}

func (r *Run) schedule(delay time.Duration, fn func()) {
	r.pending++
	r.followups = append(r.followups, r.poller.clock.AfterFunc(delay, func() {
		fn()
		r.mu.Lock()
		defer r.mu.Unlock()
		r.pending--
		if r.pending == 0 {
			select {
			case <-r.settled:
			default:
				close(r.settled)
			}
		}
	}))
}

func (r *Run) refetch() {
	if r.cb.Refetch != nil {
		r.cb.Refetch()
	}
}

func (r *Run) indicator(ind Indicator) {
	if r.cb.OnIndicator != nil {
		r.cb.OnIndicator(ind)
	}
}
