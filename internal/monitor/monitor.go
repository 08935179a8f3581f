package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
)

// Config tunes the observation strategies for one job kind.
type Config struct {
	PollInterval     time.Duration
	DeepScanInterval time.Duration
	ScanSkew         time.Duration
	Timeout          time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.DeepScanInterval <= 0 {
		c.DeepScanInterval = 5 * time.Second
	}
	if c.ScanSkew < 0 {
		c.ScanSkew = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	return c
}

// Job identifies what the monitor observes.
type Job struct {
	ID        string
	Kind      domain.JobKind
	StartedAt time.Time
	// BeforeURL is the edit job's source image; a deep-scan candidate
	// carrying the same URL is the unmodified input, not a result.
	BeforeURL string
}

// Monitor drives the generation lifecycle state machine for a single job:
// idle, monitoring, then exactly one of succeeded, failed, canceled, or
// timed out. Three observation strategies run concurrently — point polling,
// push notifications, and the deep-scan heuristic — and race into a single
// resolve entry point; the first caller wins and triggers teardown of the
// rest. A monitor cannot be restarted: begin a new job with a new Monitor.
type Monitor struct {
	cfg      Config
	store    domain.GenerationStore
	subs     domain.JobSubscriber
	sessions domain.SessionStore
	logger   zerolog.Logger

	job Job

	mu         sync.Mutex
	started    bool
	outcome    *Outcome
	lastStatus domain.JobStatus

	done    chan struct{}
	stopRun context.CancelFunc
}

// New constructs a monitor. subs and sessions may be nil: push notification
// is an optimization, and callers without durable state skip session
// clearing.
func New(cfg Config, store domain.GenerationStore, subs domain.JobSubscriber, sessions domain.SessionStore, logger zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg.withDefaults(),
		store:    store,
		subs:     subs,
		sessions: sessions,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start enters the monitoring state for the job. It returns immediately; the
// caller observes completion through Done and Outcome. A cancellation that
// lands before Start wins: the monitor stays resolved and never observes.
func (m *Monitor) Start(ctx context.Context, job Job) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		cancel()
		return errors.New("monitor: already started")
	}
	m.started = true
	m.job = job
	m.lastStatus = domain.JobStatusProcessing
	m.stopRun = cancel
	resolved := m.outcome != nil
	m.mu.Unlock()

	if resolved {
		cancel()
		return nil
	}
	go m.run(runCtx)
	return nil
}

// Done is closed once a terminal outcome has been applied.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Outcome returns the applied outcome, if any.
func (m *Monitor) Outcome() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil {
		return Outcome{}, false
	}
	return *m.outcome, true
}

// Job returns what is being monitored.
func (m *Monitor) Job() Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job
}

// Progress reports the elapsed-time-driven progress simulation.
func (m *Monitor) Progress(now time.Time) Progress {
	job := m.Job()
	return ProgressAt(job.Kind, job.StartedAt, now)
}

// LastStatus returns the most recent normalized status observed in the store.
func (m *Monitor) LastStatus() domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStatus
}

// Cancel applies the canceled outcome. Cancellation always wins over any
// resolution that has not yet been applied, and like every terminal path it
// tears down all observation channels and clears the persisted session.
func (m *Monitor) Cancel() {
	m.resolve(Outcome{State: StateCanceled, Message: "generation canceled by user"}, true)
}

// Abandon tears the monitor down without touching the persisted session. The
// tracker uses it when a new job replaces this one: the session record
// already belongs to the newcomer.
func (m *Monitor) Abandon() {
	m.resolve(Outcome{State: StateCanceled, Message: "superseded by a new generation"}, false)
}

// resolve applies a terminal outcome exactly once. Later callers are no-ops,
// which is what makes near-simultaneous detections by different strategies
// safe.
func (m *Monitor) resolve(o Outcome, clearSession bool) bool {
	m.mu.Lock()
	if m.outcome != nil {
		m.mu.Unlock()
		return false
	}
	m.outcome = &o
	stop := m.stopRun
	jobID := m.job.ID
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	if clearSession && m.sessions != nil {
		if err := m.sessions.ClearActive(); err != nil {
			m.logger.Warn().Err(err).Msg("monitor: failed to clear session state")
		}
	}
	m.logger.Info().
		Str("job_id", jobID).
		Str("state", string(o.State)).
		Str("via", string(o.Via)).
		Msg("monitor: resolved")
	close(m.done)
	return true
}

func (m *Monitor) run(ctx context.Context) {
	poll := time.NewTicker(m.cfg.PollInterval)
	defer poll.Stop()
	scan := time.NewTicker(m.cfg.DeepScanInterval)
	defer scan.Stop()
	deadline := time.NewTimer(m.cfg.Timeout)
	defer deadline.Stop()

	var updates <-chan domain.GenerationJob
	if m.subs != nil {
		ch, unsub, err := m.subs.Subscribe(ctx, m.job.ID)
		if err != nil {
			// Push is an optimization; polling carries on without it.
			m.logger.Warn().Err(err).Str("job_id", m.job.ID).Msg("monitor: push subscription unavailable")
		} else {
			updates = ch
			defer unsub()
		}
	}

	matcher := CandidateMatcher{
		JobID:      m.job.ID,
		NotBefore:  m.job.StartedAt,
		Skew:       m.cfg.ScanSkew,
		ExcludeURL: m.job.BeforeURL,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			m.resolve(Outcome{
				State:   StateTimedOut,
				Message: "still rendering; check your history in a little while",
			}, true)
			return
		case <-poll.C:
			if m.checkOwnRow(ctx) {
				return
			}
		case <-scan.C:
			if m.deepScan(ctx, matcher) {
				return
			}
		case row, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if m.applyUpdate(&row, StrategyPush) {
				return
			}
		}
	}
}

// checkOwnRow is the polling strategy: a point lookup of the job's own row.
func (m *Monitor) checkOwnRow(ctx context.Context) bool {
	row, err := m.store.GetByID(ctx, m.job.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Row deleted out from under us; stop observing.
			return m.resolve(Outcome{
				State:   StateFailed,
				Message: "generation record no longer exists",
				Via:     StrategyPoll,
			}, true)
		}
		if ctx.Err() == nil {
			m.logger.Warn().Err(err).Str("job_id", m.job.ID).Msg("monitor: poll query failed")
		}
		return false
	}
	return m.applyUpdate(row, StrategyPoll)
}

// applyUpdate folds a fresh view of the job's own row into the state machine.
func (m *Monitor) applyUpdate(row *domain.GenerationJob, via Strategy) bool {
	status := row.Status()
	m.mu.Lock()
	if status != domain.JobStatusUnknown {
		m.lastStatus = status
	}
	m.mu.Unlock()

	switch status {
	case domain.JobStatusSucceeded:
		url := row.FinalURL(true)
		if url == "" {
			// Completed without a result column yet; let the next tick or the
			// deep scan find the URL.
			return false
		}
		return m.resolve(Outcome{State: StateSucceeded, URL: url, Via: via}, true)
	case domain.JobStatusFailed:
		msg := row.ErrorMessage
		if msg == "" {
			msg = "generation failed on server"
		}
		return m.resolve(Outcome{State: StateFailed, Message: msg, Via: via}, true)
	case domain.JobStatusCanceled:
		return m.resolve(Outcome{State: StateCanceled, Message: "generation canceled", Via: via}, true)
	}
	return false
}

// deepScan is the heuristic fallback: inspect the newest row in the shared
// store and resolve on it when it plausibly belongs to this job.
func (m *Monitor) deepScan(ctx context.Context, matcher CandidateMatcher) bool {
	row, err := m.store.Latest(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
			m.logger.Warn().Err(err).Str("job_id", m.job.ID).Msg("monitor: deep scan query failed")
		}
		return false
	}
	url, ok := matcher.Match(row)
	if !ok {
		return false
	}
	if row.ID != m.job.ID {
		m.logger.Info().
			Str("job_id", m.job.ID).
			Str("candidate_id", row.ID).
			Msg("monitor: deep scan matched a different row")
	}
	return m.resolve(Outcome{State: StateSucceeded, URL: url, Via: StrategyDeepScan}, true)
}
