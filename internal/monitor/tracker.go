package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
)

// KindConfigs maps each job kind to its monitor tuning.
type KindConfigs map[domain.JobKind]Config

// Tracker owns the invariant that at most one job is actively monitored per
// process. Starting a new job abandons the previous monitor before the new
// one begins.
type Tracker struct {
	configs  KindConfigs
	store    domain.GenerationStore
	subs     domain.JobSubscriber
	sessions domain.SessionStore
	logger   zerolog.Logger

	mu     sync.Mutex
	active *Monitor
}

// NewTracker wires a tracker over the shared store and optional push channel.
func NewTracker(configs KindConfigs, store domain.GenerationStore, subs domain.JobSubscriber, sessions domain.SessionStore, logger zerolog.Logger) *Tracker {
	return &Tracker{
		configs:  configs,
		store:    store,
		subs:     subs,
		sessions: sessions,
		logger:   logger,
	}
}

// Start begins monitoring a freshly submitted job, replacing any active one.
func (t *Tracker) Start(ctx context.Context, job Job) (*Monitor, error) {
	cfg := t.configs[job.Kind]

	t.mu.Lock()
	prev := t.active
	m := New(cfg, t.store, t.subs, t.sessions, t.logger)
	t.active = m
	t.mu.Unlock()

	if prev != nil {
		// Local teardown only: the session record now describes the new job.
		prev.Abandon()
	}
	if err := m.Start(ctx, job); err != nil {
		return nil, err
	}
	return m, nil
}

// Resume restores monitoring from a persisted session, preserving the
// original start time so elapsed-based progress carries on where it left off.
func (t *Tracker) Resume(ctx context.Context, sess *domain.ActiveSession) (*Monitor, error) {
	return t.Start(ctx, Job{
		ID:        sess.JobID,
		Kind:      sess.Kind,
		StartedAt: sess.StartedAt,
		BeforeURL: sess.BeforeURL,
	})
}

// Active returns the most recently started monitor, or nil.
func (t *Tracker) Active() *Monitor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Snapshot describes the active monitor for status endpoints.
type Snapshot struct {
	JobID    string           `json:"job_id"`
	Kind     domain.JobKind   `json:"kind"`
	Status   domain.JobStatus `json:"status"`
	Progress Progress         `json:"progress"`
	Outcome  *Outcome         `json:"outcome,omitempty"`
}

// SnapshotAt reports the active monitor's visible state, or false when
// nothing is being monitored.
func (t *Tracker) SnapshotAt(now time.Time) (Snapshot, bool) {
	t.mu.Lock()
	m := t.active
	t.mu.Unlock()
	if m == nil {
		return Snapshot{}, false
	}
	snap := Snapshot{
		JobID:    m.Job().ID,
		Kind:     m.Job().Kind,
		Status:   m.LastStatus(),
		Progress: m.Progress(now),
	}
	if o, ok := m.Outcome(); ok {
		snap.Outcome = &o
	}
	return snap, true
}
