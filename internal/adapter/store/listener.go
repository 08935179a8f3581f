package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
)

const notifyChannel = "generations_update"

// Listener implements domain.JobSubscriber over Postgres LISTEN/NOTIFY. A
// database trigger on the generations table emits the updated row as JSON on
// the generations_update channel; the listener fans payloads out to per-job
// subscribers. Delivery is best effort: notifications can be dropped across
// reconnects, which is acceptable because the monitor's polling strategy
// remains authoritative.
type Listener struct {
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[string][]chan domain.GenerationJob
	pl   *pq.Listener
	done chan struct{}
}

// NewListener connects to the database and starts listening. minReconnect and
// maxReconnect bound lib/pq's backoff when the connection drops.
func NewListener(dsn string, logger zerolog.Logger) (*Listener, error) {
	l := &Listener{
		logger: logger,
		subs:   make(map[string][]chan domain.GenerationJob),
		done:   make(chan struct{}),
	}
	l.pl = pq.NewListener(dsn, time.Second, 30*time.Second, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn().Err(err).Int("event", int(ev)).Msg("listener: connection event")
		}
	})
	if err := l.pl.Listen(notifyChannel); err != nil {
		_ = l.pl.Close()
		return nil, err
	}
	go l.dispatch()
	return l, nil
}

// notifyPayload mirrors the row JSON produced by the notify trigger.
type notifyPayload struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Prompt       string `json:"prompt"`
	ImageURL     string `json:"image_url"`
	ResultURL    string `json:"result_url"`
	VideoURL     string `json:"video_url"`
	URL          string `json:"url"`
	ErrorMessage string `json:"error_message"`
	CreatedAt    string `json:"created_at"`
}

func (l *Listener) dispatch() {
	for {
		select {
		case <-l.done:
			return
		case n := <-l.pl.Notify:
			if n == nil {
				// nil signals a reconnect; subscribers keep polling meanwhile.
				continue
			}
			var payload notifyPayload
			if err := json.Unmarshal([]byte(n.Extra), &payload); err != nil {
				l.logger.Warn().Err(err).Msg("listener: undecodable notification")
				continue
			}
			job := domain.GenerationJob{
				ID:           payload.ID,
				UserID:       payload.UserID,
				Kind:         domain.JobKind(payload.Type),
				RawStatus:    payload.Status,
				Prompt:       payload.Prompt,
				ImageURL:     payload.ImageURL,
				ResultURL:    payload.ResultURL,
				VideoURL:     payload.VideoURL,
				PlainURL:     payload.URL,
				ErrorMessage: payload.ErrorMessage,
			}
			if t, err := time.Parse(time.RFC3339Nano, payload.CreatedAt); err == nil {
				job.CreatedAt = t
			}
			l.deliver(job)
		}
	}
}

func (l *Listener) deliver(job domain.GenerationJob) {
	// Sends stay under the lock so an unsubscribe cannot close a channel
	// mid-send. They never block: each channel is buffered and drops are fine,
	// the poll loop catches the state anyway.
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs[job.ID] {
		select {
		case ch <- job:
		default:
		}
	}
}

// Subscribe registers interest in updates for one job id.
func (l *Listener) Subscribe(ctx context.Context, jobID string) (<-chan domain.GenerationJob, func(), error) {
	ch := make(chan domain.GenerationJob, 4)
	l.mu.Lock()
	l.subs[jobID] = append(l.subs[jobID], ch)
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			subs := l.subs[jobID]
			for i, c := range subs {
				if c == ch {
					l.subs[jobID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(l.subs[jobID]) == 0 {
				delete(l.subs, jobID)
			}
			l.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-l.done:
			cancel()
		}
	}()

	return ch, cancel, nil
}

// Close stops dispatching and tears down the database listener.
func (l *Listener) Close() error {
	close(l.done)
	return l.pl.Close()
}
