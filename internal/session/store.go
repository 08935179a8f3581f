package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/veoreg/infinity-studio/internal/domain"
)

const (
	activeFile  = "active_generation.json"
	guestFile   = "guest_id"
	deletedFile = "deleted_defaults.json"
	lockFile    = "state.lock"
)

// Store persists the active-job tuple and the guest identifier under a local
// state directory, the durable equivalent of the browser's local storage.
// Writes are atomic (temp file + rename) and serialized with an advisory file
// lock so a CLI invocation and a running service cannot interleave.
type Store struct {
	dir  string
	lock *flock.Flock
}

// NewStore initializes the state directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("session: state dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: ensure state dir: %w", err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

// SaveActive records the monitored job so a restart can resume it.
func (s *Store) SaveActive(sess *domain.ActiveSession) error {
	if sess == nil || sess.JobID == "" {
		return errors.New("session: job id is required")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	return s.withLock(func() error {
		return atomicWrite(filepath.Join(s.dir, activeFile), data)
	})
}

// LoadActive returns the persisted tuple, or ErrNoActiveSession.
func (s *Store) LoadActive() (*domain.ActiveSession, error) {
	var sess domain.ActiveSession
	err := s.withLock(func() error {
		data, err := os.ReadFile(filepath.Join(s.dir, activeFile))
		if err != nil {
			if os.IsNotExist(err) {
				return domain.ErrNoActiveSession
			}
			return fmt.Errorf("session: read: %w", err)
		}
		if err := json.Unmarshal(data, &sess); err != nil {
			// A corrupt tuple is unrecoverable; drop it rather than wedging
			// every startup.
			_ = os.Remove(filepath.Join(s.dir, activeFile))
			return domain.ErrNoActiveSession
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sess.JobID == "" {
		return nil, domain.ErrNoActiveSession
	}
	return &sess, nil
}

// ClearActive removes the persisted tuple. Clearing an absent tuple is a
// no-op so every terminal path can call it unconditionally.
func (s *Store) ClearActive() error {
	return s.withLock(func() error {
		err := os.Remove(filepath.Join(s.dir, activeFile))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("session: clear: %w", err)
		}
		return nil
	})
}

// GuestID returns the stable anonymous identifier, creating it on first use.
func (s *Store) GuestID() (string, error) {
	var id string
	err := s.withLock(func() error {
		path := filepath.Join(s.dir, guestFile)
		data, err := os.ReadFile(path)
		if err == nil {
			if parsed, perr := uuid.Parse(string(data)); perr == nil {
				id = parsed.String()
				return nil
			}
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("session: read guest id: %w", err)
		}
		id = uuid.NewString()
		return atomicWrite(path, []byte(id))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// MarkDefaultDeleted records that a built-in showcase asset was removed by the
// user so it stays hidden across restarts.
func (s *Store) MarkDefaultDeleted(assetID string) error {
	return s.withLock(func() error {
		ids, err := s.readDeleted()
		if err != nil {
			return err
		}
		for _, existing := range ids {
			if existing == assetID {
				return nil
			}
		}
		ids = append(ids, assetID)
		data, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("session: encode deleted defaults: %w", err)
		}
		return atomicWrite(filepath.Join(s.dir, deletedFile), data)
	})
}

// DeletedDefaults lists asset ids the user removed from the default showcase.
func (s *Store) DeletedDefaults() ([]string, error) {
	var ids []string
	err := s.withLock(func() error {
		var err error
		ids, err = s.readDeleted()
		return err
	})
	return ids, err
}

func (s *Store) readDeleted() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, deletedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: read deleted defaults: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, nil
	}
	return ids, nil
}

func (s *Store) withLock(fn func() error) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("session: acquire lock: %w", err)
	}
	defer s.lock.Unlock()
	return fn()
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}
