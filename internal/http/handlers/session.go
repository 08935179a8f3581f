package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/veoreg/infinity-studio/internal/domain"
	"github.com/veoreg/infinity-studio/internal/monitor"
)

// Session reports the in-flight job, preferring the live monitor over the
// persisted file. Progress always derives from the original submission time,
// so a restarted client picks up mid-bar.
func (a *App) Session(w http.ResponseWriter, r *http.Request) {
	if snap, ok := a.Tracker.SnapshotAt(time.Now()); ok {
		a.json(w, http.StatusOK, snap)
		return
	}

	sess, err := a.Sessions.LoadActive()
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			a.error(w, http.StatusNotFound, "not_found", "no active generation")
			return
		}
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, monitor.Snapshot{
		JobID:    sess.JobID,
		Kind:     sess.Kind,
		Status:   domain.JobStatusProcessing,
		Progress: monitor.ProgressAt(sess.Kind, sess.StartedAt, time.Now()),
	})
}
