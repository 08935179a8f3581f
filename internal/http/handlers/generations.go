package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veoreg/infinity-studio/internal/domain"
	"github.com/veoreg/infinity-studio/internal/monitor"
	"github.com/veoreg/infinity-studio/internal/submit"
)

type generateRequest struct {
	Kind   domain.JobKind        `json:"kind"`
	Avatar *submit.AvatarRequest `json:"avatar,omitempty"`
	Video  *submit.VideoRequest  `json:"video,omitempty"`
	Edit   *submit.EditRequest   `json:"edit,omitempty"`
}

type generateResponse struct {
	ID       string           `json:"id"`
	Status   domain.JobStatus `json:"status"`
	Unit     string           `json:"balance_unit,omitempty"`
	Warning  string           `json:"warning,omitempty"`
	Progress monitor.Progress `json:"progress"`
}

// Generate accepts a submission and answers as soon as the job is live; the
// result is observed via /v1/session or the status endpoint.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	userID := a.currentUserID(r)

	var (
		res *submit.Result
		err error
	)
	switch req.Kind {
	case domain.JobKindAvatar:
		if req.Avatar == nil {
			a.error(w, http.StatusBadRequest, "bad_request", "avatar parameters required")
			return
		}
		res, err = a.Submitter.Avatar(r.Context(), userID, *req.Avatar)
	case domain.JobKindVideo:
		if req.Video == nil {
			a.error(w, http.StatusBadRequest, "bad_request", "video parameters required")
			return
		}
		res, err = a.Submitter.Video(r.Context(), userID, *req.Video)
	case domain.JobKindEdit:
		if req.Edit == nil {
			a.error(w, http.StatusBadRequest, "bad_request", "edit parameters required")
			return
		}
		res, err = a.Submitter.Edit(r.Context(), userID, *req.Edit)
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unknown generation kind")
		return
	}
	if err != nil {
		a.domainError(w, err)
		return
	}

	resp := generateResponse{
		ID:       res.Job.ID,
		Status:   res.Job.Status(),
		Progress: monitor.ProgressAt(res.Job.Kind, res.Job.CreatedAt, time.Now()),
	}
	if res.Unit != domain.BalanceUnitNone {
		resp.Unit = string(res.Unit)
	}
	if res.Warning != nil {
		resp.Warning = res.Warning.Error()
	}
	a.json(w, http.StatusAccepted, resp)
}

type jobResponse struct {
	ID        string           `json:"id"`
	Kind      domain.JobKind   `json:"kind"`
	Status    domain.JobStatus `json:"status"`
	Prompt    string           `json:"prompt,omitempty"`
	ResultURL string           `json:"result_url,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func toJobResponse(job *domain.GenerationJob) jobResponse {
	return jobResponse{
		ID:        job.ID,
		Kind:      job.Kind,
		Status:    job.Status(),
		Prompt:    job.Prompt,
		ResultURL: job.FinalURL(true),
		Error:     job.ErrorMessage,
		CreatedAt: job.CreatedAt,
	}
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	job, err := a.Store.GetByID(r.Context(), id)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

func (a *App) GenerationsList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be 1-200")
			return
		}
		limit = parsed
	}

	jobs, err := a.Store.ListCompleted(r.Context(), a.currentOwner(r), limit)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GenerationDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	job, err := a.Store.GetByID(r.Context(), id)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !a.ownsJob(r, job) {
		a.domainError(w, domain.ErrUnauthorized)
		return
	}
	if err := a.Store.Delete(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *App) GenerationCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	// Cancellation has to work even when the row is already gone, so
	// ownership is checked only when the row still exists.
	if job, err := a.Store.GetByID(r.Context(), id); err == nil && !a.ownsJob(r, job) {
		a.domainError(w, domain.ErrUnauthorized)
		return
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.domainError(w, err)
		return
	}
	a.Submitter.Cancel(id)
	a.json(w, http.StatusAccepted, map[string]string{"status": "canceling"})
}

// ownsJob checks that the caller created the row. Rows without any owner
// (legacy showcase entries) are deletable by anyone who can see them.
func (a *App) ownsJob(r *http.Request, job *domain.GenerationJob) bool {
	owner := a.currentOwner(r)
	if job.UserID != "" {
		return job.UserID == owner.UserID
	}
	if job.Metadata.GuestID != "" {
		return job.Metadata.GuestID == owner.GuestID
	}
	return true
}
