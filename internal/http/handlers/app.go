package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
	"github.com/veoreg/infinity-studio/internal/monitor"
	"github.com/veoreg/infinity-studio/internal/submit"
	"github.com/veoreg/infinity-studio/internal/upload"
)

// App bundles the handler dependencies.
type App struct {
	Store     domain.GenerationStore
	Balances  domain.BalanceStore
	Sessions  domain.SessionStore
	Submitter *submit.Submitter
	Tracker   *monitor.Tracker
	Uploads   *upload.Client
	Logger    zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": slug, "message": message},
	})
}

// domainError maps sentinel errors to HTTP responses; anything unrecognized
// becomes a 500 with the detail kept out of the response body.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "not allowed")
	case errors.Is(err, domain.ErrPremiumRequired):
		a.error(w, http.StatusForbidden, "premium_required", "sign in to use premium options")
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusTooManyRequests, "quota_exceeded", "daily generation limit reached")
	case errors.Is(err, domain.ErrInsufficientBalance):
		a.error(w, http.StatusPaymentRequired, "insufficient_balance", "no credits or coins left")
	case errors.Is(err, domain.ErrSubmissionCanceled):
		a.error(w, http.StatusConflict, "canceled", "submission canceled")
	default:
		a.Logger.Error().Err(err).Msg("handler: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// currentUserID extracts the authenticated user, if any. Authentication
// itself happens upstream; an empty id means a guest.
func (a *App) currentUserID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// currentOwner widens the identity to include the process guest id, used for
// scoping history queries.
func (a *App) currentOwner(r *http.Request) domain.Owner {
	owner := domain.Owner{UserID: a.currentUserID(r)}
	if owner.UserID == "" {
		if guestID, err := a.Sessions.GuestID(); err == nil {
			owner.GuestID = guestID
		}
	}
	return owner
}
