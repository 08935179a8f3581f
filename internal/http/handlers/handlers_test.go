package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
	"github.com/veoreg/infinity-studio/internal/monitor"
	"github.com/veoreg/infinity-studio/internal/submit"
	"github.com/veoreg/infinity-studio/internal/webhook"
)

type memStore struct {
	mu        sync.Mutex
	rows      map[string]domain.GenerationJob
	list      []domain.GenerationJob
	lastLimit int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]domain.GenerationJob)}
}

func (s *memStore) Insert(ctx context.Context, job *domain.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[job.ID] = *job
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (s *memStore) Latest(ctx context.Context) (*domain.GenerationJob, error) {
	return nil, domain.ErrNotFound
}

func (s *memStore) ListCompleted(ctx context.Context, owner domain.Owner, limit int) ([]domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	return s.list, nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) CountSince(ctx context.Context, owner domain.Owner, cutoff time.Time) (int, error) {
	return 0, nil
}

type memBalances struct{ user *domain.User }

func (b *memBalances) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if b.user == nil {
		return nil, domain.ErrNotFound
	}
	return b.user, nil
}

func (b *memBalances) DeductUnit(ctx context.Context, userID string) (domain.BalanceUnit, error) {
	return domain.BalanceUnitCredit, nil
}

type memSessions struct {
	mu    sync.Mutex
	saved *domain.ActiveSession
}

func (s *memSessions) SaveActive(sess *domain.ActiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = sess
	return nil
}

func (s *memSessions) LoadActive() (*domain.ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return nil, domain.ErrNoActiveSession
	}
	return s.saved, nil
}

func (s *memSessions) ClearActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = nil
	return nil
}

func (s *memSessions) GuestID() (string, error) { return "guest-1", nil }

type testApp struct {
	app      *App
	store    *memStore
	sessions *memSessions
	balances *memBalances
	router   chi.Router
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hookSrv.Close)

	store := newMemStore()
	sessions := &memSessions{}
	balances := &memBalances{}
	hooks := webhook.New(webhook.Endpoints{
		Avatar: hookSrv.URL,
		Video:  hookSrv.URL,
		Edit:   hookSrv.URL,
		Cancel: hookSrv.URL,
	}, time.Second, zerolog.Nop())

	idle := monitor.Config{PollInterval: time.Hour, DeepScanInterval: time.Hour, Timeout: time.Hour}
	tracker := monitor.NewTracker(monitor.KindConfigs{
		domain.JobKindAvatar: idle,
		domain.JobKindVideo:  idle,
		domain.JobKindEdit:   idle,
	}, store, nil, sessions, zerolog.Nop())

	app := &App{
		Store:     store,
		Balances:  balances,
		Sessions:  sessions,
		Submitter: submit.New(store, balances, sessions, hooks, tracker, 5, zerolog.Nop()),
		Tracker:   tracker,
		Logger:    zerolog.Nop(),
	}

	r := chi.NewRouter()
	r.Get("/v1/session", app.Session)
	r.Post("/v1/uploads", app.Upload)
	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/", app.Generate)
		r.Get("/", app.GenerationsList)
		r.Get("/{id}", app.GenerationStatus)
		r.Delete("/{id}", app.GenerationDelete)
		r.Post("/{id}/cancel", app.GenerationCancel)
	})

	ta := &testApp{app: app, store: store, sessions: sessions, balances: balances, router: r}
	t.Cleanup(func() {
		if m := tracker.Active(); m != nil {
			m.Cancel()
		}
	})
	return ta
}

func (ta *testApp) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return v
}

func avatarBody() map[string]any {
	return map[string]any{
		"kind": "avatar",
		"avatar": map[string]any{
			"gender":         "female",
			"age":            30,
			"nationality":    "german",
			"clothing":       "formal",
			"role":           "ceo",
			"art_style":      "photoreal",
			"face_image_url": "https://x/face.png",
			"seed":           -1,
			"safe_mode":      true,
		},
	}
}

func TestGenerateAvatarAccepted(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/v1/generations", avatarBody(), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if id, ok := resp["id"].(string); !ok || id == "" {
		t.Fatalf("resp = %v", resp)
	}
	if resp["status"] != "processing" {
		t.Fatalf("resp = %v", resp)
	}
}

func TestGenerateValidationError(t *testing.T) {
	ta := newTestApp(t)

	body := avatarBody()
	body["avatar"].(map[string]any)["face_image_url"] = ""
	rec := ta.do(t, http.MethodPost, "/v1/generations", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGeneratePremiumGuest(t *testing.T) {
	ta := newTestApp(t)

	body := avatarBody()
	body["avatar"].(map[string]any)["safe_mode"] = false
	rec := ta.do(t, http.MethodPost, "/v1/generations", body, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGenerateUnknownKind(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/v1/generations", map[string]any{"kind": "hologram"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGenerationStatusNormalizes(t *testing.T) {
	ta := newTestApp(t)
	ta.store.rows["g1"] = domain.GenerationJob{
		ID:        "g1",
		Kind:      domain.JobKindAvatar,
		RawStatus: "Success",
		ResultURL: "https://x/out.png",
		CreatedAt: time.Now(),
	}

	rec := ta.do(t, http.MethodGet, "/v1/generations/g1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["status"] != "succeeded" {
		t.Fatalf("status = %v", resp["status"])
	}
	if resp["result_url"] != "https://x/out.png" {
		t.Fatalf("result_url = %v", resp["result_url"])
	}
}

func TestGenerationStatusNotFound(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/v1/generations/nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestListLimitValidation(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/v1/generations?limit=999", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	rec = ta.do(t, http.MethodGet, "/v1/generations?limit=10", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ta.store.lastLimit != 10 {
		t.Fatalf("limit = %d, want 10", ta.store.lastLimit)
	}
}

func TestListDefaultLimit(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/v1/generations", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ta.store.lastLimit != 20 {
		t.Fatalf("default limit = %d, want 20", ta.store.lastLimit)
	}
}

func TestDeleteOwnership(t *testing.T) {
	ta := newTestApp(t)
	ta.store.rows["mine"] = domain.GenerationJob{
		ID:       "mine",
		Metadata: domain.JobMetadata{GuestID: "guest-1"},
	}
	ta.store.rows["theirs"] = domain.GenerationJob{
		ID:     "theirs",
		UserID: "someone-else",
	}

	rec := ta.do(t, http.MethodDelete, "/v1/generations/theirs", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign row: status %d", rec.Code)
	}

	rec = ta.do(t, http.MethodDelete, "/v1/generations/mine", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own row: status %d", rec.Code)
	}
	if _, ok := ta.store.rows["mine"]; ok {
		t.Fatal("row not deleted")
	}
}

func TestCancelEndpoint(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/v1/generations", avatarBody(), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit: status %d", rec.Code)
	}
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = ta.do(t, http.MethodPost, "/v1/generations/"+id+"/cancel", nil, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("cancel: status %d", rec.Code)
	}

	m := ta.app.Tracker.Active()
	if m == nil {
		t.Fatal("no monitor")
	}
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not resolve the monitor")
	}
}

func TestSessionActiveMonitor(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/v1/generations", avatarBody(), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit: status %d", rec.Code)
	}
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = ta.do(t, http.MethodGet, "/v1/session", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["job_id"] != id {
		t.Fatalf("job_id = %v", resp["job_id"])
	}
}

func TestSessionFromPersistedFile(t *testing.T) {
	ta := newTestApp(t)
	ta.sessions.saved = &domain.ActiveSession{
		JobID:     "g1",
		Kind:      domain.JobKindVideo,
		StartedAt: time.Now().Add(-3 * time.Minute),
	}

	rec := ta.do(t, http.MethodGet, "/v1/session", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	progress := resp["progress"].(map[string]any)
	// Half of a 6-minute render; resume must not restart the bar.
	if pct := progress["percent"].(float64); pct < 45 || pct > 55 {
		t.Fatalf("percent = %v", pct)
	}
}

func TestSessionEmpty(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/v1/session", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestUploadUnconfigured(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodPost, "/v1/uploads", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rec.Code)
	}
}
