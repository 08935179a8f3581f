package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Endpoints{
		Avatar: srv.URL + "/avatar",
		Video:  srv.URL + "/video",
		Edit:   srv.URL + "/edit",
		Cancel: srv.URL + "/cancel",
	}, timeout, zerolog.Nop())
	return c, srv
}

func TestTriggerSuccess(t *testing.T) {
	var got AvatarPayload
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/avatar" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}, time.Second)

	res, err := c.Trigger(context.Background(), domain.JobKindAvatar, AvatarPayload{
		GenerationID: "G1",
		JobType:      JobTypeGenerate,
		FaceImageURL: "https://x/face.png",
		Seed:         42,
	})
	if err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if !res.Accepted || res.Warning != nil {
		t.Fatalf("expected clean acceptance, got %+v", res)
	}
	if got.GenerationID != "G1" || got.JobType != "generate" {
		t.Fatalf("payload not delivered: %+v", got)
	}
}

func TestTriggerTimeoutIsAccepted(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}, 50*time.Millisecond)

	res, err := c.Trigger(context.Background(), domain.JobKindVideo, VideoPayload{GenerationID: "G2"})
	if err != nil {
		t.Fatalf("timeout must not be an error, got %v", err)
	}
	if !res.Accepted {
		t.Fatal("timeout must be treated as acceptance")
	}
}

func TestTriggerHTTPErrorContinues(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, time.Second)

	res, err := c.Trigger(context.Background(), domain.JobKindAvatar, AvatarPayload{GenerationID: "G3"})
	if err != nil {
		t.Fatalf("http error must not abort submission, got %v", err)
	}
	if !res.Accepted || res.Warning == nil {
		t.Fatalf("expected accepted-with-warning, got %+v", res)
	}
}

func TestTriggerCallerCancellation(t *testing.T) {
	started := make(chan struct{})
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(time.Second)
	}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Trigger(ctx, domain.JobKindAvatar, AvatarPayload{GenerationID: "G4"})
	if err != domain.ErrSubmissionCanceled {
		t.Fatalf("expected ErrSubmissionCanceled, got %v", err)
	}
}

func TestCancelGenerationFireAndForget(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["generation_id"] != "G5" {
			t.Errorf("unexpected body: %v", body)
		}
		calls.Add(1)
		close(done)
	}, time.Second)

	c.CancelGeneration("G5")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel call never fired")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one cancel call, got %d", calls.Load())
	}
}
