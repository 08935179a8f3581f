package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
)

// Endpoints names the external workflow-automation URLs per job kind plus the
// shared cancellation path.
type Endpoints struct {
	Avatar string
	Video  string
	Edit   string
	Cancel string
}

// Client triggers generation work on the external workflow server. The POST
// is a trigger only: completion is learned from the shared store, never from
// this response. Consequently a request timeout is treated as acceptance.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	logger    zerolog.Logger
}

// New constructs a webhook client. timeout bounds the trigger call; the
// workflow server often holds the connection open well past queueing, so the
// value is generous and expiry is not an error.
func New(endpoints Endpoints, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 4 * time.Minute
	}
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// TriggerResult reports how the trigger call concluded.
type TriggerResult struct {
	// Accepted is true unless the caller canceled. Timeouts, HTTP error
	// statuses, and transport failures all leave the job monitorable, because
	// the external system completes work out-of-band.
	Accepted bool
	// Warning carries a non-fatal delivery problem for logging/UI hints.
	Warning error
}

// Trigger fires the generation payload at the endpoint for the job kind.
// Only caller cancellation surfaces as an error.
func (c *Client) Trigger(ctx context.Context, kind domain.JobKind, payload any) (TriggerResult, error) {
	url, err := c.endpointFor(kind)
	if err != nil {
		return TriggerResult{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return TriggerResult{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return TriggerResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return TriggerResult{}, domain.ErrSubmissionCanceled
		}
		if isTimeout(err) {
			c.logger.Debug().Str("kind", string(kind)).Msg("webhook: trigger timed out, continuing async")
			return TriggerResult{Accepted: true}, nil
		}
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("webhook: trigger transport error, monitoring continues")
		return TriggerResult{Accepted: true, Warning: err}, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 400 {
		warn := fmt.Errorf("webhook returned %s", resp.Status)
		c.logger.Warn().Int("status", resp.StatusCode).Str("kind", string(kind)).Msg("webhook: non-2xx trigger response, monitoring continues")
		return TriggerResult{Accepted: true, Warning: warn}, nil
	}
	return TriggerResult{Accepted: true}, nil
}

// CancelGeneration notifies the workflow server that the user aborted.
// Fire-and-forget: failures are logged, never returned.
func (c *Client) CancelGeneration(generationID string) {
	if c.endpoints.Cancel == "" {
		return
	}
	go func() {
		body, _ := json.Marshal(map[string]string{"generation_id": generationID})
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Cancel, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("generation_id", generationID).Msg("webhook: cancel call failed")
			return
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	}()
}

func (c *Client) endpointFor(kind domain.JobKind) (string, error) {
	switch kind {
	case domain.JobKindAvatar:
		return c.endpoints.Avatar, nil
	case domain.JobKindVideo:
		return c.endpoints.Video, nil
	case domain.JobKindEdit:
		return c.endpoints.Edit, nil
	}
	return "", fmt.Errorf("no webhook endpoint for kind %q", kind)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
