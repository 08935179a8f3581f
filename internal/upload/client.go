package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client uploads user reference images to the third-party image host and
// returns the public URL the workflow server will fetch them from.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   zerolog.Logger
}

// New constructs an upload client for the configured host.
func New(endpoint, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
}

type hostResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// Upload posts the image bytes as a multipart form and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("upload: api key not configured")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("upload: empty image")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("key", c.apiKey); err != nil {
		return "", fmt.Errorf("upload: encode form: %w", err)
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("upload: encode form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("upload: encode form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload: encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("upload: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("upload: host rejected image")
		return "", fmt.Errorf("upload: host returned %s", resp.Status)
	}

	var parsed hostResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("upload: decode response: %w", err)
	}
	if parsed.Data.URL == "" {
		return "", fmt.Errorf("upload: host response missing url")
	}
	return parsed.Data.URL, nil
}
