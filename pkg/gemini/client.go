// Package gemini is a minimal client for the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 60 * time.Second

	// MIMEJSON requests a JSON-only response.
	MIMEJSON = "application/json"

	maxErrorBody = 64 << 10
)

// Config holds connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls generateContent. Failed calls are not retried.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client. An empty API key is accepted here; calls will fail
// with ErrInvalidCredentials.
func New(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "gemini")
	return c
}

// Model returns the default model.
func (c *Client) Model() string { return c.cfg.Model }

// Ready reports whether requests can be sent. It fails with
// ErrInvalidCredentials when no API key is configured.
func (c *Client) Ready() error {
	if c.cfg.APIKey == "" {
		return &APIError{
			StatusCode: http.StatusUnauthorized,
			Message:    "API key not configured",
			marker:     ErrInvalidCredentials,
		}
	}
	return nil
}

// Generate sends one generateContent request.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	if err := c.Ready(); err != nil {
		return Response{}, err
	}
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	encoded, err := json.Marshal(buildRequest(req))
	if err != nil {
		return Response{}, fmt.Errorf("gemini: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Response{}, fmt.Errorf("gemini: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	c.logger.Debug("generate request",
		"model", model,
		"search", req.GoogleSearch,
		"json", req.ResponseMIMEType != "" && !req.GoogleSearch,
		"prompt_chars", len(req.Prompt),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		return Response{}, fmt.Errorf("gemini: request failed: %w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("gemini: read body: %w: %w", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env errorEnvelope
		_ = json.Unmarshal(body, &env)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		apiErr := newAPIError(resp.StatusCode, env, string(body))
		c.logger.Warn("generate failed",
			"model", model,
			"status_code", resp.StatusCode,
			"status", apiErr.Status,
			"error", apiErr.Message,
		)
		return Response{}, apiErr
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Response{}, fmt.Errorf("gemini: decode response: %w: %w", ErrUpstream, err)
	}
	return decoded.toResponse(), nil
}

func buildRequest(req Request) generateRequest {
	out := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	if req.SystemInstruction != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	cfg := generationConfig{Temperature: req.Temperature}
	if req.GoogleSearch {
		out.Tools = []tool{{GoogleSearch: &struct{}{}}}
	} else {
		cfg.ResponseMIMEType = req.ResponseMIMEType
	}
	if cfg.Temperature != nil || cfg.ResponseMIMEType != "" {
		out.GenerationConfig = &cfg
	}
	return out
}

func (r generateResponse) toResponse() Response {
	out := Response{Usage: r.UsageMetadata}
	if len(r.Candidates) == 0 {
		return out
	}
	cand := r.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	out.Text = sb.String()
	if cand.GroundingMetadata != nil {
		out.GroundingChunks = cand.GroundingMetadata.GroundingChunks
	}
	return out
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
