package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/config"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
)

const (
	ChatEndpoint   = "/chat"
	HealthEndpoint = "/health"

	// DefaultUserID identifies anonymous web visitors to the backend.
	DefaultUserID = "web-user"

	maxErrorBody = 4 << 10

	// healthTimeout bounds a shared health probe.
	healthTimeout = 10 * time.Second
)

// Result is a normalized successful reply.
type Result struct {
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	Intent     *string   `json:"intent"`
	Confidence *float64  `json:"confidence"`
	ReceivedAt time.Time `json:"receivedAt"`
	Success    bool      `json:"success"`
}

// Health is the outcome of a health probe. It never represents a failure of
// the probe itself; unreachable backends report Available=false.
type Health struct {
	Available bool      `json:"available"`
	Status    string    `json:"status,omitempty"`
	Model     string    `json:"model,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Info describes the configured backend endpoints.
type Info struct {
	BaseURL        string `json:"baseUrl"`
	ChatEndpoint   string `json:"chatEndpoint"`
	HealthEndpoint string `json:"healthEndpoint"`
	FullChatURL    string `json:"fullChatUrl"`
	FullHealthURL  string `json:"fullHealthUrl"`
	Environment    string `json:"environment"`
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// Client talks to the remote conversational backend. It holds no
// per-conversation state and is safe for concurrent use.
type Client struct {
	baseURL     string
	environment string
	userID      string
	httpClient  *http.Client
	now         func() time.Time
	health      singleflight.Group
	logger      zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock replaces the time source used for ReceivedAt and CheckedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a Client for the already-resolved cfg.BaseURL.
func New(cfg config.BackendConfig, opts ...Option) *Client {
	userID := cfg.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	c := &Client{
		baseURL:     cfg.BaseURL,
		environment: cfg.Environment,
		userID:      userID,
		// A zero timeout leaves the exchange to the transport defaults.
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		now:        time.Now,
		logger:     logging.Component("gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs one chat exchange. Failures are always *Error values.
func (c *Client) Send(ctx context.Context, text, userID string) (Result, error) {
	if userID == "" {
		userID = c.userID
	}
	url := c.baseURL + ChatEndpoint

	c.logger.Debug().Str("url", url).Str("userId", userID).Str("message", text).Msg("chat request")

	body, err := json.Marshal(chatRequest{Message: text, UserID: userID})
	if err != nil {
		return Result{}, c.fail(errors.Wrap(err, "encode chat request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, c.fail(errors.Wrap(err, "build chat request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, c.fail(err)
	}
	defer resp.Body.Close()

	c.logger.Debug().Int("status", resp.StatusCode).Msg("chat http status")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug().Str("body", string(errBody)).Msg("chat error response")

		kind := KindHTTP
		if resp.StatusCode == http.StatusNotFound {
			kind = KindEndpointNotFound
		}
		return Result{}, c.fail(&Error{
			Kind:    kind,
			Status:  resp.StatusCode,
			BaseURL: c.baseURL,
			Err:     fmt.Errorf("HTTP error! status: %d", resp.StatusCode),
		})
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, c.fail(errors.Wrap(err, "decode chat response"))
	}

	c.logger.Debug().Interface("data", payload).Msg("chat response data")
	return Normalize(payload, c.now()), nil
}

func (c *Client) fail(err error) *Error {
	classified := Classify(err, c.baseURL)
	c.logger.Error().Err(err).Str("kind", string(classified.Kind)).Msg("chat request failed")
	return classified
}

// CheckHealth probes the backend health endpoint. Concurrent callers share a
// single in-flight probe; it runs detached from any caller's cancellation,
// and a caller whose ctx ends stops waiting without affecting the others.
func (c *Client) CheckHealth(ctx context.Context) Health {
	ch := c.health.DoChan("health", func() (any, error) {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), healthTimeout)
		defer cancel()
		return c.probe(probeCtx), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Health)
	case <-ctx.Done():
		return Health{Error: ctx.Err().Error(), CheckedAt: c.now()}
	}
}

func (c *Client) probe(ctx context.Context) Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthEndpoint, nil)
	if err != nil {
		return Health{Error: err.Error(), CheckedAt: c.now()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("health check failed")
		return Health{Error: err.Error(), CheckedAt: c.now()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return Health{CheckedAt: c.now()}
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.logger.Warn().Err(err).Msg("health check returned an undecodable body")
		return Health{Error: errors.Wrap(err, "decode health response").Error(), CheckedAt: c.now()}
	}
	c.logger.Debug().Interface("data", data).Msg("health check")

	status, _ := fieldText(data["status"])
	model, _ := fieldText(data["model"])
	timestamp, _ := fieldText(data["time"])

	return Health{
		Available: true,
		Status:    status,
		Model:     model,
		Timestamp: timestamp,
		CheckedAt: c.now(),
	}
}

// Info reports the configured endpoints without touching the network.
func (c *Client) Info() Info {
	return Info{
		BaseURL:        c.baseURL,
		ChatEndpoint:   ChatEndpoint,
		HealthEndpoint: HealthEndpoint,
		FullChatURL:    c.baseURL + ChatEndpoint,
		FullHealthURL:  c.baseURL + HealthEndpoint,
		Environment:    c.environment,
	}
}
