package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/hospitalzapata/wardsync/internal/config"
	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
)

// HTTPGateway handles HTTP communication with the ward API.
type HTTPGateway struct {
	client    *http.Client
	baseURL   string
	userAgent string
	token     string
	logger    *events.Logger

	// Retry configuration applies to reads only. Mutations are
	// never retried here; the outbox owns their retry semantics.
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPGateway creates an HTTP gateway.
func NewHTTPGateway(cfg *config.APIConfig, logger *events.Logger) *HTTPGateway {
	// Create transport with HTTP/2 support
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
		},
	}

	// Configure HTTP/2
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	return &HTTPGateway{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
		logger:     logger.WithField("component", "http_gateway"),
	}
}

// SetToken sets the authentication token.
func (g *HTTPGateway) SetToken(token string) {
	g.token = token
}

// GetToken returns the current authentication token.
func (g *HTTPGateway) GetToken() string {
	return g.token
}

// Get sends a GET request with retry on transient failures.
func (g *HTTPGateway) Get(ctx context.Context, path string) (*models.Envelope, error) {
	var env *models.Envelope
	err := g.retry(ctx, func() error {
		var err error
		env, err = g.do(ctx, http.MethodGet, path, nil)
		return err
	})
	return env, err
}

// Post sends a JSON POST request.
func (g *HTTPGateway) Post(ctx context.Context, path string, payload interface{}) (*models.Envelope, error) {
	return g.do(ctx, http.MethodPost, path, payload)
}

// Put sends a JSON PUT request.
func (g *HTTPGateway) Put(ctx context.Context, path string, payload interface{}) (*models.Envelope, error) {
	return g.do(ctx, http.MethodPut, path, payload)
}

// Patch sends a JSON PATCH request.
func (g *HTTPGateway) Patch(ctx context.Context, path string, payload interface{}) (*models.Envelope, error) {
	return g.do(ctx, http.MethodPatch, path, payload)
}

// Delete sends a DELETE request.
func (g *HTTPGateway) Delete(ctx context.Context, path string) (*models.Envelope, error) {
	return g.do(ctx, http.MethodDelete, path, nil)
}

// Close releases idle connections.
func (g *HTTPGateway) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// do executes a single request and normalizes the response envelope.
func (g *HTTPGateway) do(ctx context.Context, method, path string, payload interface{}) (*models.Envelope, error) {
	url := g.baseURL + path

	var reqBody io.Reader
	var bodySize int
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(body)
		bodySize = len(body)
	}

	g.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
		"size":   bodySize,
	}).Debug("Sending request")

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	g.logger.WithFields(map[string]interface{}{
		"status": resp.StatusCode,
		"size":   len(respBody),
	}).Debug("Received response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &models.APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
		if env, perr := models.ParseEnvelope(respBody); perr == nil && env.Message != "" {
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}

	env, err := models.ParseEnvelope(respBody)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return env, nil
}

// retry executes a function with exponential backoff.
func (g *HTTPGateway) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := g.retryDelay

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
			}).Debug("Retrying request")

			select {
			case <-time.After(delay):
				delay *= 2 // Exponential backoff
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !models.IsTransient(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
