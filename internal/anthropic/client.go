// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Configuration constants for the Anthropic API.
const (
	// DefaultBaseURL is the base URL for the Anthropic API.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens is the max_tokens value sent with every request.
	DefaultMaxTokens = 4096

	// apiVersion is the fixed value of the anthropic-version header.
	apiVersion = "2023-06-01"

	// DefaultTimeout is the timeout for non-streaming API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests.
	// No client timeout: a stream stays open as long as the server keeps
	// sending events, and cancellation is handled via the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common API errors.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("anthropic API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrOverloaded indicates the API is temporarily overloaded.
	ErrOverloaded = errors.New("service overloaded")

	// ErrNoContent indicates a response carried no text content block.
	ErrNoContent = errors.New("no text content in response")
)

// APIError represents an error response from the Anthropic API.
type APIError struct {
	Type    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("anthropic error [%s] (HTTP %d): %s", e.Type, e.Status, e.Message)
	}
	return fmt.Sprintf("anthropic error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// Message represents a single message in the wire format.
type Message struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// Request is the body sent to the messages endpoint.
type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
}

// ContentBlock is one block of a non-streaming response body.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the non-streaming response body.
type Response struct {
	Content []ContentBlock `json:"content"`
}

// FirstText returns the text of the first "text" content block.
func (r *Response) FirstText() (string, bool) {
	for _, block := range r.Content {
		if block.Type == "text" {
			return block.Text, true
		}
	}
	return "", false
}

// apiErrorResponse is the error body shape returned by the API.
type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the Anthropic Messages API.
//
// The zero API key is valid: the client is constructed at startup even when
// no credential is available, and each send re-checks IsConfigured so the
// key can be supplied later without restarting.
//
// The settings are mutable at runtime (model switch, config reload) while
// request goroutines are in flight, so every access goes through mu and
// each request works from a snapshot taken when it starts.
type Client struct {
	mu        sync.RWMutex
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
}

// requestConfig is a per-request copy of the client settings. A request
// built from a snapshot is unaffected by a concurrent SetModel or SetAPIKey.
type requestConfig struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
}

// snapshot copies the current settings under the read lock.
func (c *Client) snapshot() requestConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return requestConfig{
		apiKey:    c.apiKey,
		baseURL:   c.baseURL,
		model:     c.model,
		maxTokens: c.maxTokens,
	}
}

// NewClient creates a new client with the given API key.
// An empty key still yields a usable client; requests fail with
// ErrNotConfigured until a key is set.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:    strings.TrimSpace(apiKey),
		baseURL:   DefaultBaseURL,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithMaxTokens sets the max_tokens request value.
func (c *Client) WithMaxTokens(n int) *Client {
	if n > 0 {
		c.mu.Lock()
		c.maxTokens = n
		c.mu.Unlock()
	}
	return c
}

// SetAPIKey replaces the API key (used on config reload).
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = strings.TrimSpace(key)
}

// SetModel sets the model used for subsequent requests.
func (c *Client) SetModel(model string) {
	if model != "" {
		c.mu.Lock()
		c.model = model
		c.mu.Unlock()
	}
}

// GetModel returns the current model.
func (c *Client) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

// APIKeyMasked returns a masked version of the API key for display.
// SECURITY: Never exposes key fragments - uses a fingerprint instead.
func (c *Client) APIKeyMasked() string {
	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()
	if key == "" {
		return "[not set]"
	}
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(key), hex.EncodeToString(h[:4]))
}

// buildRequest assembles the request body from a message history.
func (rc requestConfig) buildRequest(messages []Message, system string, stream bool) Request {
	return Request{
		Model:     rc.model,
		MaxTokens: rc.maxTokens,
		System:    system,
		Messages:  messages,
		Stream:    stream,
	}
}

// setHeaders sets the required headers for Anthropic API requests.
func (rc requestConfig) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", rc.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("User-Agent", "claude-tui/0.1.0")
}

// logRequest logs an API request without exposing sensitive data.
// Does not log headers (auth) or body (conversation content).
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// =============================================================================
// NON-STREAMING REQUEST
// =============================================================================

// Messages performs a non-streaming request and returns the reply text.
// This is the fallback path used when streaming is disabled; the complete
// body is awaited and the first text content block is taken as the reply.
//
// Failures are never retried automatically - a retry is a user-initiated
// re-send.
func (c *Client) Messages(ctx context.Context, messages []Message, system string) (string, error) {
	rc := c.snapshot()
	if rc.apiKey == "" {
		return "", ErrNotConfigured
	}

	reqBody := rc.buildRequest(messages, system, false)
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	rc.setHeaders(req)
	c.logRequest(req)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.handleErrorResponse(resp.StatusCode, body)
	}

	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	text, ok := apiResp.FirstText()
	if !ok {
		return "", ErrNoContent
	}
	return text, nil
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		e := &APIError{
			Type:    apiErr.Error.Type,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}

		switch statusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuthFailed, e.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
		case http.StatusServiceUnavailable, 529:
			return fmt.Errorf("%w: %s", ErrOverloaded, e.Message)
		default:
			return e
		}
	}

	// Fallback for unparseable error responses
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusServiceUnavailable, 529:
		return ErrOverloaded
	default:
		return &APIError{
			Message: strings.TrimSpace(string(body)),
			Status:  statusCode,
		}
	}
}
