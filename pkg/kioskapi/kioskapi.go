// Package kioskapi provides a client for the kiosk feedback backend.
package kioskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/errors"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
)

// Backend paths
const (
	StatePath  = "/kiosk-state"
	SubmitPath = "/submit-feedback"
	ResetPath  = "/kiosk-reset"
)

// Client defines the interface for backend operations.
// No method retries; callers own retry policy.
type Client interface {
	// FetchState retrieves the device, its assigned order and reference lists
	FetchState(ctx context.Context, deviceID string) (*StateResponse, error)
	// SubmitFeedback validates and sends a feedback payload
	SubmitFeedback(ctx context.Context, payload FeedbackPayload) (*AckResponse, error)
	// ResetDevice asks the backend to return the device to idle
	ResetDevice(ctx context.Context, deviceID string) (*AckResponse, error)
	// BaseURL returns the configured backend base URL
	BaseURL() string
}

// validator is implemented by decoded responses that check their own shape
type validator interface {
	validate() error
}

// envelope is the part of every response that carries the logical outcome
type envelope struct {
	OK      *bool  `json:"ok"`
	Message string `json:"message"`
}

// HTTPClient is a real HTTP client for the backend
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a new backend client.
// A trailing slash on baseURL is dropped.
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return NewHTTPClientWithHTTPClient(baseURL, &http.Client{Timeout: 30 * time.Second}, log)
}

// NewHTTPClientWithHTTPClient creates a new backend client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured backend base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// doRequest executes a request against the backend and handles common error checking.
// It validates the HTTP status, parses the JSON body, checks the ok envelope and
// finally decodes and validates the full response.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body interface{}, response validator, failureMsg string) error {
	apiURL := c.baseURL + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrValidation, "failed to encode request")
		}
		reader = bytes.NewReader(encoded)
	}

	c.log.Debug("Backend request", "method", method, "url", apiURL)

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return errors.Transport("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transport("failed to connect to backend", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transport("failed to read response", err)
	}

	c.log.Debug("Backend response", "status", resp.StatusCode, "body", string(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Transportf("HTTP %d", resp.StatusCode)
	}

	// An empty body decodes as an empty object, which then fails the envelope check
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		return errors.Transportf("invalid JSON")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrap(err, errors.ErrValidation, "unexpected response shape")
	}
	if env.OK == nil {
		return errors.Validation("response is missing ok flag")
	}
	if !*env.OK {
		msg := env.Message
		if msg == "" {
			msg = failureMsg
		}
		return errors.Logical(msg)
	}

	if err := json.Unmarshal(raw, response); err != nil {
		return errors.Wrap(err, errors.ErrValidation, "unexpected response shape")
	}
	return response.validate()
}

// FetchState retrieves the current device/order state for deviceID
func (c *HTTPClient) FetchState(ctx context.Context, deviceID string) (*StateResponse, error) {
	path := fmt.Sprintf("%s?device_id=%s", StatePath, url.QueryEscape(deviceID))

	var response StateResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response, "Request failed"); err != nil {
		return nil, err
	}
	return &response, nil
}

// SubmitFeedback validates the payload and sends it to the backend.
// An invalid payload never reaches the network.
func (c *HTTPClient) SubmitFeedback(ctx context.Context, payload FeedbackPayload) (*AckResponse, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	var response AckResponse
	if err := c.doRequest(ctx, http.MethodPost, SubmitPath, payload, &response, "Submit failed"); err != nil {
		return nil, err
	}

	c.log.Info("Feedback submitted", "order_id", payload.OrderID, "session_id", payload.SessionID)
	return &response, nil
}

// ResetDevice asks the backend to put the device back to idle
func (c *HTTPClient) ResetDevice(ctx context.Context, deviceID string) (*AckResponse, error) {
	if deviceID == "" {
		return nil, errors.Validation("device_id is required")
	}

	var response AckResponse
	if err := c.doRequest(ctx, http.MethodPost, ResetPath, resetRequest{DeviceID: deviceID}, &response, "Reset failed"); err != nil {
		return nil, err
	}
	return &response, nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
