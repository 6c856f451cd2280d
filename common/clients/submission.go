package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// SubmitResult is the server's answer to a successful submission
type SubmitResult struct {
	BBID  string          `json:"bbid"`
	Alert string          `json:"alert,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// ServerError is a non-2xx submission response
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("submission rejected: status=%d: %s", e.Status, e.Message)
}

// SubmissionClient posts assembled payloads to the entity endpoint
type SubmissionClient struct {
	url    string
	http   *HTTPClient
	logger Logger
}

// NewSubmissionClient creates a submission client. There is no client-side
// timeout; the caller's context bounds the request.
func NewSubmissionClient(submissionURL string, logger Logger) *SubmissionClient {
	return &SubmissionClient{
		url:    submissionURL,
		http:   NewHTTPClient(&http.Client{}, logger),
		logger: logger,
	}
}

// Submit posts payload as JSON. Server-reported failures are returned as
// *ServerError carrying the server's error text.
func (c *SubmissionClient) Submit(ctx context.Context, payload any) (*SubmitResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	start := time.Now()
	resp, err := c.http.DoRequest(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to submit: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read submission response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := gjson.GetBytes(respBody, "error").String()
		if message == "" {
			message = strings.TrimSpace(string(respBody))
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("submission rejected", "status", resp.StatusCode, "error", message)
		return nil, &ServerError{Status: resp.StatusCode, Message: message}
	}

	result := &SubmitResult{
		BBID:  gjson.GetBytes(respBody, "bbid").String(),
		Alert: gjson.GetBytes(respBody, "alert").String(),
	}
	if result.BBID == "" {
		// batch responses are keyed by batch-local id; e0 is the edition
		result.BBID = gjson.GetBytes(respBody, "e0.bbid").String()
	}
	if gjson.ValidBytes(respBody) {
		result.Raw = json.RawMessage(respBody)
	}

	c.logger.Info("submission accepted", "bbid", result.BBID, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
