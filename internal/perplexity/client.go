// Package perplexity is a minimal client for the Perplexity chat-completions
// API. One attempt per call, a hard timeout, and a closed set of outcomes so
// callers can switch exhaustively instead of inspecting raw errors.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

// Outcome classifies a completion attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeUnauthorized
	OutcomeTimeout
	OutcomeNetwork
	OutcomeHTTP
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeNetwork:
		return "network"
	default:
		return "http_error"
	}
}

// RequestTimeout bounds a single upstream call end to end.
const RequestTimeout = 30 * time.Second

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether an API key is present. Running without one is a
// valid mode; the caller serves offline replies instead of calling upstream.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete sends the messages upstream and returns the reply text. The text
// is only meaningful when the outcome is OutcomeOK.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, Outcome) {
	payload := map[string]interface{}{
		"model":                    c.model,
		"messages":                 messages,
		"max_tokens":               500,
		"temperature":              0.2,
		"return_citations":         false,
		"return_related_questions": false,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", OutcomeNetwork
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", OutcomeTimeout
		}
		return "", OutcomeNetwork
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", OutcomeUnauthorized
	case resp.StatusCode != http.StatusOK:
		return "", OutcomeHTTP
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", OutcomeNetwork
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		return "", OutcomeHTTP
	}

	return result.Choices[0].Message.Content, OutcomeOK
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
