package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultAddr = "http://127.0.0.1:8787"

// DefaultAddr returns ACCOUNT_AGENT_ADDR or the agent's default listen address.
func DefaultAddr() string {
	if v := strings.TrimSpace(os.Getenv("ACCOUNT_AGENT_ADDR")); v != "" {
		return v
	}
	return defaultAddr
}

// Client talks to the agent's local HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// envelope mirrors the agent's response body. Success responses carry a
// result, failures carry an API error.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Pending bool            `json:"pending"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details interface{}     `json:"details"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Details != nil {
		return fmt.Sprintf("%s (%v)", msg, e.Details)
	}
	return msg
}

// Do sends body as JSON and decodes the data field of the reply into out.
// It returns the reply's message.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) (string, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("account agent unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return "", &APIError{Status: resp.StatusCode, Code: env.Code, Message: msg, Details: env.Details}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("decoding data: %w", err)
		}
	}
	if env.Pending && env.Message == "" {
		return "Saved locally, waiting for the connection to return.", nil
	}
	return env.Message, nil
}
