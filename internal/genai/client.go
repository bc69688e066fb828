package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 30 * time.Second
)

// Content is one conversational turn in the generative API's two-role
// vocabulary ("user" or "model").
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a single text fragment within a turn.
type Part struct {
	Text string `json:"text"`
}

// UserTurn builds a single-part user content block.
func UserTurn(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// Client calls the Gemini generateContent REST endpoint. The round-trip is a
// blocking network call bounded by the configured timeout; failures are
// returned to the caller, never retried.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the given API key and model name. A zero timeout
// selects the 30s default.
func New(apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewWithBaseURL(apiKey, model, baseURL string, timeout time.Duration) *Client {
	c := New(apiKey, model, timeout)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// generateRequest is the JSON body for models/{model}:generateContent.
type generateRequest struct {
	Contents []Content `json:"contents"`
}

// GenerateContent sends the conversation to the model and returns the reply
// text, extracted tolerantly from whatever response shape the API produced.
func (c *Client) GenerateContent(ctx context.Context, contents []Content) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generative API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generative API returned status %d: %s", resp.StatusCode, truncate(raw, 512))
	}

	return ExtractReply(raw), nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
