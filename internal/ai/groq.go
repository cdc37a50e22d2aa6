package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	maxAttempts = 3
	maxTokens   = 4096
)

// APIError is a non-200 answer of the chat completions endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat API returned status %d: %s", e.Status, e.Message)
}

// Temporary reports whether the request may succeed when sent again.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

type groqClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	// backoff is the wait before the second attempt; it doubles after that.
	backoff time.Duration
}

// NewGroqClient talks to an OpenAI compatible chat completions API, Groq unless
// baseURL says otherwise.
func NewGroqClient(apiKey, model, baseURL string) (Client, error) {
	c, err := newGroqClient(apiKey, model, baseURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newGroqClient(apiKey, model, baseURL string) (*groqClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &groqClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		backoff:    2 * time.Second,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *groqClient) Analyze(ctx context.Context, prompt string) (string, error) {
	content, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt()},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.5,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	return cleanMarkdown(content), nil
}

// complete sends req, retrying rate limits and server errors.
func (c *groqClient) complete(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	wait := c.backoff
	for attempt := 1; ; attempt++ {
		content, err := c.post(ctx, body)
		var apiErr *APIError
		if err == nil || !errors.As(err, &apiErr) || !apiErr.Temporary() || attempt == maxAttempts {
			return content, err
		}

		log.Printf("⚠️ Chat API attempt %d/%d failed (%v), retrying in %s", attempt, maxAttempts, err, wait)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (c *groqClient) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if chat.Error != nil {
		return "", fmt.Errorf("API error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("no choices returned from chat API")
	}
	return chat.Choices[0].Message.Content, nil
}

// cleanMarkdown drops a ```markdown fence the model sometimes wraps its answer in
func cleanMarkdown(content string) string {
	content = strings.TrimSpace(content)
	for _, fence := range []string{"```markdown", "```md", "```"} {
		if strings.HasPrefix(content, fence) {
			content = strings.TrimPrefix(content, fence)
			content = strings.TrimSuffix(content, "```")
			break
		}
	}
	return strings.TrimSpace(content)
}
