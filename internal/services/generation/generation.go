package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/models"
)

// Request is everything the remote model needs for one reply.
type Request struct {
	SystemPrompt string
	Turns        []models.ChatMessage
	Temperature  float64
	MaxTokens    int
}

// Error wraps any transport or protocol failure of the remote call.
// Callers recover from it with canned fallback text; it never reaches
// the transport layer.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Service is the port over the remote text-generation endpoint.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg        *config.GenerationConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a generation client.
func NewClient(cfg *config.GenerationConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Generate performs a single attempt against the remote endpoint.
// There are no retries: a failed call surfaces immediately so the
// caller can fall back, trading completeness for responsiveness.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]map[string]string, 0, len(req.Turns)+1)
	messages = append(messages, map[string]string{
		"role":    "system",
		"content": req.SystemPrompt,
	})
	for _, turn := range req.Turns {
		messages = append(messages, map[string]string{
			"role":    string(turn.Role),
			"content": turn.Content,
		})
	}

	reqBody := map[string]interface{}{
		"model":       c.cfg.Model,
		"messages":    messages,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(c.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &Error{Cause: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))
	}

	start := time.Now()
	c.logger.WithFields(logrus.Fields{
		"model": c.cfg.Model,
		"turns": len(req.Turns),
	}).Debug("Sending generation request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Cause: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Generation request failed")
		return "", &Error{Cause: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", &Error{Cause: fmt.Errorf("failed to parse response: %w", err)}
	}

	if result.Error.Message != "" {
		return "", &Error{Cause: fmt.Errorf("remote error: %s", result.Error.Message)}
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", &Error{Cause: fmt.Errorf("empty response")}
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)

	c.logger.WithFields(logrus.Fields{
		"duration": time.Since(start),
		"chars":    len(text),
	}).Debug("Generation response received")

	return stripModelLabels(text), nil
}

// stripModelLabels removes role prefixes a model sometimes leaks into
// its own output.
func stripModelLabels(text string) string {
	lowered := strings.ToLower(text)
	for _, prefix := range []string{"assistant:", "model:", "thoughts:", "thinking..."} {
		if strings.HasPrefix(lowered, prefix) {
			if idx := strings.Index(text, ":"); idx != -1 {
				return strings.TrimSpace(text[idx+1:])
			}
		}
	}
	return text
}
