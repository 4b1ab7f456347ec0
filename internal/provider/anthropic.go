package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
)

const (
	// anthropicAPIURL is the Anthropic Messages API endpoint.
	anthropicAPIURL = "https://api.anthropic.com/v1/messages"

	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-5-haiku-20241022"

	anthropicVersion = "2023-06-01"

	defaultHTTPTimeout = 30 * time.Second
	verseMaxTokens     = 400
	verdictMaxTokens   = 300
)

// AnthropicClient generates verses and verdicts with the Anthropic Messages API.
type AnthropicClient struct {
	apiKey      string
	url         string
	model       string
	judgeModel  string
	temperature float64
	httpClient  *http.Client
}

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicModel sets the verse generation model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *AnthropicClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAnthropicJudgeModel sets the adjudication model.
func WithAnthropicJudgeModel(model string) AnthropicOption {
	return func(c *AnthropicClient) {
		if model != "" {
			c.judgeModel = model
		}
	}
}

// WithAnthropicURL overrides the Messages API endpoint.
func WithAnthropicURL(url string) AnthropicOption {
	return func(c *AnthropicClient) {
		c.url = url
	}
}

// WithAnthropicHTTPClient replaces the HTTP client.
func WithAnthropicHTTPClient(hc *http.Client) AnthropicOption {
	return func(c *AnthropicClient) {
		c.httpClient = hc
	}
}

// NewAnthropicClient creates a client. The API key is required.
func NewAnthropicClient(apiKey string, opts ...AnthropicOption) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.Wrap(errors.ErrNotConfigured, "anthropic API key is not set")
	}

	c := &AnthropicClient{
		apiKey:      apiKey,
		url:         anthropicAPIURL,
		model:       DefaultAnthropicModel,
		temperature: 0.9,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.judgeModel == "" {
		c.judgeModel = c.model
	}
	return c, nil
}

// Name identifies the binding in health output and logs.
func (c *AnthropicClient) Name() string { return "anthropic" }

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Generate implements the generation collaborator.
func (c *AnthropicClient) Generate(ctx context.Context, p battle.Prompt) (string, error) {
	user, err := TurnPrompt(p)
	if err != nil {
		return "", err
	}

	model := c.model
	if p.Speaker.Profile.Model != "" {
		model = p.Speaker.Profile.Model
	}
	temperature := c.temperature
	if p.Speaker.Profile.Temperature > 0 {
		temperature = p.Speaker.Profile.Temperature
	}

	text, err := c.send(ctx, messagesRequest{
		Model:       model,
		MaxTokens:   verseMaxTokens,
		System:      SystemPrompt(p),
		Temperature: &temperature,
		Messages:    []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", errors.NewCollaboratorError("generate verse", err).WithProvider(c.Name())
	}
	verse := cleanVerse(text)
	if verse == "" {
		return "", errors.NewCollaboratorError("generate verse", errors.ErrEmptyOutput).WithProvider(c.Name())
	}
	return verse, nil
}

// Adjudicate implements the adjudication collaborator.
func (c *AnthropicClient) Adjudicate(ctx context.Context, t battle.Transcript) (string, error) {
	zero := 0.0
	text, err := c.send(ctx, messagesRequest{
		Model:       c.judgeModel,
		MaxTokens:   verdictMaxTokens,
		System:      judgeSystemPrompt,
		Temperature: &zero,
		Messages:    []message{{Role: "user", Content: JudgePrompt(t)}},
	})
	if err != nil {
		return "", errors.NewCollaboratorError("adjudicate", err).WithProvider(c.Name())
	}
	return text, nil
}

func (c *AnthropicClient) send(ctx context.Context, reqBody messagesRequest) (string, error) {
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var respData messagesResponse
	if err := json.Unmarshal(body, &respData); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if respData.Error != nil {
		return "", fmt.Errorf("API error: %s", respData.Error.Message)
	}

	var parts []string
	for _, block := range respData.Content {
		if block.Type == "text" || block.Type == "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.ErrEmptyOutput
	}
	return strings.Join(parts, ""), nil
}
