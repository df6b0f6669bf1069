package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/telemetry"
)

const interpretSystemPrompt = `You are the query interpreter for a personal library service.
Translate the user's question into exactly one of these query types:
USER_WITH_MOST_BOOKS, MOST_POPULAR_BOOK, EXPENSIVE_BOOKS, BOOKS_BY_GENRE,
BOOKS_BY_STATUS, USER_STATISTICS, MY_BOOK_COUNT, CURRENTLY_READING,
COMMON_GENRE, GENERAL_STATISTICS.

Return ONLY valid JSON in this format:
{"queryType": "", "parameters": {"limit": 0, "genre": "", "status": ""}}

Omit parameters that do not apply. Valid status values are NotStarted,
Reading and Completed.`

const explainSystemPrompt = `You are a friendly library assistant. Answer the user's question in one or
two short sentences using ONLY the provided data. Do not invent numbers or
titles that are not in the data.`

// OpenAIClient implements Client against an OpenAI-compatible chat
// completions API.
type OpenAIClient struct {
	cfg     config.ModelProviderConfig
	client  *http.Client
	metrics *telemetry.Metrics
}

// NewOpenAIClient builds a client from provider config. metrics may be nil.
func NewOpenAIClient(cfg config.ModelProviderConfig, metrics *telemetry.Metrics) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		metrics: metrics,
	}
}

func (c *OpenAIClient) Interpret(ctx context.Context, question, userContext string) (string, error) {
	system := interpretSystemPrompt + "\n\nCaller context: " + userContext
	return c.complete(ctx, "interpret", system, question)
}

func (c *OpenAIClient) Explain(ctx context.Context, question, dataJSON string) (string, error) {
	user := fmt.Sprintf("Question: %s\n\nData:\n%s", question, dataJSON)
	return c.complete(ctx, "explain", explainSystemPrompt, user)
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, "complete", system, user)
}

func (c *OpenAIClient) complete(ctx context.Context, operation, system, user string) (string, error) {
	body := chatRequestBody{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	for k, v := range c.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if c.metrics != nil {
		c.metrics.RecordModelCall(operation, float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		return "", fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal model response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponseBody struct {
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}
