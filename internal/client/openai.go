package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/analysis"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

const (
	temperature         = 0.7
	summaryMaxTokens    = 2000
	interviewMaxTokens  = 1500
	summarySystemPrompt = "You are an AI assistant that helps compare and summarize multiple CV analyses for recruitment purposes. " +
		"Provide detailed comparisons and clear recommendations."
	interviewSystemPrompt = "You are an AI assistant that helps recruiters prepare targeted interview questions. " +
		"Your questions should help verify candidate claims, probe for deeper knowledge, and uncover potential fit issues. Be specific and professional."
)

var ErrNoChoices = errors.New("the API did not return expected response")

// OpenAIClient calls the chat completions API of an Azure OpenAI deployment.
type OpenAIClient struct {
	endpoint   string
	key        string
	deployment string
	apiVersion string
	httpClient *http.Client
}

var _ analysis.Summarizer = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg config.OpenAI) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		key:        cfg.Key,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize compares the analyses of a batch.
func (c *OpenAIClient) Summarize(ctx context.Context, items []model.ResultItem) (string, error) {
	return c.complete(ctx, summarySystemPrompt, ComparisonPrompt(items), summaryMaxTokens)
}

// InterviewQuestions generates questions tailored to a single analysis.
func (c *OpenAIClient) InterviewQuestions(ctx context.Context, item model.ResultItem) (string, error) {
	return c.complete(ctx, interviewSystemPrompt, InterviewPrompt(item), interviewMaxTokens)
}

func (c *OpenAIClient) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, c.apiVersion)

	body, err := json.Marshal(ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call openai: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var completion ChatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}

	return completion.Choices[0].Message.Content, nil
}
