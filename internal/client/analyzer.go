package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/analysis"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
)

const (
	conversationFlow = "hr_insights"
	feedbackUserID   = "flask_user"
)

// AnalyzerClient is an HTTP client for the agent API analyzing a single CV.
type AnalyzerClient struct {
	baseURL    string
	username   string
	password   string
	revisionID string
	httpClient *http.Client
}

var _ analysis.Analyzer = (*AnalyzerClient)(nil)

func NewAnalyzerClient(cfg config.Analyzer) *AnalyzerClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &AnalyzerClient{
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		revisionID: cfg.RevisionID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type ChatRequest struct {
	ThreadID         string `json:"thread_id"`
	ConversationFlow string `json:"conversation_flow"`
	UserPrompt       string `json:"user_prompt"`
}

// UserPrompt is sent JSON encoded inside ChatRequest.UserPrompt.
type UserPrompt struct {
	RevisionID string `json:"revision_id"`
	Identifier string `json:"identifier"`
	Page1      string `json:"Page_1"`
}

type ChatResponse struct {
	AgentResponse string `json:"agent_response"`
	ThreadID      string `json:"thread_id"`
	MessageID     string `json:"message_id"`
}

type FeedbackRequest struct {
	ThreadID         string `json:"thread_id"`
	MessageID        string `json:"message_id"`
	UserID           string `json:"user_id"`
	PositiveFeedback bool   `json:"positive_feedback"`
}

// Analyze sends the text of a CV to the agent, each call on a new thread.
func (c *AnalyzerClient) Analyze(ctx context.Context, text, identifier string) (*analysis.Analysis, error) {
	if identifier == "" {
		identifier = uuid.NewString()[:8]
	}

	prompt, err := json.Marshal(UserPrompt{
		RevisionID: c.revisionID,
		Identifier: identifier,
		Page1:      text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prompt: %w", err)
	}

	req := ChatRequest{
		ThreadID:         uuid.NewString(),
		ConversationFlow: conversationFlow,
		UserPrompt:       string(prompt),
	}

	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/chat", c.baseURL), req, &resp); err != nil {
		return nil, err
	}

	return &analysis.Analysis{
		Text:      resp.AgentResponse,
		ThreadID:  resp.ThreadID,
		MessageID: resp.MessageID,
	}, nil
}

func (c *AnalyzerClient) SubmitFeedback(ctx context.Context, messageID, threadID string, positive bool) error {
	req := FeedbackRequest{
		ThreadID:         threadID,
		MessageID:        messageID,
		UserID:           feedbackUserID,
		PositiveFeedback: positive,
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("%s/messages/%s/feedback", c.baseURL, messageID), req, nil)
}

func (c *AnalyzerClient) do(ctx context.Context, method, url string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call agent api: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("agent api returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
