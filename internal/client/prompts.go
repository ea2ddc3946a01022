package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

const noAnalysis = "No analysis available"

// agentHeader is one entry of the structured analysis returned by the agent.
type agentHeader struct {
	Dict struct {
		ChatName     string `json:"chat_name"`
		ChatResponse struct {
			ChatMessage struct {
				Dict struct {
					Content string `json:"content"`
				} `json:"__dict__"`
			} `json:"chat_message"`
		} `json:"chat_response"`
	} `json:"__dict__"`
}

// AnalysisContent returns the readable part of an analysis. The agent answers with a list of
// chats; only the summary and applicant lookup ones are kept. Anything else is returned raw.
func AnalysisContent(item model.ResultItem) string {
	raw := item.Analysis
	if raw == "" {
		return noAnalysis
	}

	var headers []agentHeader
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return raw
	}

	var sb strings.Builder
	for _, h := range headers {
		switch h.Dict.ChatName {
		case "summary", "applicant_lookup_agent":
			if content := h.Dict.ChatResponse.ChatMessage.Dict.Content; content != "" {
				sb.WriteString(content)
				sb.WriteString("\n")
			}
		}
	}

	if sb.Len() == 0 {
		return raw
	}
	return sb.String()
}

func itemName(item model.ResultItem) string {
	if item.Name == "" {
		return "Unnamed CV"
	}
	return item.Name
}

func ComparisonPrompt(items []model.ResultItem) string {
	var sb strings.Builder
	sb.WriteString("Please provide a comprehensive comparison and summary of the following CV analyses:\n\n")

	for _, item := range items {
		fmt.Fprintf(&sb, "CV: %s\n", itemName(item))
		fmt.Fprintf(&sb, "Analysis: %s\n\n", AnalysisContent(item))
	}

	sb.WriteString("Please compare the candidates based on their qualifications, experience, skills, and overall suitability for the position. " +
		"Highlight the strongest candidates and explain why. " +
		"Create a table comparing key aspects across all candidates and provide a final ranking with rationale.")

	return sb.String()
}

func InterviewPrompt(item model.ResultItem) string {
	return fmt.Sprintf(`Generate 5 tailored interview questions for the candidate based on the following CV analysis:

CV: %s
Analysis: %s

Please include:
1. At least one probing question if you detect any inconsistencies between claimed skills and actual experience
2. Questions focused on verifying the depth of knowledge in key technical areas mentioned in the CV
3. Behavioral questions related to the role requirements
4. Questions addressing any potential gaps in their profile relative to the job requirements

Format the questions as a numbered list with brief explanations for why each question is important to ask.
`, itemName(item), AnalysisContent(item))
}
