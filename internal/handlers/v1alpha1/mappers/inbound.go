package mappers

import (
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/service"
)

type FeedbackForm struct {
	MessageID string `json:"message_id" validate:"required,max=128,agent_id"`
	ThreadID  string `json:"thread_id" validate:"required,max=128,agent_id"`
	Positive  bool   `json:"positive"`
}

func FeedbackFormToService(form FeedbackForm) service.Feedback {
	return service.Feedback{
		MessageID: form.MessageID,
		ThreadID:  form.ThreadID,
		Positive:  form.Positive,
	}
}
