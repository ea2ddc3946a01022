package events

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"
)

// StdoutWriter logs each event as one line instead of shipping it. It is the writer used when no
// kafka broker is configured.
type StdoutWriter struct{}

var _ Writer = (*StdoutWriter)(nil)

func (s *StdoutWriter) Write(_ context.Context, topic string, e cloudevents.Event) error {
	zap.L().Named("events").Info("job event",
		zap.String("topic", topic),
		zap.String("id", e.ID()),
		zap.String("type", e.Type()),
		zap.String("source", e.Source()),
		zap.Time("time", e.Time()),
		zap.ByteString("data", e.Data()),
	)
	return nil
}

func (s *StdoutWriter) Close(context.Context) error {
	return nil
}
