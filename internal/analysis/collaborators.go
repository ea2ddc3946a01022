package analysis

import (
	"context"
	"io"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

// Item is one uploaded document of a batch.
type Item struct {
	Name string
	Path string
}

// Analysis is what the analyzer returns for a single document.
type Analysis struct {
	Text      string
	ThreadID  string
	MessageID string
}

type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, text, identifier string) (*Analysis, error)
}

// Summarizer compares the analyses of a batch. A worker without summarizer stores no summary.
type Summarizer interface {
	Summarize(ctx context.Context, items []model.ResultItem) (string, error)
}

// Uploads removes the transient copy of a document. It never fails.
type Uploads interface {
	Remove(path string)
}

type EventWriter interface {
	Write(ctx context.Context, kind string, body io.Reader) error
}
