package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ResultItem is the analysis of a single submitted document. A document that could not be
// analyzed still gets an item, with the failure in Analysis and empty thread/message ids.
type ResultItem struct {
	Name      string `json:"CV Name"`
	Analysis  string `json:"Analysis"`
	ThreadID  string `json:"Thread ID"`
	MessageID string `json:"Message ID"`
}

// ResultSet is the persisted outcome of one batch, in submission order.
type ResultSet struct {
	Items     []ResultItem `json:"results"`
	ThreadIDs []string     `json:"thread_ids"`
	Summary   *string      `json:"summary"`
	CreatedAt time.Time    `json:"created_at"`
}

func (r ResultSet) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}

// Result is the row holding a ResultSet.
type Result struct {
	ID        string                        `gorm:"primaryKey;column:id;type:VARCHAR(64)"`
	Data      datatypes.JSONType[ResultSet] `gorm:"column:results_data;not null"`
	CreatedAt time.Time                     `gorm:"not null"`
	UpdatedAt time.Time                     `gorm:"not null"`
}

func (Result) TableName() string {
	return "analysis_results"
}

func NewResult(id string, rs ResultSet, now time.Time) Result {
	return Result{
		ID:        id,
		Data:      datatypes.NewJSONType(rs),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
