package mappers

import (
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

const JobStatusNotFound = "not_found"

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"request_id,omitempty"`
}

type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobStatus struct {
	Status   string   `json:"status"`
	Progress *float64 `json:"progress,omitempty"`
	Message  string   `json:"message,omitempty"`
}

type Item struct {
	Index int `json:"index"`
	model.ResultItem
}

type InterviewQuestions struct {
	Index     int    `json:"index"`
	Name      string `json:"CV Name"`
	Questions string `json:"questions"`
}

type Health struct {
	Status string `json:"status"`
}

func JobToApi(job model.Job) JobStatus {
	progress := job.Progress
	return JobStatus{
		Status:   string(job.Status),
		Progress: &progress,
		Message:  job.Message,
	}
}

func JobNotFoundToApi() JobStatus {
	return JobStatus{Status: JobStatusNotFound}
}

// ResultSetToApi makes sure the lists are never rendered as null.
func ResultSetToApi(rs model.ResultSet) model.ResultSet {
	if rs.Items == nil {
		rs.Items = []model.ResultItem{}
	}
	if rs.ThreadIDs == nil {
		rs.ThreadIDs = []string{}
	}
	return rs
}

func ItemToApi(index int, item model.ResultItem) Item {
	return Item{Index: index, ResultItem: item}
}
