package events

// JobEvent is the payload of every job lifecycle event.
type JobEvent struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Items     int    `json:"items,omitempty"`
	Failed    int    `json:"failed,omitempty"`
	ResultsID string `json:"results_id,omitempty"`
	Message   string `json:"message,omitempty"`
}
