package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup is the task type for pre-computing ledger reports.
	TaskReportWarmup = "report:warmup"
)

// ReportWarmupPayload configures how far back the warmup reaches.
type ReportWarmupPayload struct {
	// Months is the size of the trailing window to warm, current month
	// included. Zero falls back to six months.
	Months int `json:"months"`
}

// NewReportWarmupTask constructs an Asynq task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}
