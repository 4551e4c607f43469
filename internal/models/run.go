package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// PipelineRun is one bookkeeping row per batch execution.
type PipelineRun struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Error      string

	TransactionsFetched int
	RewardsFetched      int
	RowsDropped         int
	RowsPublished       int
	RowsLoaded          int
	UsedSnapshot        bool
}
