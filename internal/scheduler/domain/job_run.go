package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

const (
	JobDailySchedule   = "daily_schedule"
	JobJobRunRetention = "job_run_retention"
)

// JobRun is the audit row written for every scheduler job execution.
type JobRun struct {
	ID         snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	JobName    string            `gorm:"type:varchar(64);not null;index" json:"jobName"`
	TargetDate *time.Time        `json:"targetDate,omitempty"`
	Status     RunStatus         `gorm:"type:varchar(16);not null" json:"status"`
	Processed  int               `gorm:"column:processed_count;not null;default:0" json:"processed"`
	Details    datatypes.JSONMap `json:"details,omitempty"`
	Error      *string           `json:"error,omitempty"`
	StartedAt  time.Time         `gorm:"not null;index" json:"startedAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
}

func (JobRun) TableName() string { return "scheduler_job_runs" }
