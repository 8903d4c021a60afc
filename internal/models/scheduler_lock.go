package models

import "time"

// SchedulerLock lets one instance claim a scheduled job run when several
// share a database. RunKey identifies the run, e.g. the hour or day.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobName   string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"job_name"`
	RunKey    string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"run_key"`
	Owner     string    `gorm:"size:100" json:"owner"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }
