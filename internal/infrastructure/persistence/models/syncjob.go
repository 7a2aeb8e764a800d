package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
)

// SyncJobModel is the persistence model for the SyncJob domain entity
type SyncJobModel struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key"`
	Type            syncjob.Type   `gorm:"type:varchar(20);not null"`
	Status          syncjob.Status `gorm:"type:varchar(20);not null;index:idx_sync_jobs_status"`
	OptionsJSON     string         `gorm:"type:text;column:options"`
	TotalItems      int            `gorm:"not null"`
	ProcessedItems  int            `gorm:"not null"`
	SuccessCount    int            `gorm:"not null"`
	FailedCount     int            `gorm:"not null"`
	ErrorsJSON      string         `gorm:"type:text;column:errors"`
	FailureReason   string         `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"not null;index:idx_sync_jobs_created_at"`
	UpdatedAt       time.Time      `gorm:"not null;autoUpdateTime:false"`
	StartedAt       *time.Time
	CompletedAt     *time.Time `gorm:"index:idx_sync_jobs_completed_at"`
	ExecutionTimeMs int64      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob
func (m *SyncJobModel) ToDomain() *syncjob.SyncJob {
	job := &syncjob.SyncJob{
		ID:             m.ID,
		Type:           m.Type,
		Status:         m.Status,
		TotalItems:     m.TotalItems,
		ProcessedItems: m.ProcessedItems,
		SuccessCount:   m.SuccessCount,
		FailedCount:    m.FailedCount,
		Errors:         make([]syncjob.ItemError, 0),
		FailureReason:  m.FailureReason,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
		ExecutionTime:  time.Duration(m.ExecutionTimeMs) * time.Millisecond,
	}

	if m.OptionsJSON != "" {
		var opts syncjob.Options
		if err := json.Unmarshal([]byte(m.OptionsJSON), &opts); err == nil {
			job.Options = opts
		}
	}
	if m.ErrorsJSON != "" {
		var errs []syncjob.ItemError
		if err := json.Unmarshal([]byte(m.ErrorsJSON), &errs); err == nil && errs != nil {
			job.Errors = errs
		}
	}

	return job
}

// FromDomain populates the persistence model from a domain SyncJob
func (m *SyncJobModel) FromDomain(j *syncjob.SyncJob) {
	m.ID = j.ID
	m.Type = j.Type
	m.Status = j.Status
	m.TotalItems = j.TotalItems
	m.ProcessedItems = j.ProcessedItems
	m.SuccessCount = j.SuccessCount
	m.FailedCount = j.FailedCount
	m.FailureReason = j.FailureReason
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
	m.ExecutionTimeMs = j.ExecutionTime.Milliseconds()

	if jsonBytes, err := json.Marshal(j.Options); err == nil {
		m.OptionsJSON = string(jsonBytes)
	}
	if len(j.Errors) > 0 {
		if jsonBytes, err := json.Marshal(j.Errors); err == nil {
			m.ErrorsJSON = string(jsonBytes)
		}
	} else {
		m.ErrorsJSON = "[]"
	}
}

// SyncJobModelFromDomain creates a new persistence model from a domain SyncJob
func SyncJobModelFromDomain(j *syncjob.SyncJob) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}
