package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// CuttingJob is the cutting stage of a job card.
type CuttingJob struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobCardID   uuid.UUID       `gorm:"column:job_card_id;type:uuid;not null;index"`
	WorkerName  string          `gorm:"column:worker_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Status      enums.JobStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StartedAt   *time.Time      `gorm:"column:started_at"`
	CompletedAt *time.Time      `gorm:"column:completed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PrintingJob is the printing stage of a job card.
type PrintingJob struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobCardID   uuid.UUID       `gorm:"column:job_card_id;type:uuid;not null;index"`
	WorkerName  string          `gorm:"column:worker_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Status      enums.JobStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StartedAt   *time.Time      `gorm:"column:started_at"`
	CompletedAt *time.Time      `gorm:"column:completed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// StitchingJob is the stitching stage of a job card.
type StitchingJob struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobCardID   uuid.UUID       `gorm:"column:job_card_id;type:uuid;not null;index"`
	WorkerName  string          `gorm:"column:worker_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Status      enums.JobStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StartedAt   *time.Time      `gorm:"column:started_at"`
	CompletedAt *time.Time      `gorm:"column:completed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
