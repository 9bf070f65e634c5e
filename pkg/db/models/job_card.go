package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// JobCard groups cutting/printing/stitching jobs under one order. Deleting a
// job card reverses all material consumption attributed to its components.
type JobCard struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	JobCardNumber string             `gorm:"column:job_card_number;not null;uniqueIndex"`
	Status        enums.JobStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	Notes         *string            `gorm:"column:notes"`
	Components    []CuttingComponent `gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
	CuttingJobs   []CuttingJob       `gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
	PrintingJobs  []PrintingJob      `gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
	StitchingJobs []StitchingJob     `gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
