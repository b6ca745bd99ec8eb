package models

import (
	"time"

	"gorm.io/gorm"
)

// Application status values. Closed set; anything else is rejected at the
// service boundary.
const (
	StatusNotStarted   = "Not Started"
	StatusInProgress   = "In Progress"
	StatusApplied      = "Applied"
	StatusInterviewing = "Interviewing"
	StatusOffer        = "Offer"
	StatusRejected     = "Rejected"
	StatusAccepted     = "Accepted"
	StatusWithdrawn    = "Withdrawn"
)

// ValidStatus reports whether s is one of the eight known statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusApplied, StatusInterviewing,
		StatusOffer, StatusRejected, StatusAccepted, StatusWithdrawn:
		return true
	}
	return false
}

// The four fixed wizard stages, in completion order.
const (
	StepPersonalInfo = "personal_info"
	StepResume       = "resume"
	StepCoverLetter  = "cover_letter"
	StepReview       = "review"
)

// StepNames is the per-application step set, created with the application
// and never extended afterwards.
var StepNames = []string{StepPersonalInfo, StepResume, StepCoverLetter, StepReview}

// StepOrder returns the position of a step name, or -1 for unknown names.
func StepOrder(name string) int {
	for i, n := range StepNames {
		if n == name {
			return i
		}
	}
	return -1
}

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	LastHistoryID uint64 `json:"last_history_id"`
}

// Application is the canonical record for one tracked job application.
// Version increases on every mutation so clients can wait for a write they
// made to become visible instead of guessing with fixed delays.
type Application struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"index" json:"user_id"`

	JobTitle    string `gorm:"not null" json:"job_title"`
	Company     string `gorm:"not null" json:"company"`
	Location    string `json:"location"`
	Description string `gorm:"type:text" json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Notes       string `gorm:"type:text" json:"notes"`

	Status    string     `gorm:"default:'Not Started'" json:"status"`
	Version   uint64     `gorm:"default:1" json:"version"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`

	Steps []ApplicationStep `json:"steps,omitempty"`
}

// ApplicationStep is one of the four fixed wizard stages. Data holds the
// per-step payload as raw JSON text.
type ApplicationStep struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ApplicationID uint       `gorm:"index;not null" json:"application_id"`
	Name          string     `gorm:"not null" json:"name"`
	Completed     bool       `json:"completed"`
	Data          string     `gorm:"type:text" json:"data,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// InterviewProcess tracks the interview pipeline for one application once
// it moves past Applied. Fed by submit transitions and the email watcher.
type InterviewProcess struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ApplicationID uint      `gorm:"index;not null" json:"application_id"`
	Stage         string    `json:"stage"`
	Notes         string    `gorm:"type:text" json:"notes"`
}

// ProcessedEmail dedups watcher work across sync cycles.
type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}
