package dtos

import (
	"encoding/json"
	"time"

	"github.com/careertrack/careertrack/internal/models"
)

type ApplicationCreateRequest struct {
	JobTitle    string `json:"job_title" binding:"required"`
	Company     string `json:"company" binding:"required"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Notes       string `json:"notes"`
}

type StepCompleteRequest struct {
	// Arbitrary per-step payload; stored verbatim.
	Data json.RawMessage `json:"data"`
}

type ApplicationSubmitRequest struct {
	// Applied distinguishes "I already sent this application" from
	// "still working on it".
	Applied bool `json:"applied"`
}

// ApplicationResponse is the canonical application wire shape. Version
// lets a client poll until its own write is visible.
type ApplicationResponse struct {
	ID          uint                     `json:"id"`
	JobTitle    string                   `json:"job_title"`
	Company     string                   `json:"company"`
	Location    string                   `json:"location"`
	Description string                   `json:"description"`
	URL         string                   `json:"url"`
	Source      string                   `json:"source"`
	Notes       string                   `json:"notes"`
	Status      string                   `json:"status"`
	Version     uint64                   `json:"version"`
	AppliedAt   *time.Time               `json:"applied_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	Steps       []models.ApplicationStep `json:"steps,omitempty"`
}

func NewApplicationResponse(app *models.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:          app.ID,
		JobTitle:    app.JobTitle,
		Company:     app.Company,
		Location:    app.Location,
		Description: app.Description,
		URL:         app.URL,
		Source:      app.Source,
		Notes:       app.Notes,
		Status:      app.Status,
		Version:     app.Version,
		AppliedAt:   app.AppliedAt,
		CreatedAt:   app.CreatedAt,
		UpdatedAt:   app.UpdatedAt,
		Steps:       app.Steps,
	}
}

type JobExtractionRequest struct {
	RawHTML string `json:"raw_html" binding:"required"`
	URL     string `json:"url"`
}

// DashboardStats backs the dashboard-stats query key.
type DashboardStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	Submitted  int64            `json:"submitted"`
	ActiveWeek int64            `json:"active_week"`
}
