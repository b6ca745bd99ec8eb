package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrStepOrder       = errors.New("previous steps must be completed first")
	ErrStepsIncomplete = errors.New("all steps must be completed before submit")
	ErrAlreadyFinal    = errors.New("application already submitted")
)

type ApplicationService struct {
	DB *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{DB: db}
}

// Create stores a new application together with its four step records.
// The step set is fixed at creation; nothing ever adds a fifth.
func (s *ApplicationService) Create(userID uint, req *dtos.ApplicationCreateRequest) (*models.Application, error) {
	app := &models.Application{
		UserID:      userID,
		JobTitle:    req.JobTitle,
		Company:     req.Company,
		Location:    req.Location,
		Description: req.Description,
		URL:         req.URL,
		Source:      req.Source,
		Notes:       req.Notes,
		Status:      models.StatusInProgress,
		Version:     1,
	}
	for _, name := range models.StepNames {
		app.Steps = append(app.Steps, models.ApplicationStep{Name: name})
	}
	if err := s.DB.Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// Get loads one application with its steps, scoped to the owner.
func (s *ApplicationService) Get(userID, id uint) (*models.Application, error) {
	var app models.Application
	err := s.DB.Preload("Steps").Where("user_id = ?", userID).First(&app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns the owner's applications, newest first, steps included.
func (s *ApplicationService) List(userID uint) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Preload("Steps").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// CompleteStep marks a step done with its payload. Steps complete strictly
// in order; completing an already-completed step just refreshes its data.
func (s *ApplicationService) CompleteStep(userID, stepID uint, data string) (*models.Application, error) {
	var step models.ApplicationStep
	if err := s.DB.First(&step, stepID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	app, err := s.Get(userID, step.ApplicationID)
	if err != nil {
		return nil, err
	}

	order := models.StepOrder(step.Name)
	if order < 0 {
		return nil, fmt.Errorf("unknown step name %q", step.Name)
	}
	for _, prev := range app.Steps {
		if models.StepOrder(prev.Name) < order && !prev.Completed {
			return nil, ErrStepOrder
		}
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"completed":    true,
			"data":         data,
			"completed_at": now,
		}
		if err := tx.Model(&step).Updates(updates).Error; err != nil {
			return err
		}
		return bumpVersion(tx, app)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, app.ID)
}

// Submit finalizes an application once all four steps are complete. The
// applied flag decides whether the record lands as Applied or stays In
// Progress for a later manual send.
func (s *ApplicationService) Submit(userID, id uint, applied bool) (*models.Application, error) {
	app, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if app.Status == models.StatusApplied {
		return nil, ErrAlreadyFinal
	}
	for _, st := range app.Steps {
		if !st.Completed {
			return nil, ErrStepsIncomplete
		}
	}

	status := models.StatusInProgress
	var appliedAt *time.Time
	if applied {
		status = models.StatusApplied
		now := time.Now()
		appliedAt = &now
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": status}
		if appliedAt != nil {
			updates["applied_at"] = appliedAt
		}
		if err := tx.Model(app).Updates(updates).Error; err != nil {
			return err
		}
		return bumpVersion(tx, app)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, id)
}

// SetStatus moves an application to a new tracked status (used by the
// email watcher). Interviewing/Offer transitions open an interview
// process row if none exists yet.
func (s *ApplicationService) SetStatus(appID uint, status, note string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	var app models.Application
	if err := s.DB.First(&app, appID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&app).Update("status", status).Error; err != nil {
			return err
		}
		if err := bumpVersion(tx, &app); err != nil {
			return err
		}
		if status == models.StatusInterviewing || status == models.StatusOffer {
			var proc models.InterviewProcess
			err := tx.Where(models.InterviewProcess{ApplicationID: app.ID}).
				Assign(models.InterviewProcess{Stage: status, Notes: note}).
				FirstOrCreate(&proc).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// InterviewProcesses lists the owner's interview pipelines.
func (s *ApplicationService) InterviewProcesses(userID uint) ([]models.InterviewProcess, error) {
	var procs []models.InterviewProcess
	err := s.DB.
		Joins("JOIN applications ON applications.id = interview_processes.application_id").
		Where("applications.user_id = ?", userID).
		Order("interview_processes.updated_at DESC").
		Find(&procs).Error
	return procs, err
}

// Stats aggregates the dashboard counters.
func (s *ApplicationService) Stats(userID uint) (*dtos.DashboardStats, error) {
	stats := &dtos.DashboardStats{ByStatus: map[string]int64{}}

	if err := s.DB.Model(&models.Application{}).
		Where("user_id = ?", userID).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	rows := []struct {
		Status string
		N      int64
	}{}
	err := s.DB.Model(&models.Application{}).
		Select("status, count(*) as n").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.N
	}
	stats.Submitted = stats.ByStatus[models.StatusApplied] +
		stats.ByStatus[models.StatusInterviewing] +
		stats.ByStatus[models.StatusOffer] +
		stats.ByStatus[models.StatusAccepted]

	err = s.DB.Model(&models.Application{}).
		Where("user_id = ? AND updated_at > ?", userID, time.Now().AddDate(0, 0, -7)).
		Count(&stats.ActiveWeek).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// bumpVersion advances the application's mutation counter atomically so a
// client can recognize when its write has landed.
func bumpVersion(tx *gorm.DB, app *models.Application) error {
	return tx.Model(&models.Application{}).
		Where("id = ?", app.ID).
		Update("version", gorm.Expr("version + 1")).Error
}
