package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/models"
	"github.com/careertrack/careertrack/internal/services"
	"github.com/gin-gonic/gin"
)

// ApplicationStore is the service surface this handler needs.
type ApplicationStore interface {
	Create(userID uint, req *dtos.ApplicationCreateRequest) (*models.Application, error)
	Get(userID, id uint) (*models.Application, error)
	List(userID uint) ([]models.Application, error)
	CompleteStep(userID, stepID uint, data string) (*models.Application, error)
	Submit(userID, id uint, applied bool) (*models.Application, error)
	InterviewProcesses(userID uint) ([]models.InterviewProcess, error)
	Stats(userID uint) (*dtos.DashboardStats, error)
}

type ApplicationHandler struct {
	Store ApplicationStore
}

func NewApplicationHandler(store ApplicationStore) *ApplicationHandler {
	return &ApplicationHandler{Store: store}
}

// CreateApplication is POST /api/applications.
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	var req dtos.ApplicationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	app, err := h.Store.Create(currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dtos.NewApplicationResponse(app))
}

// GetApplication is GET /api/applications/:id.
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := h.Store.Get(currentUserID(c), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.NewApplicationResponse(app))
}

// ListApplications is GET /api/applications. With ?view=legacy the
// records come back through the alias adapter for older dashboards.
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	apps, err := h.Store.List(currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list applications: " + err.Error()})
		return
	}

	if c.Query("view") == "legacy" {
		out := make([]models.LegacyRecord, 0, len(apps))
		for i := range apps {
			out = append(out, models.ToLegacy(&apps[i]))
		}
		c.JSON(http.StatusOK, out)
		return
	}

	out := make([]dtos.ApplicationResponse, 0, len(apps))
	for i := range apps {
		out = append(out, dtos.NewApplicationResponse(&apps[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CompleteStep is POST /api/applications/steps/:stepId/complete.
func (h *ApplicationHandler) CompleteStep(c *gin.Context) {
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}
	var req dtos.StepCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	app, err := h.Store.CompleteStep(currentUserID(c), stepID, string(req.Data))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.NewApplicationResponse(app))
}

// SubmitApplication is POST /api/applications/:id/submit.
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dtos.ApplicationSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	app, err := h.Store.Submit(currentUserID(c), id, req.Applied)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.NewApplicationResponse(app))
}

// ListInterviewProcesses is GET /api/interview-processes.
func (h *ApplicationHandler) ListInterviewProcesses(c *gin.Context) {
	procs, err := h.Store.InterviewProcesses(currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list interview processes: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, procs)
}

// DashboardStats is GET /api/dashboard/stats.
func (h *ApplicationHandler) DashboardStats(c *gin.Context) {
	stats, err := h.Store.Stats(currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id: " + raw})
		return 0, false
	}
	return uint(n), true
}

func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStepOrder),
		errors.Is(err, services.ErrStepsIncomplete),
		errors.Is(err, services.ErrAlreadyFinal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
