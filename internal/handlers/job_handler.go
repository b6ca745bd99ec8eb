package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/jobsearch"
	"github.com/gin-gonic/gin"
)

// JobSearcher is the aggregation surface behind /api/jobs.
type JobSearcher interface {
	Search(ctx context.Context, params jobsearch.SearchParams) ([]jobsearch.Listing, error)
	Sources() []string
}

// Extractor turns raw posting HTML into structured job fields.
type Extractor interface {
	ExtractJobDetails(ctx context.Context, rawHTML string) (string, error)
}

type JobHandler struct {
	Searcher  JobSearcher
	Extractor Extractor
}

func NewJobHandler(searcher JobSearcher, extractor Extractor) *JobHandler {
	return &JobHandler{Searcher: searcher, Extractor: extractor}
}

// SearchJobs is GET /api/jobs/search.
func (h *JobHandler) SearchJobs(c *gin.Context) {
	title := c.Query("title")
	location := c.Query("location")

	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'title' is required"})
		return
	}

	listings, err := h.Searcher.Search(c.Request.Context(), jobsearch.SearchParams{
		Title:    title,
		Location: location,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, listings)
}

// JobSources is GET /api/jobs/sources.
func (h *JobHandler) JobSources(c *gin.Context) {
	c.JSON(http.StatusOK, h.Searcher.Sources())
}

// ExtractJob is POST /api/jobs/extract.
func (h *JobHandler) ExtractJob(c *gin.Context) {
	var req dtos.JobExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	extractedJSON, err := h.Extractor.ExtractJobDetails(c.Request.Context(), req.RawHTML)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Extraction failed: " + err.Error()})
		return
	}

	// json.RawMessage keeps the model's JSON from being re-escaped.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    json.RawMessage(extractedJSON),
	})
}

// HealthCheck is GET /api/health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
