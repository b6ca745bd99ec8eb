// Package client is the typed HTTP client for the careertrack API. It is
// the only layer that talks to the server; callers get canonical response
// structs or typed errors and never see raw HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/careertrack/careertrack/internal/jobsearch"
)

// ErrAuthRequired is returned when the server rejects a call for missing
// authentication. It is the only error that triggers the offline outbox;
// everything else surfaces to the user.
var ErrAuthRequired = errors.New("Authentication required")

// APIError is any non-2xx response other than an auth rejection.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL   string
	UserEmail string
	HTTP      *http.Client
}

func New(baseURL, userEmail string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserEmail: userEmail,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) CreateApplication(ctx context.Context, req *dtos.ApplicationCreateRequest) (*dtos.ApplicationResponse, error) {
	var out dtos.ApplicationResponse
	if err := c.do(ctx, http.MethodPost, "/api/applications", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetApplication(ctx context.Context, id uint) (*dtos.ApplicationResponse, error) {
	var out dtos.ApplicationResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/applications/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListApplications(ctx context.Context) ([]dtos.ApplicationResponse, error) {
	var out []dtos.ApplicationResponse
	if err := c.do(ctx, http.MethodGet, "/api/applications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CompleteStep(ctx context.Context, stepID uint, data json.RawMessage) (*dtos.ApplicationResponse, error) {
	req := dtos.StepCompleteRequest{Data: data}
	var out dtos.ApplicationResponse
	path := fmt.Sprintf("/api/applications/steps/%d/complete", stepID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitApplication(ctx context.Context, id uint, applied bool) (*dtos.ApplicationResponse, error) {
	req := dtos.ApplicationSubmitRequest{Applied: applied}
	var out dtos.ApplicationResponse
	path := fmt.Sprintf("/api/applications/%d/submit", id)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InterviewProcesses(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/interview-processes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*dtos.DashboardStats, error) {
	var out dtos.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchJobs(ctx context.Context, title, location string) ([]jobsearch.Listing, error) {
	q := url.Values{}
	q.Set("title", title)
	if location != "" {
		q.Set("location", location)
	}
	var out []jobsearch.Listing
	if err := c.do(ctx, http.MethodGet, "/api/jobs/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) JobSources(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/api/jobs/sources", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserEmail != "" {
		req.Header.Set("X-User-Email", c.UserEmail)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}

	if resp.StatusCode == http.StatusUnauthorized || strings.Contains(msg, "Authentication required") {
		return ErrAuthRequired
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
