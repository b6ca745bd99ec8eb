package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careertrack/careertrack/internal/dtos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRejectionMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.CreateApplication(context.Background(), &dtos.ApplicationCreateRequest{
		JobTitle: "Backend Engineer", Company: "Acme",
	})
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestAuthMessageInNon401Body(t *testing.T) {
	// Some proxies rewrite the status; the message still identifies it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.SubmitApplication(context.Background(), 1, true)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestServerErrorMapsToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "db down"})
	}))
	defer srv.Close()

	c := New(srv.URL, "dev@example.com")
	_, err := c.ListApplications(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "db down", apiErr.Message)
}

func TestRequestShape(t *testing.T) {
	var gotPath, gotEmail, gotContentType string
	var gotBody dtos.StepCompleteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotEmail = r.Header.Get("X-User-Email")
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(dtos.ApplicationResponse{ID: 1, Version: 2})
	}))
	defer srv.Close()

	c := New(srv.URL, "dev@example.com")
	resp, err := c.CompleteStep(context.Background(), 7, json.RawMessage(`{"resume_id":"r1"}`))
	require.NoError(t, err)

	assert.Equal(t, "/api/applications/steps/7/complete", gotPath)
	assert.Equal(t, "dev@example.com", gotEmail)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"resume_id":"r1"}`, string(gotBody.Data))
	assert.EqualValues(t, 2, resp.Version)
}
