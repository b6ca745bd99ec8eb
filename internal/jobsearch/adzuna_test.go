package jobsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adzunaFixture = `{
  "results": [
    {
      "id": "4321",
      "title": "Backend Engineer",
      "company": {"display_name": "Acme"},
      "location": {"display_name": "London"},
      "description": "Go services",
      "redirect_url": "https://adzuna.example/job/4321",
      "salary_min": 60000,
      "salary_max": 80000,
      "created": "2024-05-01T09:00:00Z"
    }
  ]
}`

func TestAdzunaSearch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"app_id":  q.Get("app_id"),
			"app_key": q.Get("app_key"),
			"what":    q.Get("what"),
			"where":   q.Get("where"),
		}
		w.Write([]byte(adzunaFixture))
	}))
	defer srv.Close()

	src := NewAdzunaSource("id-1", "key-1")
	src.BaseURL = srv.URL

	got, err := src.Search(context.Background(), SearchParams{Title: "backend", Location: "london"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", gotQuery["app_id"])
	assert.Equal(t, "key-1", gotQuery["app_key"])
	assert.Equal(t, "backend", gotQuery["what"])
	assert.Equal(t, "london", gotQuery["where"])

	require.Len(t, got, 1)
	l := got[0]
	assert.Equal(t, "4321", l.ID)
	assert.Equal(t, "Acme", l.Company)
	assert.Equal(t, "London", l.Location)
	assert.Equal(t, "adzuna", l.Source)
	assert.Equal(t, "60000 - 80000", l.Salary)
	assert.Equal(t, "https://adzuna.example/job/4321", l.URL)
}

func TestAdzunaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewAdzunaSource("id-1", "bad-key")
	src.BaseURL = srv.URL

	_, err := src.Search(context.Background(), SearchParams{Title: "backend"})
	assert.Error(t, err)
}

func TestFormatSalary(t *testing.T) {
	assert.Equal(t, "", formatSalary(0, 0))
	assert.Equal(t, "60000", formatSalary(60000, 0))
	assert.Equal(t, "60000", formatSalary(60000, 60000))
	assert.Equal(t, "60000 - 80000", formatSalary(60000, 80000))
}
