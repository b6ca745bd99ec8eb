package jobsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs/gb/search/1"

// AdzunaSource searches the Adzuna aggregation API. It needs an app id
// and key (free tier works) from the Adzuna developer portal.
type AdzunaSource struct {
	AppID   string
	AppKey  string
	BaseURL string
	Client  *http.Client
}

func NewAdzunaSource(appID, appKey string) *AdzunaSource {
	return &AdzunaSource{
		AppID:   appID,
		AppKey:  appKey,
		BaseURL: adzunaBaseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *AdzunaSource) Name() string { return "adzuna" }

type adzunaResponse struct {
	Results []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Company struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
		Location struct {
			DisplayName string `json:"display_name"`
		} `json:"location"`
		Description string  `json:"description"`
		RedirectURL string  `json:"redirect_url"`
		SalaryMin   float64 `json:"salary_min"`
		SalaryMax   float64 `json:"salary_max"`
		Created     string  `json:"created"`
	} `json:"results"`
}

func (a *AdzunaSource) Search(ctx context.Context, params SearchParams) ([]Listing, error) {
	q := url.Values{}
	q.Set("app_id", a.AppID)
	q.Set("app_key", a.AppKey)
	q.Set("results_per_page", "20")
	q.Set("content-type", "application/json")
	if params.Title != "" {
		q.Set("what", params.Title)
	}
	if params.Location != "" {
		q.Set("where", params.Location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna: unexpected status %d", resp.StatusCode)
	}

	var body adzunaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	listings := make([]Listing, 0, len(body.Results))
	for _, r := range body.Results {
		posted, _ := time.Parse(time.RFC3339, r.Created)
		listings = append(listings, Listing{
			ID:          r.ID,
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: r.Description,
			URL:         r.RedirectURL,
			Source:      a.Name(),
			Salary:      formatSalary(r.SalaryMin, r.SalaryMax),
			PostedDate:  posted,
		})
	}
	return listings, nil
}

func formatSalary(minSalary, maxSalary float64) string {
	if minSalary == 0 && maxSalary == 0 {
		return ""
	}
	if maxSalary == 0 || minSalary == maxSalary {
		return strconv.Itoa(int(minSalary))
	}
	return fmt.Sprintf("%d - %d", int(minSalary), int(maxSalary))
}
