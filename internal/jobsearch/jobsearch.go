// Package jobsearch aggregates external job boards behind one search
// call. Sources run concurrently; a failing source is logged and skipped
// rather than failing the whole search.
package jobsearch

import (
	"context"
	"sync"
	"time"

	"github.com/careertrack/careertrack/internal/logger"
)

// Listing is the normalized job shape every source produces.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Salary      string    `json:"salary,omitempty"`
	PostedDate  time.Time `json:"posted_date"`
}

type SearchParams struct {
	Title    string
	Location string
}

type Source interface {
	Name() string
	Search(ctx context.Context, params SearchParams) ([]Listing, error)
}

type Aggregator struct {
	sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// Sources returns the names of the configured boards.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.Name())
	}
	return names
}

func (a *Aggregator) Search(ctx context.Context, params SearchParams) ([]Listing, error) {
	log := logger.Get()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []Listing
	)

	for _, source := range a.sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()

			listings, err := s.Search(ctx, params)
			if err != nil {
				log.Warn().Err(err).Str("source", s.Name()).Msg("Source search failed")
				return
			}

			mu.Lock()
			results = append(results, listings...)
			mu.Unlock()
		}(source)
	}

	wg.Wait()
	return results, nil
}
