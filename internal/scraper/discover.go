package scraper

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/pkg/jina"
)

// Candidate is one discovered business website.
type Candidate struct {
	Title       string
	URL         string
	Description string
}

// Searcher finds candidate business websites for a search term in a
// location.
type Searcher interface {
	Discover(ctx context.Context, term, location string) ([]Candidate, error)
}

// Reader fetches a page and returns its text content.
type Reader interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// jinaSearcher implements Searcher and Reader on the Jina APIs with a
// shared rate limit across all workers.
type jinaSearcher struct {
	client  jina.Client
	limiter *rate.Limiter
	count   int
}

// NewJinaSearcher creates a Searcher/Reader pair on one Jina client.
// rps caps outgoing requests per second across discovery and fetching.
func NewJinaSearcher(client jina.Client, rps float64, resultsPerTerm int) *jinaSearcher {
	if rps <= 0 {
		rps = 2
	}
	if resultsPerTerm <= 0 {
		resultsPerTerm = 10
	}
	return &jinaSearcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		count:   resultsPerTerm,
	}
}

func (s *jinaSearcher) Discover(ctx context.Context, term, location string) ([]Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("%s %s", term, location)
	resp, err := s.client.Search(ctx, query, jina.WithCount(s.count))
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.URL == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return candidates, nil
}

func (s *jinaSearcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := s.client.Read(ctx, url)
	if err != nil {
		return "", err
	}
	return resp.Data.Content, nil
}
