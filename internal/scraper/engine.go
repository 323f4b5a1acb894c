// Package scraper discovers contractor websites for a location and
// extracts structured records from them.
package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/contractor"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
)

// skipDomains are directories and aggregators that never carry a single
// business's own contact page.
var skipDomains = map[string]bool{
	"yelp.com":              true,
	"yellowpages.com":       true,
	"facebook.com":          true,
	"instagram.com":         true,
	"linkedin.com":          true,
	"angi.com":              true,
	"homeadvisor.com":       true,
	"thumbtack.com":         true,
	"bbb.org":               true,
	"mapquest.com":          true,
	"manta.com":             true,
	"porch.com":             true,
	"houzz.com":             true,
	"nextdoor.com":          true,
	"expertise.com":         true,
	"threebestrated.com":    true,
	"chamberofcommerce.com": true,
	"google.com":            true,
	"wikipedia.org":         true,
}

// Config tunes a collection run.
type Config struct {
	Threads        int           // concurrent page workers
	PerSiteTimeout time.Duration // budget per fetched page
}

// Progress is reported after each category completes and as records
// are found.
type Progress struct {
	Category       string `json:"category"`
	CategoriesDone int    `json:"categories_done"`
	TotalFound     int    `json:"total_found"`
}

// Engine runs the two-phase collection: discover candidate sites, then
// fetch and extract each one, feeding results through the ingestion
// gateway.
type Engine struct {
	searcher  Searcher
	reader    Reader
	extractor Extractor
	gateway   *contractor.Gateway
	cfg       Config
	log       *zap.Logger
}

// NewEngine creates a collection engine.
func NewEngine(searcher Searcher, reader Reader, extractor Extractor, gw *contractor.Gateway, cfg Config) *Engine {
	if cfg.Threads <= 0 {
		cfg.Threads = 3
	}
	if cfg.PerSiteTimeout <= 0 {
		cfg.PerSiteTimeout = 90 * time.Second
	}
	return &Engine{
		searcher:  searcher,
		reader:    reader,
		extractor: extractor,
		gateway:   gw,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "scraper")),
	}
}

// Collect scrapes every category for the location. report is called
// after each category with cumulative counts; it may be nil. Returns
// the number of new records created.
func (e *Engine) Collect(ctx context.Context, loc model.Location, categories []string, report func(Progress)) (int, error) {
	var total atomic.Int64
	visited := newDomainSet()

	for done, category := range categories {
		if err := ctx.Err(); err != nil {
			return int(total.Load()), err
		}

		found, err := e.collectCategory(ctx, loc, category, visited, &total)
		if err != nil {
			return int(total.Load()), err
		}

		e.log.Info("category complete",
			zap.String("category", category),
			zap.String("location", loc.SearchString()),
			zap.Int("found", found))

		if report != nil {
			report(Progress{
				Category:       category,
				CategoriesDone: done + 1,
				TotalFound:     int(total.Load()),
			})
		}
	}
	return int(total.Load()), nil
}

func (e *Engine) collectCategory(ctx context.Context, loc model.Location, category string, visited *domainSet, total *atomic.Int64) (int, error) {
	var categoryFound atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Threads)

	for _, term := range model.SearchTermsFor(category) {
		candidates, err := e.searcher.Discover(gctx, term, loc.SearchString())
		if err != nil {
			// One failed search term should not sink the category.
			e.log.Warn("discovery failed",
				zap.String("term", term), zap.Error(err))
			continue
		}

		for _, cand := range candidates {
			domain := normalize.Website(cand.URL)
			if domain == "" || skipDomains[rootDomain(domain)] || !visited.add(domain) {
				continue
			}

			cand := cand
			g.Go(func() error {
				n := e.processSite(gctx, cand, loc, category)
				categoryFound.Add(int64(n))
				total.Add(int64(n))
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return int(categoryFound.Load()), err
	}
	return int(categoryFound.Load()), ctx.Err()
}

// processSite fetches and extracts one site. Failures and timeouts
// yield zero records rather than an error; the site simply contributes
// nothing.
func (e *Engine) processSite(ctx context.Context, cand Candidate, loc model.Location, category string) int {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.PerSiteTimeout)
	defer cancel()

	content, err := e.reader.Fetch(sctx, cand.URL)
	if err != nil {
		e.log.Debug("fetch failed", zap.String("url", cand.URL), zap.Error(err))
		return 0
	}

	extracted, err := e.extractor.Extract(sctx, cand.URL, content, category)
	if err != nil {
		e.log.Debug("extraction failed", zap.String("url", cand.URL), zap.Error(err))
		return 0
	}

	created := 0
	for _, biz := range extracted {
		if !InRegion(biz.State, loc.State) {
			continue
		}
		website := biz.Website
		if website == "" {
			website = cand.URL
		}
		result, err := e.gateway.Ingest(ctx, &model.Contractor{
			Name:             biz.Name,
			Category:         category,
			Address:          biz.Address,
			City:             biz.City,
			State:            biz.State,
			ZipCode:          biz.ZipCode,
			Phone:            biz.Phone,
			Email:            biz.Email,
			Website:          website,
			Source:           "web_scrape",
			LocationSearched: loc.SearchString(),
		})
		if err != nil {
			e.log.Warn("ingest failed", zap.String("name", biz.Name), zap.Error(err))
			continue
		}
		if result.Action == contractor.ActionCreated {
			created++
		}
	}
	return created
}

// rootDomain collapses subdomains so www.yelp.com and m.yelp.com both
// hit the skip list.
func rootDomain(domain string) string {
	parts := splitDomain(domain)
	if len(parts) < 2 {
		return domain
	}
	return parts[len(parts)-2] + "." + parts[len(parts)-1]
}

func splitDomain(domain string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(domain); i++ {
		if domain[i] == '.' {
			parts = append(parts, domain[start:i])
			start = i + 1
		}
	}
	return append(parts, domain[start:])
}

// domainSet tracks which domains a job has already processed.
type domainSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newDomainSet() *domainSet {
	return &domainSet{seen: map[string]bool{}}
}

// add returns false when the domain was already present.
func (d *domainSet) add(domain string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[domain] {
		return false
	}
	d.seen[domain] = true
	return true
}
