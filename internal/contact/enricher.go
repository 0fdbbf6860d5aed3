package contact

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-cli/internal/model"
)

// PageFetcher downloads the raw content of a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Result is the enrichment outcome for one lead. Fetched is false when the
// page could not be downloaded; Reason then says why. A lead without a
// website has Skipped set.
type Result struct {
	Lead    model.Lead          `json:"lead"`
	Bundle  model.ContactBundle `json:"bundle"`
	Fetched bool                `json:"fetched"`
	Skipped bool                `json:"skipped"`
	Reason  string              `json:"reason,omitempty"`
}

// Enricher fetches one page per lead and extracts contact signals from it.
type Enricher struct {
	fetcher       PageFetcher
	maxConcurrent int
}

// NewEnricher creates an Enricher. maxConcurrent <= 1 enriches leads one at a
// time.
func NewEnricher(f PageFetcher, maxConcurrent int) *Enricher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Enricher{fetcher: f, maxConcurrent: maxConcurrent}
}

// Enrich returns one Result per lead, in input order. The returned leads carry
// the extracted contacts. Fetch failures never abort the batch; the lead keeps
// empty enrichment fields.
func (e *Enricher) Enrich(ctx context.Context, leads []model.Lead) []Result {
	results := make([]Result, len(leads))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i, lead := range leads {
		g.Go(func() error {
			results[i] = e.enrichOne(gCtx, lead)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Enricher) enrichOne(ctx context.Context, lead model.Lead) Result {
	website := strings.TrimSpace(lead.Website)
	if website == "" {
		return Result{Lead: lead, Skipped: true}
	}

	log := zap.L().With(zap.String("lead", lead.Name), zap.String("website", website))
	log.Info("contact: scraping website")

	content, err := e.fetcher.Fetch(ctx, website)
	if err != nil {
		log.Warn("contact: fetch failed, no signals extracted", zap.Error(err))
		return Result{Lead: lead, Reason: err.Error()}
	}

	b := ExtractDocument(content)
	log.Info("contact: extracted signals",
		zap.String("email", b.Email),
		zap.String("instagram", b.Instagram),
		zap.String("facebook", b.Facebook),
		zap.String("linkedin", b.LinkedIn),
	)

	return Result{Lead: lead.WithContacts(b), Bundle: b, Fetched: true}
}
