package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/refurbtrack/refurb-tracker/internal/config"
	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/refurbtrack/refurb-tracker/pkg/metrics"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Scraper fetches and normalizes the vendor's refurbished catalog. It is a
// collaborator of the diff core: its only contract is to hand back a fully
// materialized list of normalized records for one run.
type Scraper struct {
	client     *resty.Client
	catalogURL string
	maxPages   int
	logger     *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Scraper {
	client := resty.New().
		SetTimeout(cfg.HTTPTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "en-GB,en;q=0.9")

	return &Scraper{
		client:     client,
		catalogURL: cfg.CatalogURL,
		maxPages:   cfg.MaxPages,
		logger:     logger,
	}
}

// FetchCatalog walks the landing page plus every discovered subcategory
// page and returns the normalized records. The same product showing up on
// two category pages is expected and collapsed by URL; two different
// records claiming the same SKU is not, and is left for snapshot
// construction to reject.
func (s *Scraper) FetchCatalog(ctx context.Context) ([]models.ProductRecord, error) {
	now := time.Now().UTC()

	landing, err := s.getPage(ctx, s.catalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetch landing page: %w", err)
	}

	categories, err := DiscoverCategoryLinks(bytes.NewReader(landing), s.catalogURL)
	if err != nil {
		return nil, err
	}

	pages := append([]string{s.catalogURL}, categories...)
	if len(pages) > s.maxPages {
		s.logger.Warn("Discovered more category pages than allowed, truncating",
			"discovered", len(pages), "limit", s.maxPages)
		pages = pages[:s.maxPages]
	}

	seenURL := map[string]bool{}
	var records []models.ProductRecord

	for i, pageURL := range pages {
		body := landing
		if i > 0 {
			body, err = s.getPage(ctx, pageURL)
			if err != nil {
				// One broken category page must not wipe half the catalog
				// from the snapshot and fake a mass disappearance.
				return nil, fmt.Errorf("fetch category page %s: %w", pageURL, err)
			}
		}

		pageRecords, err := ParseCategoryPage(bytes.NewReader(body), pageURL, now)
		if err != nil {
			return nil, err
		}

		fresh := 0
		for _, rec := range pageRecords {
			if seenURL[rec.URL] {
				continue
			}
			seenURL[rec.URL] = true
			records = append(records, rec)
			fresh++
		}
		s.logger.Debug("Parsed category page", "url", pageURL, "products", len(pageRecords), "new", fresh)
	}

	metrics.PagesScraped.Observe(float64(len(pages)))
	s.logger.Info("Catalog scrape complete", "pages", len(pages), "products", len(records))
	return records, nil
}

func (s *Scraper) getPage(ctx context.Context, pageURL string) ([]byte, error) {
	res, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("unexpected status %d for %s", res.StatusCode(), pageURL)
	}
	return res.Body(), nil
}
