package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mapharvest/harvester/internal/browser"
	"github.com/mapharvest/harvester/internal/config"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/internal/store/model"
	"github.com/mapharvest/harvester/pkg/metrics"
	"go.uber.org/zap"
)

var ErrMissingLink = errors.New("listing summary has no link")

type ExtractorConfig struct {
	UserAgent         string
	Labels            []DetailLabels
	Blocked           []browser.ResourceType
	Timeout           time.Duration
	NavigationTimeout time.Duration
	BatchSize         int
	DetailSettle      config.DelayWindow
	ListingPause      config.DelayWindow
	BatchPause        config.DelayWindow
	ProtocolCooldown  config.DelayWindow
}

func NewExtractorConfig(cfg *config.Config) ExtractorConfig {
	return ExtractorConfig{
		UserAgent:         cfg.Browser.UserAgent,
		Labels:            LabelsFor(cfg.Browser.Locale),
		Blocked:           browser.NonEssentialResources,
		Timeout:           cfg.Scraper.DetailTimeout,
		NavigationTimeout: cfg.Scraper.DetailNavigationTimeout,
		BatchSize:         cfg.Scraper.BatchSize,
		DetailSettle:      cfg.Scraper.DetailSettle,
		ListingPause:      cfg.Scraper.ListingPause,
		BatchPause:        cfg.Scraper.BatchPause,
		ProtocolCooldown:  cfg.Scraper.ProtocolCooldown,
	}
}

type ExtractStats struct {
	Stored int
	Failed int
}

// DetailExtractor opens each listing in its own browser session, merges the
// contact fields with the card summary and persists the result.
type DetailExtractor struct {
	provider browser.Provider
	listings store.Listing
	pacer    Pacer
	cfg      ExtractorConfig
	log      *zap.SugaredLogger
}

func NewDetailExtractor(provider browser.Provider, listings store.Listing, pacer Pacer, cfg ExtractorConfig) *DetailExtractor {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &DetailExtractor{
		provider: provider,
		listings: listings,
		pacer:    pacer,
		cfg:      cfg,
		log:      zap.S().Named("detail_extractor"),
	}
}

// ExtractAll processes summaries in fixed-size batches. A failing listing is
// logged and skipped; only cancellation of ctx stops the run early.
func (e *DetailExtractor) ExtractAll(ctx context.Context, jobID uuid.UUID, query string, summaries []model.ListingSummary) (ExtractStats, error) {
	var stats ExtractStats
	for start := 0; start < len(summaries); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(summaries))
		batch := summaries[start:end]
		e.log.Infow("extracting batch", "job_id", jobID, "from", start, "to", end, "total", len(summaries))

		for i, summary := range batch {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			if _, err := e.ExtractAndStore(ctx, jobID, summary, query); err != nil {
				stats.Failed++
				metrics.IncreaseListingsTotalMetric(metrics.ListingFailed)
				e.log.Warnw("skipping listing", "job_id", jobID, "link", summary.Link, "error", err)
				if browser.IsProtocolError(err) {
					metrics.IncreaseProtocolCooldownsMetric()
					if err := e.pacer.Pause(ctx, e.cfg.ProtocolCooldown); err != nil {
						return stats, err
					}
				}
			} else {
				stats.Stored++
				metrics.IncreaseListingsTotalMetric(metrics.ListingStored)
			}

			if i < len(batch)-1 {
				if err := e.pacer.Pause(ctx, e.cfg.ListingPause); err != nil {
					return stats, err
				}
			}
		}

		if end < len(summaries) {
			if err := e.pacer.Pause(ctx, e.cfg.BatchPause); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

// ExtractAndStore persists one listing. Browser resources are released on every path.
func (e *DetailExtractor) ExtractAndStore(ctx context.Context, jobID uuid.UUID, summary model.ListingSummary, query string) (*model.Listing, error) {
	if summary.Link == "" {
		return nil, ErrMissingLink
	}

	session, err := e.provider.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	defer closeLogged(e.log, "session", session)

	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening detail page: %w", err)
	}
	defer closeLogged(e.log, "page", page)

	page.SetDefaultTimeout(e.cfg.Timeout)
	if e.cfg.UserAgent != "" {
		if err := page.SetUserAgent(ctx, e.cfg.UserAgent); err != nil {
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}
	if len(e.cfg.Blocked) > 0 {
		if err := page.BlockResources(ctx, e.cfg.Blocked...); err != nil {
			return nil, fmt.Errorf("blocking resources: %w", err)
		}
	}
	if err := page.Navigate(ctx, summary.Link, e.cfg.NavigationTimeout); err != nil {
		return nil, fmt.Errorf("opening %s: %w", summary.Link, err)
	}
	if err := e.pacer.Pause(ctx, e.cfg.DetailSettle); err != nil {
		return nil, err
	}

	detail, err := e.readDetail(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", summary.Link, err)
	}

	listing, err := e.listings.Create(ctx, mergeListing(jobID, query, summary, detail))
	if err != nil {
		return nil, err
	}
	e.log.Debugw("listing stored", "job_id", jobID, "listing_id", listing.ID, "name", listing.Name)
	return listing, nil
}

// readDetail tries every label set per field, keeping the first match.
func (e *DetailExtractor) readDetail(ctx context.Context, page browser.Page) (model.ListingDetail, error) {
	var detail model.ListingDetail

	for _, labels := range e.cfg.Labels {
		if detail.Address == "" {
			v, ok, err := page.Attribute(ctx, ariaLabelPrefix(labels.Address), "aria-label")
			if err != nil {
				return detail, err
			}
			if ok {
				detail.Address = stripLabel(v, labels.Address)
			}
		}
		if detail.Phone == "" {
			v, ok, err := page.Attribute(ctx, ariaLabelPrefix(labels.Phone), "aria-label")
			if err != nil {
				return detail, err
			}
			if ok {
				detail.Phone = stripLabel(v, labels.Phone)
			}
		}
		if detail.Website == "" {
			v, ok, err := page.Attribute(ctx, ariaLabelPrefix(labels.Website), "href")
			if err != nil {
				return detail, err
			}
			if ok {
				detail.Website = v
			}
		}
	}
	return detail, nil
}

func mergeListing(jobID uuid.UUID, query string, summary model.ListingSummary, detail model.ListingDetail) model.Listing {
	return model.Listing{
		JobID:          jobID,
		SearchCriteria: query,
		Name:           summary.Name,
		Category:       summary.Category,
		Link:           summary.Link,
		Rating:         parseRating(summary.RatingText),
		Reviews:        parseReviews(summary.ReviewsText),
		Thumbnail:      optional(summary.Thumbnail),
		Address:        optional(detail.Address),
		Phone:          optional(detail.Phone),
		Website:        optional(detail.Website),
	}
}
