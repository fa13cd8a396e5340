package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/mapharvest/harvester/internal/browser"
	"github.com/mapharvest/harvester/internal/config"
	"github.com/mapharvest/harvester/internal/store/model"
	"github.com/mapharvest/harvester/pkg/metrics"
	"go.uber.org/zap"
)

const defaultScrollStep = 2000

var ErrInvalidCap = errors.New("cap must be a positive number")

type HarvesterConfig struct {
	SearchURL       string
	UserAgent       string
	Selectors       Selectors
	StagnationLimit int
	ScrollStep      int
	InitialSettle   config.DelayWindow
	ScrollSettle    config.DelayWindow
	// FeedTimeout is drawn once per harvest and bounds every page operation.
	FeedTimeout config.DelayWindow
}

func NewHarvesterConfig(cfg *config.Config) HarvesterConfig {
	return HarvesterConfig{
		SearchURL:       cfg.Browser.SearchURL,
		UserAgent:       cfg.Browser.UserAgent,
		Selectors:       DefaultSelectors(),
		StagnationLimit: cfg.Scraper.StagnationLimit,
		ScrollStep:      defaultScrollStep,
		InitialSettle:   cfg.Scraper.InitialSettle,
		ScrollSettle:    cfg.Scraper.ScrollSettle,
		FeedTimeout:     cfg.Scraper.FeedTimeout,
	}
}

// FeedHarvester runs a search and scrolls its results feed, collecting
// unique listing summaries until the limit is reached or the feed stops growing.
type FeedHarvester struct {
	provider browser.Provider
	pacer    Pacer
	cfg      HarvesterConfig
	log      *zap.SugaredLogger
}

func NewFeedHarvester(provider browser.Provider, pacer Pacer, cfg HarvesterConfig) *FeedHarvester {
	if cfg.StagnationLimit < 1 {
		cfg.StagnationLimit = 1
	}
	if cfg.ScrollStep == 0 {
		cfg.ScrollStep = defaultScrollStep
	}
	return &FeedHarvester{
		provider: provider,
		pacer:    pacer,
		cfg:      cfg,
		log:      zap.S().Named("feed_harvester"),
	}
}

// Harvest returns at most limit summaries in discovery order, unique by link.
// On failure it returns the summaries gathered so far together with the error.
func (h *FeedHarvester) Harvest(ctx context.Context, query string, limit int) ([]model.ListingSummary, error) {
	if limit < 1 {
		return nil, ErrInvalidCap
	}

	session, err := h.provider.Launch(ctx)
	if err != nil {
		metrics.IncreaseHarvestsTotalMetric(metrics.StopError)
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	defer closeLogged(h.log, "session", session)

	page, err := session.NewPage(ctx)
	if err != nil {
		metrics.IncreaseHarvestsTotalMetric(metrics.StopError)
		return nil, fmt.Errorf("opening search page: %w", err)
	}
	defer closeLogged(h.log, "page", page)

	summaries, reason, err := h.harvest(ctx, page, query, limit)
	metrics.IncreaseHarvestsTotalMetric(reason)
	if err != nil {
		h.log.Errorw("harvest interrupted", "query", query, "collected", len(summaries), "error", err)
		return summaries, err
	}

	h.log.Infow("harvest finished", "query", query, "collected", len(summaries), "stop_reason", reason)
	return summaries, nil
}

func (h *FeedHarvester) harvest(ctx context.Context, page browser.Page, query string, limit int) ([]model.ListingSummary, string, error) {
	sel := h.cfg.Selectors

	timeout := RandomDelay(h.cfg.FeedTimeout)
	page.SetDefaultTimeout(timeout)
	if h.cfg.UserAgent != "" {
		if err := page.SetUserAgent(ctx, h.cfg.UserAgent); err != nil {
			return nil, metrics.StopError, fmt.Errorf("setting user agent: %w", err)
		}
	}
	if err := page.Navigate(ctx, h.cfg.SearchURL, timeout); err != nil {
		return nil, metrics.StopError, fmt.Errorf("opening %s: %w", h.cfg.SearchURL, err)
	}
	if err := page.Type(ctx, sel.SearchBox, query); err != nil {
		return nil, metrics.StopError, fmt.Errorf("typing query: %w", err)
	}
	if err := page.Press(ctx, sel.SearchBox, browser.KeyEnter); err != nil {
		return nil, metrics.StopError, fmt.Errorf("submitting query: %w", err)
	}
	if err := h.pacer.Pause(ctx, h.cfg.InitialSettle); err != nil {
		return nil, metrics.StopError, err
	}

	seen := make(map[string]struct{}, limit)
	summaries := make([]model.ListingSummary, 0, limit)
	streak := 0
	for iteration := 1; ; iteration++ {
		cards, err := page.QueryAll(ctx, sel.Card)
		if err != nil {
			return summaries, metrics.StopError, fmt.Errorf("reading feed: %w", err)
		}

		added := 0
		for _, card := range cards {
			if len(summaries) >= limit {
				break
			}
			summary, err := h.readCard(ctx, card)
			if err != nil {
				return summaries, metrics.StopError, fmt.Errorf("reading card: %w", err)
			}
			if summary.Link == "" {
				continue
			}
			if _, ok := seen[summary.Link]; ok {
				continue
			}
			seen[summary.Link] = struct{}{}
			summaries = append(summaries, summary)
			added++
		}

		h.log.Debugw("feed read", "iteration", iteration, "cards", len(cards), "added", added, "total", len(summaries))

		if len(summaries) >= limit {
			return summaries, metrics.StopCap, nil
		}
		if added == 0 {
			streak++
		} else {
			streak = 0
		}
		if streak >= h.cfg.StagnationLimit {
			return summaries, metrics.StopStagnation, nil
		}

		if err := page.ScrollBy(ctx, sel.Feed, h.cfg.ScrollStep); err != nil {
			return summaries, metrics.StopError, fmt.Errorf("scrolling feed: %w", err)
		}
		if err := h.pacer.Pause(ctx, h.cfg.ScrollSettle); err != nil {
			return summaries, metrics.StopError, err
		}
	}
}

func (h *FeedHarvester) readCard(ctx context.Context, card browser.Element) (model.ListingSummary, error) {
	sel := h.cfg.Selectors
	var s model.ListingSummary

	link, _, err := card.Attribute(ctx, sel.CardLink, "href")
	if err != nil {
		return s, err
	}
	s.Link = link

	texts := []struct {
		selector string
		dst      *string
	}{
		{sel.CardName, &s.Name},
		{sel.CardRating, &s.RatingText},
		{sel.CardReviews, &s.ReviewsText},
		{sel.CardCategory, &s.Category},
	}
	for _, t := range texts {
		v, _, err := card.Text(ctx, t.selector)
		if err != nil {
			return s, err
		}
		*t.dst = cleanCardText(v)
	}

	thumb, _, err := card.Attribute(ctx, sel.CardThumbnail, "src")
	if err != nil {
		return s, err
	}
	s.Thumbnail = thumb
	return s, nil
}

type closer interface {
	Close() error
}

func closeLogged(log *zap.SugaredLogger, what string, c closer) {
	if err := c.Close(); err != nil {
		log.Warnw("failed to close browser resource", "resource", what, "error", err)
	}
}
