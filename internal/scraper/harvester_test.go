package scraper_test

import (
	"context"
	"errors"
	"time"

	"github.com/mapharvest/harvester/internal/browser"
	"github.com/mapharvest/harvester/internal/browser/browsertest"
	"github.com/mapharvest/harvester/internal/config"
	"github.com/mapharvest/harvester/internal/scraper"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const searchURL = "https://maps.example"

var _ = Describe("feed harvester", func() {
	var (
		provider  *browsertest.Provider
		pacer     *recordingPacer
		harvester *scraper.FeedHarvester
		cfg       scraper.HarvesterConfig
	)

	BeforeEach(func() {
		provider = browsertest.NewProvider()
		pacer = &recordingPacer{}
		cfg = scraper.HarvesterConfig{
			SearchURL:       searchURL,
			UserAgent:       "test-agent",
			Selectors:       scraper.DefaultSelectors(),
			StagnationLimit: 10,
			InitialSettle:   config.DelayWindow{Min: 15 * time.Second, Max: 18 * time.Second},
			ScrollSettle:    config.DelayWindow{Min: 10 * time.Second, Max: 13 * time.Second},
			FeedTimeout:     config.DelayWindow{Min: 25 * time.Second, Max: 35 * time.Second},
		}
		harvester = scraper.NewFeedHarvester(provider, pacer, cfg)
	})

	It("stops at the cap while the feed is still growing", func() {
		provider.Feed = [][]*browsertest.Element{cards(1, 4), cards(1, 8), cards(1, 12)}

		summaries, err := harvester.Harvest(context.TODO(), "restaurantes", 10)
		Expect(err).To(BeNil())
		Expect(summaries).To(HaveLen(10))
		for i, s := range summaries {
			Expect(s.Link).To(Equal(placeLink(i + 1)))
		}

		pages := provider.Pages()
		Expect(pages).To(HaveLen(1))
		Expect(pages[0].Reads()).To(Equal(3))
		Expect(pages[0].Scrolls()).To(Equal(2))
	})

	It("submits the query on the search page", func() {
		provider.Feed = [][]*browsertest.Element{cards(1, 2)}

		_, err := harvester.Harvest(context.TODO(), "restaurantes", 2)
		Expect(err).To(BeNil())

		page := provider.Pages()[0]
		Expect(provider.Navigations()).To(Equal([]string{searchURL}))
		Expect(page.Typed).To(Equal([]string{"restaurantes"}))
		Expect(page.Pressed).To(Equal([]string{browser.KeyEnter}))
		Expect(page.UserAgent).To(Equal("test-agent"))
		Expect(page.DefaultTimeout).To(BeNumerically(">=", 25*time.Second))
		Expect(page.DefaultTimeout).To(BeNumerically("<=", 35*time.Second))
		Expect(pacer.count(cfg.InitialSettle)).To(Equal(1))
	})

	It("keeps one summary per link", func() {
		provider.Feed = [][]*browsertest.Element{
			{newCard(1), newCard(2), newCard(1)},
			{newCard(2), newCard(3), newCard(3)},
		}

		summaries, err := harvester.Harvest(context.TODO(), "cafes", 3)
		Expect(err).To(BeNil())
		Expect(summaries).To(HaveLen(3))
		Expect(summaries[0].Link).To(Equal(placeLink(1)))
		Expect(summaries[1].Link).To(Equal(placeLink(2)))
		Expect(summaries[2].Link).To(Equal(placeLink(3)))
	})

	It("strips parentheses from card text", func() {
		provider.Feed = [][]*browsertest.Element{cards(1, 1)}

		summaries, err := harvester.Harvest(context.TODO(), "cafes", 1)
		Expect(err).To(BeNil())
		Expect(summaries[0].Name).To(Equal("Place 1"))
		Expect(summaries[0].RatingText).To(Equal("4,5"))
		Expect(summaries[0].ReviewsText).To(Equal("1.234"))
		Expect(summaries[0].Category).To(Equal("Restaurant"))
		Expect(summaries[0].Thumbnail).To(Equal("https://img.example/1.jpg"))
	})

	It("skips cards without a link", func() {
		noLink := browsertest.NewElement().WithText(scraper.DefaultSelectors().CardName, "Sponsored")
		provider.Feed = [][]*browsertest.Element{{noLink, newCard(1)}}

		summaries, err := harvester.Harvest(context.TODO(), "cafes", 1)
		Expect(err).To(BeNil())
		Expect(summaries).To(HaveLen(1))
		Expect(summaries[0].Link).To(Equal(placeLink(1)))
	})

	It("gives up on an empty feed after the stagnation limit", func() {
		summaries, err := harvester.Harvest(context.TODO(), "nothing here", 5)
		Expect(err).To(BeNil())
		Expect(summaries).To(BeEmpty())

		page := provider.Pages()[0]
		Expect(page.Reads()).To(Equal(10))
		Expect(page.Scrolls()).To(Equal(9))
		Expect(pacer.count(cfg.ScrollSettle)).To(Equal(9))
	})

	It("resets the stagnation streak when the feed grows", func() {
		provider.Feed = [][]*browsertest.Element{cards(1, 3), cards(1, 3), cards(1, 3), cards(1, 5)}

		summaries, err := harvester.Harvest(context.TODO(), "cafes", 50)
		Expect(err).To(BeNil())
		Expect(summaries).To(HaveLen(5))
		// grows on reads 1 and 4, then ten reads without growth
		Expect(provider.Pages()[0].Reads()).To(Equal(14))
	})

	It("returns partial results when the feed fails", func() {
		provider.Feed = [][]*browsertest.Element{cards(1, 3), cards(1, 6)}
		provider.FeedError = errors.New("ProtocolError: Target closed")
		provider.FeedErrorAt = 2

		summaries, err := harvester.Harvest(context.TODO(), "cafes", 10)
		Expect(err).ToNot(BeNil())
		Expect(summaries).To(HaveLen(3))

		Expect(provider.Pages()[0].Closes()).To(Equal(1))
		Expect(provider.Sessions()[0].Closes()).To(Equal(1))
	})

	It("releases the browser exactly once on success", func() {
		provider.Feed = [][]*browsertest.Element{cards(1, 2)}

		_, err := harvester.Harvest(context.TODO(), "cafes", 2)
		Expect(err).To(BeNil())
		Expect(provider.Pages()[0].Closes()).To(Equal(1))
		Expect(provider.Sessions()[0].Closes()).To(Equal(1))
	})

	It("fails when the browser cannot start", func() {
		provider.LaunchError = errors.New("no chrome")

		summaries, err := harvester.Harvest(context.TODO(), "cafes", 2)
		Expect(err).ToNot(BeNil())
		Expect(summaries).To(BeEmpty())
	})

	It("rejects a non positive cap without launching", func() {
		_, err := harvester.Harvest(context.TODO(), "cafes", 0)
		Expect(errors.Is(err, scraper.ErrInvalidCap)).To(BeTrue())
		Expect(provider.Sessions()).To(BeEmpty())
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.TODO())
		cancel()

		_, err := harvester.Harvest(ctx, "cafes", 2)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(provider.Pages()[0].Closes()).To(Equal(1))
	})
})
