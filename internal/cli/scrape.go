package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	api "github.com/mapharvest/harvester/api/v1alpha1"
	apiserver "github.com/mapharvest/harvester/internal/api_server"
	"github.com/mapharvest/harvester/internal/browser"
	"github.com/mapharvest/harvester/internal/config"
	"github.com/mapharvest/harvester/internal/handlers/v1alpha1/mappers"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ScrapeOptions struct {
	GlobalOptions

	Cap int

	provider func(cfg *config.Config) browser.Provider
}

func DefaultScrapeOptions() *ScrapeOptions {
	return &ScrapeOptions{
		GlobalOptions: DefaultGlobalOptions(),
		provider: func(cfg *config.Config) browser.Provider {
			return browser.NewChromeProvider(cfg.Browser)
		},
	}
}

func NewCmdScrape() *cobra.Command {
	o := DefaultScrapeOptions()
	cmd := &cobra.Command{
		Use:   "scrape QUERY",
		Short: "Harvest the places found for a query and print them.",
		Long: "Harvest the places found for a query and print them.\n" +
			"A query that was already scraped is answered from the store without opening a browser.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ScrapeOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.IntVar(&o.Cap, "cap", o.Cap, fmt.Sprintf("Maximum number of places to harvest, 1 to %d. Zero uses the configured default.", service.MaxCap))
}

func (o *ScrapeOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Cap < 0 || o.Cap > service.MaxCap {
		return fmt.Errorf("cap must be between 1 and %d", service.MaxCap)
	}
	return nil
}

func (o *ScrapeOptions) Run(ctx context.Context, args []string) error {
	places, err := o.scrape(ctx, args[0])
	if err != nil {
		return err
	}
	return render(o.out, o.Output, places, func(w *tabwriter.Writer) {
		printPlacesTable(w, places...)
	})
}

func (o *ScrapeOptions) scrape(ctx context.Context, query string) (api.PlaceList, error) {
	if o.remote() {
		return o.Client().Scrape(ctx, query, o.Cap)
	}

	cfg, s, err := o.openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	locker, closeLocker, err := apiserver.NewLocker(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating lock: %w", err)
	}
	defer closeLocker()

	srv := apiserver.NewScrapeService(cfg, s, o.provider(cfg), locker).WithLifetime(ctx)
	listings, err := srv.Run(ctx, query, o.Cap)
	if err != nil {
		return nil, err
	}
	return mappers.PlaceListToApi(listings), nil
}
