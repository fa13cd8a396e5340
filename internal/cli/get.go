package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	api "github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/handlers/v1alpha1/mappers"
	"github.com/mapharvest/harvester/internal/handlers/validator"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

const (
	PlacesKind     = "places"
	ScrapeLogsKind = "scrape-logs"
)

var (
	legalKinds = []string{PlacesKind, ScrapeLogsKind}
)

type GetOptions struct {
	GlobalOptions

	Page      int
	Limit     int
	Category  string
	MinRating float64
	Search    string
	Status    string
}

func DefaultGetOptions() *GetOptions {
	return &GetOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Page:          1,
		Limit:         10,
	}
}

func NewCmdGet() *cobra.Command {
	o := DefaultGetOptions()
	cmd := &cobra.Command{
		Use:   "get (places | scrape-logs)",
		Short: "Display stored places or scrape logs.",
		Args:  cobra.ExactArgs(1),
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

func (o *GetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.IntVar(&o.Page, "page", o.Page, "Page of places to show.")
	fs.IntVar(&o.Limit, "limit", o.Limit, "Places per page.")
	fs.StringVar(&o.Category, "category", o.Category, "Only places whose category contains this text.")
	fs.Float64Var(&o.MinRating, "min-rating", o.MinRating, "Only places rated at least this much.")
	fs.StringVar(&o.Search, "search", o.Search, "Only places harvested for a matching query.")
	fs.StringVar(&o.Status, "status", o.Status, "Only scrape logs in this status.")
}

func (o *GetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if !funk.Contains(legalKinds, args[0]) {
		return fmt.Errorf("unsupported resource kind: %s", args[0])
	}
	o.Status = strings.ToUpper(o.Status)
	v := validator.NewValidator(validator.NewScrapeLogValidationRules()...)
	return v.Struct(api.ScrapeLogsParams{Status: o.Status})
}

func (o *GetOptions) Run(ctx context.Context, args []string) error {
	switch args[0] {
	case PlacesKind:
		page, err := o.places(ctx)
		if err != nil {
			return fmt.Errorf("listing places: %w", err)
		}
		return render(o.out, o.Output, page, func(w *tabwriter.Writer) {
			printPlacesTable(w, page.Places...)
		})
	default:
		logs, err := o.scrapeLogs(ctx)
		if err != nil {
			return fmt.Errorf("listing scrape logs: %w", err)
		}
		return render(o.out, o.Output, logs, func(w *tabwriter.Writer) {
			printScrapeLogsTable(w, logs...)
		})
	}
}

func (o *GetOptions) places(ctx context.Context) (*api.PlacePage, error) {
	params := api.PlacesParams{
		Page:           o.Page,
		Limit:          o.Limit,
		Category:       o.Category,
		SearchCriteria: o.Search,
	}
	if o.MinRating > 0 {
		params.MinRating = &o.MinRating
	}

	if o.remote() {
		return o.Client().ListPlaces(ctx, params)
	}

	_, s, err := o.openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	page, err := service.NewPlaceService(s).ListPlaces(ctx, mappers.PlaceFilterFromApi(params))
	if err != nil {
		return nil, err
	}
	out := mappers.PlacePageToApi(page)
	return &out, nil
}

func (o *GetOptions) scrapeLogs(ctx context.Context) (api.ScrapeLogList, error) {
	if o.remote() {
		return o.Client().ListScrapeLogs(ctx, o.Status)
	}

	_, s, err := o.openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	logs, err := service.NewScrapeLogService(s).ListScrapeLogs(ctx, mappers.JobStatusFromApi(o.Status))
	if err != nil {
		return nil, err
	}
	return mappers.ScrapeLogListToApi(logs), nil
}
