package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	api "github.com/mapharvest/harvester/api/v1alpha1"
	"sigs.k8s.io/yaml"
)

// render writes v as json or yaml, or hands off to table for the default format.
func render(w io.Writer, output string, v any, table func(*tabwriter.Writer)) error {
	switch output {
	case jsonFormat:
		marshalled, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Fprintf(w, "%s\n", string(marshalled))
		return nil
	case yamlFormat:
		marshalled, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Fprintf(w, "%s\n", string(marshalled))
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
		table(tw)
		return tw.Flush()
	}
}

func printPlacesTable(w *tabwriter.Writer, places ...api.Place) {
	fmt.Fprintln(w, "NAME\tCATEGORY\tRATING\tREVIEWS\tADDRESS")
	for _, p := range places {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Category, orDash(p.Rating), orDash(p.Reviews), orDash(p.Address))
	}
}

func printScrapeLogsTable(w *tabwriter.Writer, logs ...api.ScrapeLog) {
	fmt.Fprintln(w, "ID\tQUERY\tSTATUS\tPROCESSED\tERROR")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Id, l.SearchQuery, l.Status, orDash(l.ProcessedCount), orDash(l.ErrorMessage))
	}
}

func orDash[T any](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
