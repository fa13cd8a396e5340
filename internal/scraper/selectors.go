package scraper

import "fmt"

// Selectors locate the search surface and the fields of a feed card.
// Card field selectors are relative to a single card.
type Selectors struct {
	SearchBox     string
	Feed          string
	Card          string
	CardName      string
	CardLink      string
	CardRating    string
	CardReviews   string
	CardCategory  string
	CardThumbnail string
}

func DefaultSelectors() Selectors {
	return Selectors{
		SearchBox:     "input.searchboxinput",
		Feed:          `div[role="feed"]`,
		Card:          `[role="feed"] .Nv2PK`,
		CardName:      ".qBF1Pd",
		CardLink:      "a.hfpxzc",
		CardRating:    ".MW4etd",
		CardReviews:   ".UY7F9",
		CardCategory:  ".W4Efsd > span > span",
		CardThumbnail: "img",
	}
}

// DetailLabels are the accessible-label prefixes identifying contact fields
// on a detail page for one interface language.
type DetailLabels struct {
	Address string
	Phone   string
	Website string
}

var detailLabels = map[string]DetailLabels{
	"es": {Address: "Dirección", Phone: "Teléfono", Website: "Sitio web"},
	"en": {Address: "Address", Phone: "Phone", Website: "Website"},
}

// LabelsFor returns the label sets to try, the locale's own first.
// Unknown locales fall back to Spanish then English.
func LabelsFor(locale string) []DetailLabels {
	primary, ok := detailLabels[locale]
	if !ok {
		return []DetailLabels{detailLabels["es"], detailLabels["en"]}
	}
	labels := []DetailLabels{primary}
	for _, l := range []string{"es", "en"} {
		if l != locale {
			labels = append(labels, detailLabels[l])
		}
	}
	return labels
}

func ariaLabelPrefix(prefix string) string {
	return fmt.Sprintf(`[aria-label^="%s"]`, prefix)
}
