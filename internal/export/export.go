package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/ui"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatCards    Format = "cards"
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
	FormatHTML     Format = "html"
)

const (
	EmptyTitle    = "No listings found"
	EmptySubtitle = "Try running the scraper or adjusting your filters to see available rentals."
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
	Highlight    string
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCards:
		return FormatCards, nil
	case FormatTable:
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTSV:
		return FormatTSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "markdown":
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown format %q (use cards, table, csv, tsv, json, md, html)", value)
	}
}

// WriteView renders a view in the requested format.
func WriteView(w io.Writer, view View, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, view)
	case FormatCSV:
		return writeCSV(w, view.Listings, ',')
	case FormatTSV:
		return writeCSV(w, view.Listings, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, view)
	case FormatHTML:
		return writeHTML(w, view, opts)
	case FormatTable:
		return writeTable(w, view, opts)
	default:
		return writeCards(w, view, opts)
	}
}

func writeJSON(w io.Writer, view View) error {
	if view.Listings == nil {
		view.Listings = []models.Listing{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func writeCSV(w io.Writer, listings []models.Listing, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(csvHeader()); err != nil {
		return err
	}
	for _, listing := range listings {
		if err := writer.Write(csvRow(listing)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func StatsLine(stats Stats) string {
	return fmt.Sprintf("Listings: %d  Avg price: %s  Stabilized: %d",
		stats.Total, FormatPrice(stats.AveragePrice), stats.Stabilized)
}

func writeCards(w io.Writer, view View, opts WriteOptions) error {
	output := termenv.NewOutput(w)
	lines := []string{StatsLine(view.Stats), ""}
	if len(view.Listings) == 0 {
		lines = append(lines, EmptyTitle, EmptySubtitle)
		return writeLines(w, lines)
	}

	for _, card := range Cards(view) {
		title := fmt.Sprintf("%s  %s", card.Address, card.Price)
		if opts.ColorEnabled {
			title = output.String(title).Bold().String()
		}
		if card.ID != "" && card.ID == opts.Highlight {
			title = "> " + title
		}
		lines = append(lines,
			title,
			"  "+card.Specs,
			"  Unit: "+card.Unit,
			"  Off market: "+card.OffMarket,
			"  Building: "+card.Building,
			"  "+badges(card, output, opts.ColorEnabled),
		)
		if card.Stabilized {
			lines = append(lines, fmt.Sprintf("  Likely Rent Stabilized (%s confidence)", card.Confidence))
			if card.Evidence != "" {
				lines = append(lines, "    "+card.Evidence)
			}
		}
		lines = append(lines, fmt.Sprintf("  Listed by: %s | Email: %s | Phone: %s", card.Agent, card.Email, card.Phone))
		if card.URL != "" {
			lines = append(lines, "  "+linkText(card.URL, output, opts))
		}
		if card.ID != "" {
			lines = append(lines, "  id: "+card.ID)
		}
		lines = append(lines, "")
	}
	return writeLines(w, lines)
}

func badges(card Card, output *termenv.Output, color bool) string {
	var parts []string
	if card.Laundry != "" {
		parts = append(parts, badge(card.Laundry, true, output, color))
	}
	parts = append(parts,
		badge("Pets allowed", card.Pets, output, color),
		badge("Outdoor space", card.Outdoor, output, color),
	)
	return strings.Join(parts, " ")
}

func badge(label string, active bool, output *termenv.Output, color bool) string {
	if color {
		style := output.String(" " + label + " ")
		if active {
			return style.Foreground(output.Color("0")).Background(output.Color("2")).String()
		}
		return style.Faint().String()
	}
	if active {
		return "[x] " + label
	}
	return "[ ] " + label
}

func writeTable(w io.Writer, view View, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, listing := range view.Listings {
		fmt.Fprintln(tw, strings.Join(tableRow(listing, output, opts), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, StatsLine(view.Stats))
	return err
}

func writeMarkdown(w io.Writer, view View) error {
	if len(view.Listings) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	lines := []string{
		fmt.Sprintf("**%d listings** · average %s · %d likely stabilized",
			view.Stats.Total, FormatPrice(view.Stats.AveragePrice), view.Stats.Stabilized),
		"",
	}
	for _, card := range Cards(view) {
		urlLine := "  URL: -"
		if card.URL != "" {
			urlLine = fmt.Sprintf("  URL: [View listing](<%s>)", card.URL)
		}
		lines = append(lines,
			fmt.Sprintf("- **%s** (%s)", card.Address, card.Price),
			"  "+card.Specs,
			"  Unit: "+card.Unit,
			"  Off market: "+card.OffMarket,
			urlLine,
		)
		if card.Stabilized {
			lines = append(lines, fmt.Sprintf("  Likely rent stabilized: %s confidence", card.Confidence))
		}
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func csvHeader() []string {
	return []string{
		"id",
		"address",
		"unit",
		"price",
		"beds",
		"baths",
		"sqft",
		"days_on_market",
		"laundry_type",
		"pets_allowed",
		"private_outdoor_space",
		"off_market_at",
		"likely_stabilized",
		"stabilization_confidence",
		"building_year_built",
		"building_total_units",
		"is_owner",
		"agent_name",
		"agent_email",
		"agent_phone",
		"source_area",
		"latitude",
		"longitude",
		"url",
	}
}

func csvRow(listing models.Listing) []string {
	return []string{
		listing.ID.String(),
		listing.Address,
		listing.Unit.String(),
		strconv.Itoa(int(listing.Price)),
		listing.Beds.String(),
		listing.Baths.String(),
		listing.Sqft.String(),
		strconv.Itoa(int(listing.DaysOnMarket)),
		listing.LaundryType,
		boolString(bool(listing.PetsAllowed)),
		boolString(bool(listing.PrivateOutdoorSpace)),
		listing.OffMarketAt,
		boolString(bool(listing.LikelyStabilized)),
		listing.StabilizationConfidence.String(),
		listing.BuildingYearBuilt.String(),
		listing.BuildingTotalUnits.String(),
		boolString(bool(listing.IsOwner)),
		listing.AgentName.String(),
		listing.AgentEmail.String(),
		listing.AgentPhone.String(),
		listing.SourceArea,
		listing.Latitude.String(),
		listing.Longitude.String(),
		listing.URL,
	}
}

func boolString(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func tableHeader() []string {
	return []string{
		"id",
		"price",
		"beds",
		"baths",
		"address",
		"off_market",
		"url",
	}
}

func tableRow(listing models.Listing, output *termenv.Output, opts WriteOptions) []string {
	card := NewCard(listing)
	displayURL := "-"
	if card.URL != "" {
		displayURL = linkText(card.URL, output, opts)
	}
	return []string{
		card.ID,
		card.Price,
		safe(listing.Beds.String()),
		safe(listing.Baths.String()),
		card.Address,
		card.OffMarket,
		displayURL,
	}
}

func linkText(rawURL string, output *termenv.Output, opts WriteOptions) string {
	display := rawURL
	if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
		display = shortURLLabel(rawURL)
	}
	display = ui.ColorizeLink(output, opts.ColorEnabled, display)
	if opts.Hyperlinks {
		display = hyperlink(rawURL, display)
	}
	return display
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
