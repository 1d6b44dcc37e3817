package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jimezsa/leasecli/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateDisplayLayout = "1/2/2006"

var printer = message.NewPrinter(language.English)

// Stats are the aggregates shown above the listing cards.
type Stats struct {
	Total        int `json:"total"`
	AveragePrice int `json:"average_price"`
	Stabilized   int `json:"stabilized"`
}

// View is a render-ready snapshot: listings sorted by price plus their stats.
type View struct {
	Listings []models.Listing `json:"listings"`
	Stats    Stats            `json:"stats"`
}

func BuildView(listings []models.Listing) View {
	return View{
		Listings: SortByPrice(listings),
		Stats:    ComputeStats(listings),
	}
}

// SortByPrice returns a copy ordered by ascending price. Equal prices keep their input order.
func SortByPrice(listings []models.Listing) []models.Listing {
	sorted := make([]models.Listing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})
	return sorted
}

func ComputeStats(listings []models.Listing) Stats {
	stats := Stats{Total: len(listings)}
	if len(listings) == 0 {
		return stats
	}
	total := 0
	for _, listing := range listings {
		total += int(listing.Price)
		if listing.LikelyStabilized {
			stats.Stabilized++
		}
	}
	avg := float64(total) / float64(len(listings))
	stats.AveragePrice = int(math.Floor(avg + 0.5))
	return stats
}

// FormatPrice renders whole currency units with thousands separators, e.g. "$3,000".
func FormatPrice(amount int) string {
	return printer.Sprintf("$%d", amount)
}

// Card holds the display strings of one listing card.
type Card struct {
	ID         string
	Address    string
	Price      string
	Specs      string
	Unit       string
	OffMarket  string
	Building   string
	Laundry    string
	Pets       bool
	Outdoor    bool
	Stabilized bool
	Confidence string
	Evidence   string
	Agent      string
	Email      string
	Phone      string
	URL        string
}

func NewCard(listing models.Listing) Card {
	card := Card{
		ID:         listing.ID.String(),
		Address:    safe(listing.Address),
		Price:      FormatPrice(int(listing.Price)),
		Specs:      specs(listing),
		Unit:       orNA(listing.Unit.String()),
		OffMarket:  offMarketLabel(listing.OffMarketAt),
		Building:   fmt.Sprintf("Built %s • %s units", orNA(listing.BuildingYearBuilt.String()), orNA(listing.BuildingTotalUnits.String())),
		Laundry:    laundryLabel(listing.LaundryType),
		Pets:       bool(listing.PetsAllowed),
		Outdoor:    bool(listing.PrivateOutdoorSpace),
		Stabilized: bool(listing.LikelyStabilized),
		Agent:      safe(listing.AgentName.String()),
		Email:      orNA(listing.AgentEmail.String()),
		Phone:      orNA(listing.AgentPhone.String()),
		URL:        safe(listing.URL),
	}
	if card.Agent == "" {
		card.Agent = "Owner"
	}
	if card.Stabilized {
		card.Confidence = orNA(listing.StabilizationConfidence.String())
		card.Evidence = safe(listing.StabilizationEvidence.String())
	}
	return card
}

func Cards(view View) []Card {
	cards := make([]Card, 0, len(view.Listings))
	for _, listing := range view.Listings {
		cards = append(cards, NewCard(listing))
	}
	return cards
}

func specs(listing models.Listing) string {
	beds := safe(listing.Beds.String())
	baths := safe(listing.Baths.String())
	return fmt.Sprintf("%s bed%s • %s bath%s • %s sq ft",
		beds, plural(beds), baths, plural(baths), orNA(listing.Sqft.String()))
}

func plural(count string) string {
	if count == "1" {
		return ""
	}
	return "s"
}

func laundryLabel(laundryType string) string {
	switch laundryType {
	case models.LaundryInUnit:
		return "Laundry in-unit"
	case models.LaundryInBuilding:
		return "Laundry in building"
	default:
		return ""
	}
}

func offMarketLabel(raw string) string {
	ts, err := models.ParseDate(raw)
	if err != nil {
		return "N/A"
	}
	return ts.Format(dateDisplayLayout)
}

func orNA(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "N/A"
	}
	return value
}

func safe(value string) string {
	return strings.TrimSpace(value)
}
