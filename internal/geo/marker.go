package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/mmcloughlin/geohash"
)

const geohashPrecision = 7

// Marker is one placed map pin, keyed by listing id.
type Marker struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Label   string  `json:"label"`
	Geohash string  `json:"geohash"`
	Popup   string  `json:"popup"`
	Address string  `json:"address"`
	Price   int     `json:"price"`
}

func NewMarker(id string, listing models.Listing, lat, lon float64) Marker {
	return Marker{
		ID:      id,
		Lat:     lat,
		Lon:     lon,
		Label:   Label(int(listing.Price)),
		Geohash: geohash.EncodeWithPrecision(lat, lon, geohashPrecision),
		Popup:   Popup(listing),
		Address: strings.TrimSpace(listing.Address),
		Price:   int(listing.Price),
	}
}

// Label is the price in thousands, rounded down: 3450 -> "$3k".
func Label(price int) string {
	return fmt.Sprintf("$%dk", int(math.Floor(float64(price)/1000)))
}

func Popup(listing models.Listing) string {
	beds := strings.TrimSpace(listing.Beds.String())
	if beds == "0" {
		beds = "Studio"
	}
	lines := []string{
		export.FormatPrice(int(listing.Price)) + "/month",
		"Beds: " + beds,
		"Baths: " + listing.Baths.String(),
		"Unit: " + listing.Unit.String(),
		"SqFt: " + orNA(listing.Sqft.String()),
		"Days on Market: " + strconv.Itoa(int(listing.DaysOnMarket)),
		"Agent: " + listing.AgentName.String(),
		"Email: " + orNA(listing.AgentEmail.String()),
		strings.TrimSpace(listing.Address),
	}
	if url := strings.TrimSpace(listing.URL); url != "" {
		lines = append(lines, "View: "+url)
	}
	return strings.Join(lines, "\n")
}

// markerKey falls back to the listing position for records without an id.
func markerKey(listing models.Listing, index int) string {
	if id := strings.TrimSpace(listing.ID.String()); id != "" {
		return id
	}
	return "#" + strconv.Itoa(index)
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
