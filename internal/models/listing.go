package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Listing is one rental unit as returned by the listings endpoint.
type Listing struct {
	ID                      Text   `json:"id"`
	Address                 string `json:"address"`
	Price                   Amount `json:"price"`
	Beds                    Text   `json:"beds"`
	Baths                   Text   `json:"baths"`
	Sqft                    Text   `json:"sqft,omitempty"`
	Unit                    Text   `json:"unit"`
	DaysOnMarket            Amount `json:"days_on_market"`
	AgentName               Text   `json:"agent_name,omitempty"`
	AgentEmail              Text   `json:"agent_email,omitempty"`
	AgentPhone              Text   `json:"agent_phone,omitempty"`
	URL                     string `json:"url"`
	Latitude                Text   `json:"latitude,omitempty"`
	Longitude               Text   `json:"longitude,omitempty"`
	LaundryType             string `json:"laundry_type"`
	PetsAllowed             Flag   `json:"pets_allowed"`
	PrivateOutdoorSpace     Flag   `json:"private_outdoor_space"`
	OffMarketAt             string `json:"offMarketAt"`
	LikelyStabilized        Flag   `json:"likely_stabilized"`
	StabilizationConfidence Text   `json:"stabilization_confidence,omitempty"`
	StabilizationEvidence   Text   `json:"stabilization_evidence,omitempty"`
	BuildingYearBuilt       Text   `json:"building_year_built,omitempty"`
	BuildingTotalUnits      Text   `json:"building_total_units,omitempty"`
	IsOwner                 Flag   `json:"is_owner,omitempty"`
	BuildingSlug            string `json:"building_slug,omitempty"`
	SourceArea              string `json:"source_area,omitempty"`
}

const (
	LaundryInUnit     = "In unit"
	LaundryInBuilding = "In building"
)

var errNoDate = errors.New("empty date")

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses the ISO date forms the backend emits for offMarketAt.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errNoDate
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

func (l Listing) OffMarketTime() (time.Time, error) {
	return ParseDate(l.OffMarketAt)
}

// Coordinates returns the listing's position when both fields parse.
func (l Listing) Coordinates() (lat, lon float64, ok bool) {
	latRaw := strings.TrimSpace(string(l.Latitude))
	lonRaw := strings.TrimSpace(string(l.Longitude))
	if latRaw == "" || lonRaw == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func (l Listing) IsStudio() bool {
	beds := strings.TrimSpace(string(l.Beds))
	return beds == "0" || strings.EqualFold(beds, "studio")
}
