package models

import (
	"encoding/json"
	"testing"
)

func TestListingDecodesLooseValues(t *testing.T) {
	raw := `{
		"id": 42,
		"address": "1 Bank St",
		"price": 3250.0,
		"beds": "2",
		"baths": "1.5",
		"sqft": 800,
		"unit": null,
		"days_on_market": "12",
		"latitude": "40.7359",
		"longitude": -74.0036,
		"pets_allowed": "True",
		"private_outdoor_space": 0,
		"likely_stabilized": true,
		"building_year_built": "N/A"
	}`

	var got Listing
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != "42" {
		t.Fatalf("ID = %q, want %q", got.ID, "42")
	}
	if got.Price != 3250 {
		t.Fatalf("Price = %d, want 3250", got.Price)
	}
	if got.Sqft != "800" || got.Unit != "" {
		t.Fatalf("unexpected sqft/unit: %q %q", got.Sqft, got.Unit)
	}
	if got.DaysOnMarket != 12 {
		t.Fatalf("DaysOnMarket = %d, want 12", got.DaysOnMarket)
	}
	if !got.PetsAllowed || got.PrivateOutdoorSpace || !got.LikelyStabilized {
		t.Fatalf("unexpected flags: %+v", got)
	}
	lat, lon, ok := got.Coordinates()
	if !ok || lat != 40.7359 || lon != -74.0036 {
		t.Fatalf("Coordinates() = %v, %v, %v", lat, lon, ok)
	}
}

func TestCoordinatesMissing(t *testing.T) {
	cases := []Listing{
		{},
		{Latitude: "40.1"},
		{Latitude: "abc", Longitude: "-73.9"},
	}
	for _, listing := range cases {
		if _, _, ok := listing.Coordinates(); ok {
			t.Fatalf("Coordinates() ok for %+v, want false", listing)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, value := range []string{"2024-03-15", "2024-03-15T10:00:00Z", "2024-03-15T10:00:00.123456"} {
		ts, err := ParseDate(value)
		if err != nil {
			t.Fatalf("ParseDate(%q) error = %v", value, err)
		}
		if ts.Year() != 2024 || ts.Month() != 3 || ts.Day() != 15 {
			t.Fatalf("ParseDate(%q) = %v", value, ts)
		}
	}
	if _, err := ParseDate("March 15"); err == nil {
		t.Fatalf("ParseDate() error = nil, want error")
	}
	if _, err := ParseDate(""); err == nil {
		t.Fatalf("ParseDate(\"\") error = nil, want error")
	}
}

func TestIsStudio(t *testing.T) {
	if !(Listing{Beds: "0"}).IsStudio() || !(Listing{Beds: "Studio"}).IsStudio() {
		t.Fatalf("expected studio")
	}
	if (Listing{Beds: "1"}).IsStudio() {
		t.Fatalf("one bedroom is not a studio")
	}
}
