package seen

import (
	"strings"

	"github.com/jimezsa/leasecli/internal/models"
)

const keySeparator = "::"

// ChangeKind says why a listing is reported against the history.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "new"
	ChangePrice    ChangeKind = "price"
	ChangeRelisted ChangeKind = "relisted"
)

// Change is a listing that is absent from the history or moved since it was
// recorded there.
type Change struct {
	Kind          ChangeKind     `json:"kind"`
	Listing       models.Listing `json:"listing"`
	PreviousPrice models.Amount  `json:"previous_price,omitempty"`
	PreviousOff   string         `json:"previous_off_market_at,omitempty"`
}

// PriceDelta is the rent difference against the recorded price. Zero for new listings.
func (c Change) PriceDelta() int {
	if c.Kind == ChangeNew || c.PreviousPrice == 0 {
		return 0
	}
	return int(c.Listing.Price) - int(c.PreviousPrice)
}

// DiffStats counts what Diff found.
type DiffStats struct {
	Current        int
	History        int
	InvalidCurrent int
	InvalidHistory int
	New            int
	PriceChanged   int
	Relisted       int
}

func (s DiffStats) InvalidSkipped() int {
	return s.InvalidCurrent + s.InvalidHistory
}

// Changed is the number of reported listings.
func (s DiffStats) Changed() int {
	return s.New + s.PriceChanged + s.Relisted
}

// MergeStats counts what Merge did to the history.
type MergeStats struct {
	History        int
	Input          int
	InvalidHistory int
	InvalidInput   int
	Added          int
	Updated        int
	Total          int
}

func (s MergeStats) InvalidSkipped() int {
	return s.InvalidHistory + s.InvalidInput
}

// Normalize lowercases and collapses whitespace.
func Normalize(value string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(value)))
	return strings.Join(fields, " ")
}

// Key identifies a listing by id, or by address and unit when the id is missing.
func Key(listing models.Listing) (string, bool) {
	if id := strings.TrimSpace(listing.ID.String()); id != "" {
		return "id" + keySeparator + id, true
	}
	address := Normalize(listing.Address)
	if address == "" {
		return "", false
	}
	return address + keySeparator + Normalize(listing.Unit.String()), true
}

// Diff compares the current snapshot with the history. A listing is reported
// when its key is unknown, when it went off market again after the recorded
// date, or when its rent moved. Duplicate keys in current count once.
func Diff(current []models.Listing, history []models.Listing) ([]Change, DiffStats) {
	stats := DiffStats{
		Current: len(current),
		History: len(history),
	}

	recorded := make(map[string]models.Listing, len(history))
	for _, listing := range history {
		key, ok := Key(listing)
		if !ok {
			stats.InvalidHistory++
			continue
		}
		recorded[key] = listing
	}

	visited := make(map[string]struct{}, len(current))
	changes := make([]Change, 0)
	for _, listing := range current {
		key, ok := Key(listing)
		if !ok {
			stats.InvalidCurrent++
			continue
		}
		if _, dup := visited[key]; dup {
			continue
		}
		visited[key] = struct{}{}

		prev, known := recorded[key]
		switch {
		case !known:
			changes = append(changes, Change{Kind: ChangeNew, Listing: listing})
			stats.New++
		case relisted(prev, listing):
			changes = append(changes, Change{
				Kind:          ChangeRelisted,
				Listing:       listing,
				PreviousPrice: prev.Price,
				PreviousOff:   prev.OffMarketAt,
			})
			stats.Relisted++
		case priceMoved(prev, listing):
			changes = append(changes, Change{Kind: ChangePrice, Listing: listing, PreviousPrice: prev.Price})
			stats.PriceChanged++
		}
	}
	return changes, stats
}

// Listings unwraps the changed listings in report order.
func Listings(changes []Change) []models.Listing {
	out := make([]models.Listing, 0, len(changes))
	for _, change := range changes {
		out = append(out, change.Listing)
	}
	return out
}

// Merge records input into history. Known keys keep their position and take
// the new price and off-market date; unknown keys are appended.
func Merge(history []models.Listing, input []models.Listing) ([]models.Listing, MergeStats) {
	stats := MergeStats{
		History: len(history),
		Input:   len(input),
	}

	index := make(map[string]int, len(history)+len(input))
	out := make([]models.Listing, 0, len(history)+len(input))

	for _, listing := range history {
		key, ok := Key(listing)
		if !ok {
			stats.InvalidHistory++
			out = append(out, listing)
			continue
		}
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = len(out)
		out = append(out, listing)
	}

	for _, listing := range input {
		key, ok := Key(listing)
		if !ok {
			stats.InvalidInput++
			continue
		}
		pos, exists := index[key]
		if !exists {
			index[key] = len(out)
			out = append(out, listing)
			stats.Added++
			continue
		}
		if relisted(out[pos], listing) || priceMoved(out[pos], listing) {
			out[pos] = listing
			stats.Updated++
		}
	}

	stats.Total = len(out)
	return out, stats
}

// relisted reports a later off-market date than the recorded one, meaning the
// unit was rented and came back.
func relisted(prev, cur models.Listing) bool {
	before, err := prev.OffMarketTime()
	if err != nil {
		return false
	}
	after, err := cur.OffMarketTime()
	if err != nil {
		return false
	}
	return after.After(before)
}

// priceMoved ignores listings without a known rent on either side.
func priceMoved(prev, cur models.Listing) bool {
	return prev.Price > 0 && cur.Price > 0 && prev.Price != cur.Price
}
