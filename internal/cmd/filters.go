package cmd

import (
	"github.com/jimezsa/leasecli/internal/browse"
)

// FilterFlags mirror the filter panel. Empty flags keep the default selection.
type FilterFlags struct {
	Area           string `help:"Neighborhood, 'all', or 'custom' with --custom-area."`
	CustomArea     string `help:"Free-text area used when --area=custom."`
	MinPrice       string `help:"Minimum monthly rent."`
	MaxPrice       string `help:"Maximum monthly rent."`
	Bedrooms       string `help:"Bedrooms: all, studio, 1, 2, 3, 4+."`
	Laundry        string `help:"Laundry: all, in_unit, in_building."`
	Pets           string `help:"Pet policy filter."`
	Outdoor        string `help:"Outdoor space filter."`
	Days           string `help:"Listed within the last N days."`
	MonthStart     string `help:"Off-market month range start (1-12)."`
	MonthEnd       string `help:"Off-market month range end (1-12)."`
	ByOwner        string `help:"By-owner filter: all, true, false."`
	RentStabilized string `help:"Rent-stabilized filter: all, true, false."`
	LastOffMarket  string `help:"Years since last off market: all or 1-6 (6 means 6 or more years ago)."`
}

// Criteria applies the flags on top of the defaults, with defaultArea
// standing in when --area is not given.
func (f FilterFlags) Criteria(defaultArea string) (browse.Criteria, error) {
	criteria := browse.Default()
	values := []struct{ field, value string }{
		{"area", firstNonEmpty(f.Area, defaultArea)},
		{"custom_area", f.CustomArea},
		{"min_price", f.MinPrice},
		{"max_price", f.MaxPrice},
		{"bedrooms", f.Bedrooms},
		{"laundry", f.Laundry},
		{"pets", f.Pets},
		{"outdoor", f.Outdoor},
		{"days", f.Days},
		{"month_start", f.MonthStart},
		{"month_end", f.MonthEnd},
		{"by_owner", f.ByOwner},
		{"rent_stabilized", f.RentStabilized},
		{"last_off_market", f.LastOffMarket},
	}
	for _, v := range values {
		if v.value == "" {
			continue
		}
		if err := criteria.Set(v.field, v.value); err != nil {
			return browse.Criteria{}, err
		}
	}
	return criteria, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
