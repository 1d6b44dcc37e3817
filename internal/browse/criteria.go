package browse

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/jimezsa/leasecli/internal/models"
)

const (
	All        = "all"
	CustomArea = "custom"

	defaultRunArea     = "west village"
	defaultRunMinPrice = "0"
	defaultRunMaxPrice = "100000"
	firstMonth         = "1"
	lastMonth          = "12"
)

// Criteria is a snapshot of the filter selections.
type Criteria struct {
	Area           string `json:"area"`
	CustomArea     string `json:"custom_area,omitempty"`
	MinPrice       string `json:"min_price,omitempty"`
	MaxPrice       string `json:"max_price,omitempty"`
	Bedrooms       string `json:"bedrooms"`
	Laundry        string `json:"laundry"`
	Pets           string `json:"pets"`
	Outdoor        string `json:"outdoor"`
	Days           string `json:"days"`
	MonthStart     string `json:"offmarket_month_start"`
	MonthEnd       string `json:"offmarket_month_end"`
	ByOwner        string `json:"by_owner"`
	RentStabilized string `json:"rent_stabilized"`
	LastOffMarket  string `json:"last_off_market"`
}

// Default returns the criteria every filter resets to.
func Default() Criteria {
	return Criteria{
		Area:           All,
		Bedrooms:       All,
		Laundry:        All,
		Pets:           All,
		Outdoor:        All,
		Days:           All,
		MonthStart:     firstMonth,
		MonthEnd:       lastMonth,
		ByOwner:        All,
		RentStabilized: All,
		LastOffMarket:  All,
	}
}

// AreaValue resolves the "custom" dropdown marker to the custom text.
func (c Criteria) AreaValue() string {
	area := strings.TrimSpace(c.Area)
	if area == CustomArea {
		area = strings.TrimSpace(c.CustomArea)
	}
	return area
}

// Params builds the listings query. area is always sent; every other key is
// omitted when its value is "all" or empty.
func (c Criteria) Params() url.Values {
	params := url.Values{}
	area := c.AreaValue()
	if area == "" {
		area = All
	}
	params.Set("area", area)

	optional := []struct {
		key   string
		value string
	}{
		{"by_owner", c.ByOwner},
		{"bedrooms", c.Bedrooms},
		{"min_price", c.MinPrice},
		{"max_price", c.MaxPrice},
		{"laundry", c.Laundry},
		{"pets", c.Pets},
		{"outdoor", c.Outdoor},
		{"days_filter", c.Days},
		{"offmarket_month_start", c.MonthStart},
		{"offmarket_month_end", c.MonthEnd},
		{"rent_stabilized", c.RentStabilized},
	}
	for _, param := range optional {
		if isSet(param.value) {
			params.Set(param.key, strings.TrimSpace(param.value))
		}
	}
	return params
}

// AnyActive reports whether some filter narrows the result, including the
// client-only recency bucket. The full-year month range counts as inactive.
func (c Criteria) AnyActive() bool {
	if isSet(c.AreaValue()) || isSet(c.LastOffMarket) {
		return true
	}
	for _, value := range []string{
		c.MinPrice, c.MaxPrice, c.Bedrooms, c.Laundry, c.Pets,
		c.Outdoor, c.Days, c.ByOwner, c.RentStabilized,
	} {
		if isSet(value) {
			return true
		}
	}
	start, end := strings.TrimSpace(c.MonthStart), strings.TrimSpace(c.MonthEnd)
	if start == "" && end == "" {
		return false
	}
	return start != firstMonth || end != lastMonth
}

// RunRequest builds the scraper job body, filling the job defaults for unset fields.
func (c Criteria) RunRequest() models.RunRequest {
	return models.RunRequest{
		Area:                orDefault(c.AreaValue(), defaultRunArea),
		MinPrice:            orDefault(c.MinPrice, defaultRunMinPrice),
		MaxPrice:            orDefault(c.MaxPrice, defaultRunMaxPrice),
		Bedrooms:            orDefault(c.Bedrooms, All),
		Laundry:             orDefault(c.Laundry, All),
		Pets:                orDefault(c.Pets, All),
		Outdoor:             orDefault(c.Outdoor, All),
		Days:                orDefault(c.Days, All),
		OffMarketMonthStart: orDefault(c.MonthStart, firstMonth),
		OffMarketMonthEnd:   orDefault(c.MonthEnd, lastMonth),
		ByOwner:             orDefault(c.ByOwner, All),
		RentStabilized:      orDefault(c.RentStabilized, All),
	}
}

// Fields lists the names accepted by Set.
func Fields() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set updates one filter by name. Dashes and underscores are interchangeable.
func (c *Criteria) Set(field, value string) error {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(field)), "-", "_")
	setter, ok := setters[name]
	if !ok {
		return fmt.Errorf("unknown filter %q (known: %s)", field, strings.Join(Fields(), ", "))
	}
	value = strings.TrimSpace(value)
	if err := setter.validate(value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*setter.field(c) = value
	return nil
}

// Get returns a filter's current value by name.
func (c Criteria) Get(field string) (string, bool) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(field)), "-", "_")
	setter, ok := setters[name]
	if !ok {
		return "", false
	}
	return *setter.field(&c), true
}

type fieldSetter struct {
	field    func(*Criteria) *string
	validate func(string) error
}

var setters = map[string]fieldSetter{
	"area":            {func(c *Criteria) *string { return &c.Area }, anyValue},
	"custom_area":     {func(c *Criteria) *string { return &c.CustomArea }, anyValue},
	"min_price":       {func(c *Criteria) *string { return &c.MinPrice }, price},
	"max_price":       {func(c *Criteria) *string { return &c.MaxPrice }, price},
	"bedrooms":        {func(c *Criteria) *string { return &c.Bedrooms }, anyValue},
	"laundry":         {func(c *Criteria) *string { return &c.Laundry }, anyValue},
	"pets":            {func(c *Criteria) *string { return &c.Pets }, anyValue},
	"outdoor":         {func(c *Criteria) *string { return &c.Outdoor }, anyValue},
	"days":            {func(c *Criteria) *string { return &c.Days }, anyValue},
	"month_start":     {func(c *Criteria) *string { return &c.MonthStart }, month},
	"month_end":       {func(c *Criteria) *string { return &c.MonthEnd }, month},
	"by_owner":        {func(c *Criteria) *string { return &c.ByOwner }, anyValue},
	"rent_stabilized": {func(c *Criteria) *string { return &c.RentStabilized }, anyValue},
	"last_off_market": {func(c *Criteria) *string { return &c.LastOffMarket }, bucket},
}

func anyValue(string) error { return nil }

func price(value string) error {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("price must be a non-negative whole number, got %q", value)
	}
	return nil
}

func month(value string) error {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %q", value)
	}
	return nil
}

func bucket(value string) error {
	if value == "" || value == All {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("recency bucket must be all or a positive number of years, got %q", value)
	}
	return nil
}

func isSet(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && value != All
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
