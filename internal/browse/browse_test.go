package browse

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/sched"
	"github.com/rs/zerolog"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func allCriteria() Criteria {
	return Criteria{
		Area:           All,
		Bedrooms:       All,
		Laundry:        All,
		Pets:           All,
		Outdoor:        All,
		Days:           All,
		ByOwner:        All,
		RentStabilized: All,
		LastOffMarket:  All,
	}
}

func TestParamsOnlyArea(t *testing.T) {
	c := allCriteria()
	c.Area = "west village"
	got := c.Params()
	want := url.Values{"area": {"west village"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Params() = %v, want %v", got, want)
	}

	empty := Criteria{}
	if got := empty.Params(); !reflect.DeepEqual(got, url.Values{"area": {"all"}}) {
		t.Fatalf("empty Params() = %v", got)
	}
}

func TestParamsCustomAreaAndFilters(t *testing.T) {
	c := Default()
	c.Area = CustomArea
	c.CustomArea = "  astoria "
	c.MinPrice = "1500"
	c.Pets = "yes"
	c.Days = "0-7"
	c.LastOffMarket = "2"

	got := c.Params()
	want := url.Values{
		"area":                  {"astoria"},
		"min_price":             {"1500"},
		"pets":                  {"yes"},
		"days_filter":           {"0-7"},
		"offmarket_month_start": {"1"},
		"offmarket_month_end":   {"12"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Params() = %v, want %v", got, want)
	}
}

func TestAnyActive(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Criteria)
		want   bool
	}{
		{name: "defaults", mutate: func(*Criteria) {}, want: false},
		{name: "area", mutate: func(c *Criteria) { c.Area = "chelsea" }, want: true},
		{name: "empty custom area", mutate: func(c *Criteria) { c.Area = CustomArea }, want: false},
		{name: "recency", mutate: func(c *Criteria) { c.LastOffMarket = "1" }, want: true},
		{name: "month range", mutate: func(c *Criteria) { c.MonthStart = "11"; c.MonthEnd = "2" }, want: true},
		{name: "cleared months", mutate: func(c *Criteria) { c.MonthStart = ""; c.MonthEnd = "" }, want: false},
		{name: "max price", mutate: func(c *Criteria) { c.MaxPrice = "4000" }, want: true},
	}
	for _, tc := range cases {
		c := Default()
		tc.mutate(&c)
		if got := c.AnyActive(); got != tc.want {
			t.Fatalf("%s: AnyActive() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRunRequestDefaults(t *testing.T) {
	got := Criteria{}.RunRequest()
	want := models.RunRequest{
		Area:                "west village",
		MinPrice:            "0",
		MaxPrice:            "100000",
		Bedrooms:            "all",
		Laundry:             "all",
		Pets:                "all",
		Outdoor:             "all",
		Days:                "all",
		OffMarketMonthStart: "1",
		OffMarketMonthEnd:   "12",
		ByOwner:             "all",
		RentStabilized:      "all",
	}
	if got != want {
		t.Fatalf("RunRequest() = %+v, want %+v", got, want)
	}

	c := Default()
	c.Area = CustomArea
	c.CustomArea = "astoria"
	c.MaxPrice = "3500"
	if got := c.RunRequest(); got.Area != "astoria" || got.MaxPrice != "3500" || got.MinPrice != "0" {
		t.Fatalf("RunRequest() = %+v", got)
	}
}

func TestSetValidates(t *testing.T) {
	c := Default()
	if err := c.Set("min-price", "1200"); err != nil || c.MinPrice != "1200" {
		t.Fatalf("Set(min-price) = %v, MinPrice = %q", err, c.MinPrice)
	}
	for _, tc := range [][2]string{{"month_start", "13"}, {"min_price", "cheap"}, {"last_off_market", "-1"}, {"color", "red"}} {
		if err := c.Set(tc[0], tc[1]); err == nil {
			t.Fatalf("Set(%s, %s) error = nil", tc[0], tc[1])
		}
	}
	if v, ok := c.Get("min_price"); !ok || v != "1200" {
		t.Fatalf("Get(min_price) = %q, %v", v, ok)
	}
}

func yearsAgo(years float64) string {
	return now.Add(-time.Duration(years * float64(yearLength))).Format(time.RFC3339)
}

func TestPostFilterBuckets(t *testing.T) {
	listings := []models.Listing{
		{ID: "half", OffMarketAt: yearsAgo(0.5)},
		{ID: "three", OffMarketAt: yearsAgo(3)},
		{ID: "five", OffMarketAt: yearsAgo(5)},
		{ID: "five-and-a-half", OffMarketAt: yearsAgo(5.5)},
		{ID: "six", OffMarketAt: yearsAgo(6)},
		{ID: "nine", OffMarketAt: yearsAgo(9)},
		{ID: "missing"},
		{ID: "garbage", OffMarketAt: "last spring"},
	}

	cases := []struct {
		bucket string
		want   []string
	}{
		{bucket: "1", want: []string{"half"}},
		{bucket: "3", want: []string{"half", "three"}},
		{bucket: "5", want: []string{"half", "three", "five"}},
		{bucket: "6", want: []string{"six", "nine"}},
		{bucket: "bogus", want: []string{}},
	}
	for _, tc := range cases {
		got := []string{}
		for _, listing := range PostFilter(listings, tc.bucket, now) {
			got = append(got, listing.ID.String())
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("bucket %s: got %v, want %v", tc.bucket, got, tc.want)
		}
	}

	for _, bucket := range []string{"all", ""} {
		if got := PostFilter(listings, bucket, now); len(got) != len(listings) {
			t.Fatalf("bucket %q dropped listings: %d", bucket, len(got))
		}
	}
}

type fakeLister struct {
	mu      sync.Mutex
	queries []url.Values
	results [][]models.Listing
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeLister) Listings(ctx context.Context, params url.Values) ([]models.Listing, error) {
	f.mu.Lock()
	f.queries = append(f.queries, params)
	block, entered := f.block, f.entered
	f.block, f.entered = nil, nil
	err := f.err
	var result []models.Listing
	if len(f.results) > 0 {
		result = f.results[0]
		if len(f.results) > 1 {
			f.results = f.results[1:]
		}
	}
	f.mu.Unlock()

	if block != nil {
		close(entered)
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *fakeLister) Queries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.queries...)
}

type fakeRenderer struct {
	mu         sync.Mutex
	views      []export.View
	resets     int
	hides      int
	highlights []string
}

func (r *fakeRenderer) Render(view export.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
}

func (r *fakeRenderer) ShowReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *fakeRenderer) HideReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hides++
}

func (r *fakeRenderer) Highlight(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlights = append(r.highlights, id)
}

type fakeMap struct {
	updates [][]models.Listing
	focused []string
}

func (m *fakeMap) Update(listings []models.Listing) {
	m.updates = append(m.updates, listings)
}

func (m *fakeMap) Focus(id string) bool {
	m.focused = append(m.focused, id)
	return id == "1"
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Toast(message string, d time.Duration) {
	n.messages = append(n.messages, message)
}

type harness struct {
	session  *Session
	lister   *fakeLister
	renderer *fakeRenderer
	mapView  *fakeMap
	notifier *fakeNotifier
	clock    *sched.Fake
}

func newHarness(criteria *Criteria) *harness {
	h := &harness{
		lister:   &fakeLister{},
		renderer: &fakeRenderer{},
		mapView:  &fakeMap{},
		notifier: &fakeNotifier{},
		clock:    sched.NewFake(now),
	}
	h.session = NewSession(Options{
		Client:   h.lister,
		Renderer: h.renderer,
		Map:      h.mapView,
		Notifier: h.notifier,
		Clock:    h.clock,
		Logger:   zerolog.Nop(),
		Criteria: criteria,
	})
	return h
}

func ids(listings []models.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, listing := range listings {
		out = append(out, listing.ID.String())
	}
	return out
}

func TestFetchRendersSortedView(t *testing.T) {
	h := newHarness(nil)
	h.lister.results = [][]models.Listing{{
		{ID: "1", Price: 3000},
		{ID: "2", Price: 2000},
	}}

	if err := h.session.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(h.renderer.views) != 1 {
		t.Fatalf("renders = %d, want 1", len(h.renderer.views))
	}
	view := h.renderer.views[0]
	if got := ids(view.Listings); !reflect.DeepEqual(got, []string{"2", "1"}) {
		t.Fatalf("order = %v, want [2 1]", got)
	}
	if view.Stats.AveragePrice != 2500 {
		t.Fatalf("average = %d, want 2500", view.Stats.AveragePrice)
	}
	if len(h.mapView.updates) != 1 || len(h.mapView.updates[0]) != 2 {
		t.Fatalf("map updates = %v", h.mapView.updates)
	}
	if got := ids(h.session.All()); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("All() = %v, want server order", got)
	}
}

func TestFetchAppliesRecencyFilter(t *testing.T) {
	criteria := Default()
	criteria.LastOffMarket = "1"
	h := newHarness(&criteria)
	h.lister.results = [][]models.Listing{{
		{ID: "recent", OffMarketAt: yearsAgo(0.2)},
		{ID: "old", OffMarketAt: yearsAgo(4)},
		{ID: "unknown"},
	}}
	if err := h.session.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := ids(h.session.Filtered()); !reflect.DeepEqual(got, []string{"recent"}) {
		t.Fatalf("Filtered() = %v", got)
	}
	if len(h.session.All()) != 3 {
		t.Fatalf("All() should keep the server snapshot")
	}
	if q := h.lister.Queries()[0]; q.Has("last_off_market") {
		t.Fatalf("recency bucket sent to the server: %v", q)
	}
}

func TestFetchFailureKeepsSnapshot(t *testing.T) {
	h := newHarness(nil)
	h.lister.results = [][]models.Listing{{{ID: "1", Price: 1000}}}
	if err := h.session.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	h.lister.err = api.ErrTransport
	err := h.session.Fetch(context.Background())
	if !errors.Is(err, api.ErrTransport) {
		t.Fatalf("Fetch() error = %v, want ErrTransport", err)
	}
	if got := ids(h.session.All()); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("snapshot changed after failure: %v", got)
	}
	if len(h.renderer.views) != 1 {
		t.Fatalf("renders = %d, want 1", len(h.renderer.views))
	}
	if !reflect.DeepEqual(h.notifier.messages, []string{LoadErrorMessage}) {
		t.Fatalf("toasts = %v", h.notifier.messages)
	}
	if len(h.lister.Queries()) != 2 {
		t.Fatalf("requests = %d, want no retry", len(h.lister.Queries()))
	}
}

func TestResetAffordance(t *testing.T) {
	criteria := Default()
	criteria.Area = "tribeca"
	criteria.MonthStart = "3"
	criteria.MonthEnd = "5"
	criteria.LastOffMarket = "2"
	h := newHarness(&criteria)
	h.lister.results = [][]models.Listing{{}, {}, {{ID: "1", Price: 2000}}}

	for i := 0; i < 2; i++ {
		if err := h.session.Fetch(context.Background()); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if h.renderer.resets != 1 || !h.session.ResetShown() {
		t.Fatalf("reset affordance shown %d times, want 1", h.renderer.resets)
	}

	if err := h.session.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	got := h.session.Criteria()
	if got != Default() {
		t.Fatalf("criteria after reset = %+v", got)
	}
	if got.Area != All || got.MonthStart != "1" || got.MonthEnd != "12" || got.LastOffMarket != All {
		t.Fatalf("criteria after reset = %+v", got)
	}
	queries := h.lister.Queries()
	if len(queries) != 3 || queries[2].Get("area") != All {
		t.Fatalf("queries = %v", queries)
	}
	if h.renderer.hides != 1 || h.session.ResetShown() {
		t.Fatalf("reset affordance not removed after non-empty result")
	}
	if h.notifier.messages[0] != ResetMessage {
		t.Fatalf("toasts = %v", h.notifier.messages)
	}
}

func TestEmptyResultWithoutFiltersHasNoReset(t *testing.T) {
	h := newHarness(nil)
	h.lister.results = [][]models.Listing{{}}
	if err := h.session.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if h.renderer.resets != 0 {
		t.Fatalf("reset affordance shown with default filters")
	}
	if len(h.renderer.views) != 1 || h.renderer.views[0].Stats.Total != 0 {
		t.Fatalf("empty view not rendered")
	}
}

func TestFilterChangesAreDebounced(t *testing.T) {
	h := newHarness(nil)
	h.lister.results = [][]models.Listing{{}}

	if err := h.session.SetFilter("min_price", "1000"); err != nil {
		t.Fatalf("SetFilter() error = %v", err)
	}
	h.clock.Advance(100 * time.Millisecond)
	_ = h.session.SetFilter("max_price", "3000")
	h.clock.Advance(100 * time.Millisecond)
	_ = h.session.SetFilter("pets", "yes")
	h.clock.Advance(299 * time.Millisecond)
	if n := len(h.lister.Queries()); n != 0 {
		t.Fatalf("requests before quiet period = %d", n)
	}
	h.clock.Advance(time.Millisecond)

	queries := h.lister.Queries()
	if len(queries) != 1 {
		t.Fatalf("requests = %d, want 1", len(queries))
	}
	q := queries[0]
	if q.Get("min_price") != "1000" || q.Get("max_price") != "3000" || q.Get("pets") != "yes" {
		t.Fatalf("query = %v", q)
	}
	if err := h.session.SetFilter("month_start", "0"); err == nil {
		t.Fatalf("SetFilter(month_start, 0) error = nil")
	}
}

func TestLatestFetchWins(t *testing.T) {
	h := newHarness(nil)
	block := make(chan struct{})
	entered := make(chan struct{})
	h.lister.block = block
	h.lister.entered = entered
	h.lister.results = [][]models.Listing{{{ID: "stale"}}, {{ID: "fresh"}}}

	staleErr := make(chan error, 1)
	go func() { staleErr <- h.session.Fetch(context.Background()) }()
	<-entered

	if err := h.session.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if err := <-staleErr; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale Fetch() error = %v, want ErrSuperseded", err)
	}
	close(block)

	if got := ids(h.session.All()); !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Fatalf("All() = %v, want [fresh]", got)
	}
	if len(h.renderer.views) != 1 {
		t.Fatalf("renders = %d, want 1", len(h.renderer.views))
	}
}

func TestCardAndMarkerCorrelation(t *testing.T) {
	h := newHarness(nil)
	h.lister.results = [][]models.Listing{{{ID: "1", Price: 1000}}}
	if err := h.session.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !h.session.SelectCard("1") || h.session.SelectCard("2") {
		t.Fatalf("SelectCard results unexpected: %v", h.mapView.focused)
	}
	h.session.MarkerClicked("1")
	h.session.MarkerClicked("unknown")
	if !reflect.DeepEqual(h.renderer.highlights, []string{"1"}) {
		t.Fatalf("highlights = %v", h.renderer.highlights)
	}
}
