package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jimezsa/leasecli/internal/apitest"
	"github.com/jimezsa/leasecli/internal/browse"
	"github.com/jimezsa/leasecli/internal/config"
	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/sched"
	"github.com/jimezsa/leasecli/internal/seen"
	"github.com/jimezsa/leasecli/internal/ui"
	"github.com/rs/zerolog"
)

type testEnv struct {
	srv *apitest.Server
	ctx *Context
	out *bytes.Buffer
	err *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.TimeoutSeconds = 5
	cfg.GeocodeIntervalMS = 1

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &testEnv{
		srv: srv,
		out: out,
		err: errOut,
		ctx: &Context{
			In:      strings.NewReader(""),
			Out:     out,
			Err:     errOut,
			UI:      ui.New(out, errOut, ui.ColorNever, true),
			Config:  cfg,
			Logger:  zerolog.Nop(),
			Version: "test",
		},
	}
}

func sampleListings() []models.Listing {
	return []models.Listing{
		{ID: "1", Address: "1 Bank St", Price: 3000, Beds: "1", Baths: "1", Latitude: "40.7365", Longitude: "-74.0053"},
		{ID: "2", Address: "2 Perry St", Price: 2000, Beds: "0", Baths: "1"},
		{ID: "3", Address: "3 Jane St", Price: 4500, Beds: "2", Baths: "1", LikelyStabilized: true},
	}
}

func TestResolveFormatWithOutputPathRespectsGlobalFlags(t *testing.T) {
	ctx := &Context{Out: io.Discard, JSONOutput: true}
	got, err := resolveFormat(ctx, OutputOptions{}, "listings.csv")
	if err != nil {
		t.Fatalf("resolveFormat() error = %v", err)
	}
	if got != export.FormatJSON {
		t.Fatalf("resolveFormat() = %q, want %q", got, export.FormatJSON)
	}

	ctx = &Context{Out: io.Discard, PlainText: true}
	got, err = resolveFormat(ctx, OutputOptions{}, "listings.json")
	if err != nil {
		t.Fatalf("resolveFormat() error = %v", err)
	}
	if got != export.FormatTSV {
		t.Fatalf("resolveFormat() = %q, want %q", got, export.FormatTSV)
	}
}

func TestResolveFormatFromExtension(t *testing.T) {
	ctx := &Context{Out: io.Discard}
	cases := map[string]export.Format{
		"out.html": export.FormatHTML,
		"out.json": export.FormatJSON,
		"out.md":   export.FormatMarkdown,
		"out.tsv":  export.FormatTSV,
		"out.txt":  export.FormatCSV,
		"":         export.FormatCSV,
	}
	for path, want := range cases {
		got, err := resolveFormat(ctx, OutputOptions{}, path)
		if err != nil {
			t.Fatalf("resolveFormat(%q) error = %v", path, err)
		}
		if got != want {
			t.Fatalf("resolveFormat(%q) = %q, want %q", path, got, want)
		}
	}

	got, err := resolveFormat(ctx, OutputOptions{Format: "table"}, "out.json")
	if err != nil {
		t.Fatalf("resolveFormat() error = %v", err)
	}
	if got != export.FormatTable {
		t.Fatalf("explicit --format = %q, want %q", got, export.FormatTable)
	}
}

func TestUpdateSeenHistoryCreatesFileAndMerges(t *testing.T) {
	seenPath := filepath.Join(t.TempDir(), "listings_seen.json")
	input := []models.Listing{{ID: "1", Address: "1 Bank St"}}

	if err := updateSeenHistory(seenPath, input); err != nil {
		t.Fatalf("updateSeenHistory() error = %v", err)
	}
	if err := updateSeenHistory(seenPath, input); err != nil {
		t.Fatalf("updateSeenHistory() (2nd) error = %v", err)
	}
	got, err := seen.ReadListings(seenPath)
	if err != nil {
		t.Fatalf("ReadListings() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}

	input = append(input, models.Listing{ID: "2", Address: "2 Perry St"})
	if err := updateSeenHistory(seenPath, input); err != nil {
		t.Fatalf("updateSeenHistory() (3rd) error = %v", err)
	}
	got, err = seen.ReadListings(seenPath)
	if err != nil {
		t.Fatalf("ReadListings() (3rd) error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) after 3rd update = %d, want 2", len(got))
	}
}

func TestFilterFlagsCriteria(t *testing.T) {
	criteria, err := FilterFlags{MinPrice: "1500", LastOffMarket: "2"}.Criteria("chelsea")
	if err != nil {
		t.Fatalf("Criteria() error = %v", err)
	}
	if criteria.Area != "chelsea" || criteria.MinPrice != "1500" || criteria.LastOffMarket != "2" {
		t.Fatalf("Criteria() = %+v", criteria)
	}
	if criteria.Bedrooms != "all" || criteria.MonthStart != "1" || criteria.MonthEnd != "12" {
		t.Fatalf("untouched filters should keep defaults: %+v", criteria)
	}

	criteria, err = FilterFlags{Area: "soho"}.Criteria("chelsea")
	if err != nil {
		t.Fatalf("Criteria() error = %v", err)
	}
	if criteria.Area != "soho" {
		t.Fatalf("--area should win over the config default, got %q", criteria.Area)
	}

	if _, err := (FilterFlags{MinPrice: "cheap"}).Criteria(""); err == nil {
		t.Fatalf("expected an error for a non-numeric price")
	}
}

func TestLastOffMarketHelpMatchesOpenEndedBucket(t *testing.T) {
	field, ok := reflect.TypeOf(FilterFlags{}).FieldByName("LastOffMarket")
	if !ok {
		t.Fatalf("FilterFlags has no LastOffMarket field")
	}
	help := field.Tag.Get("help")
	want := fmt.Sprintf("%d means %d or more years ago", browse.OpenEndedBucket, browse.OpenEndedBucket)
	if !strings.Contains(help, want) {
		t.Fatalf("help = %q, want it to contain %q", help, want)
	}
	if strings.Contains(help, "5+") {
		t.Fatalf("help = %q still describes the bucket as 5+", help)
	}
}

func TestListingsCommandWritesSortedJSON(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetListings(sampleListings()...)
	env.ctx.JSONOutput = true

	cmd := &ListingsCmd{FilterFlags: FilterFlags{Area: "west village", MaxPrice: "5000"}}
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	queries := env.srv.Queries()
	if len(queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(queries))
	}
	if queries[0].Get("area") != "west village" || queries[0].Get("max_price") != "5000" {
		t.Fatalf("query = %v", queries[0])
	}
	if queries[0].Has("bedrooms") {
		t.Fatalf("'all' filters must not be sent: %v", queries[0])
	}

	var view struct {
		Listings []models.Listing `json:"listings"`
		Stats    export.Stats     `json:"stats"`
	}
	if err := json.Unmarshal(env.out.Bytes(), &view); err != nil {
		t.Fatalf("decode output: %v\n%s", err, env.out.String())
	}
	var ids []string
	for _, listing := range view.Listings {
		ids = append(ids, listing.ID.String())
	}
	if strings.Join(ids, ",") != "2,1,3" {
		t.Fatalf("ids = %v, want price order 2,1,3", ids)
	}
	if !strings.Contains(env.err.String(), "summary: listings=3") {
		t.Fatalf("summary missing from stderr: %q", env.err.String())
	}
}

func TestListingsCommandSeenTracking(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetListings(sampleListings()...)
	env.ctx.JSONOutput = true

	dir := t.TempDir()
	seenPath := filepath.Join(dir, "seen.json")
	if err := seen.WriteListings(seenPath, []models.Listing{{ID: "1", Address: "1 Bank St"}}); err != nil {
		t.Fatalf("WriteListings() error = %v", err)
	}

	cmd := &ListingsCmd{Seen: seenPath, NewOnly: true, SeenUpdate: true}
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Contains(env.out.String(), "1 Bank St") {
		t.Fatalf("--new-only output should skip seen listings:\n%s", env.out.String())
	}
	history, err := seen.ReadListings(seenPath)
	if err != nil {
		t.Fatalf("ReadListings() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history = %d listings, want 3", len(history))
	}
}

func TestListingsCommandReportsPriceChanges(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetListings(sampleListings()...)
	env.ctx.JSONOutput = true

	seenPath := filepath.Join(t.TempDir(), "seen.json")
	history := []models.Listing{
		{ID: "1", Address: "1 Bank St", Price: 3200},
		{ID: "2", Address: "2 Perry St", Price: 2000},
		{ID: "3", Address: "3 Jane St", Price: 4500},
	}
	if err := seen.WriteListings(seenPath, history); err != nil {
		t.Fatalf("WriteListings() error = %v", err)
	}

	cmd := &ListingsCmd{Seen: seenPath, NewOnly: true, SeenUpdate: true}
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var view export.View
	if err := json.Unmarshal(env.out.Bytes(), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, env.out.String())
	}
	if len(view.Listings) != 1 || view.Listings[0].ID != "1" {
		t.Fatalf("--new-only should keep only the repriced listing: %+v", view.Listings)
	}
	if !strings.Contains(env.err.String(), "new=0 price_changed=1 relisted=0") {
		t.Fatalf("summary missing change counts:\n%s", env.err.String())
	}

	got, err := seen.ReadListings(seenPath)
	if err != nil {
		t.Fatalf("ReadListings() error = %v", err)
	}
	if len(got) != 3 || got[0].Price != 3000 {
		t.Fatalf("history should record the new price: %+v", got)
	}
}

func TestSeenDiffAndUpdateCommands(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	seenPath := filepath.Join(dir, "seen.json")
	currentPath := filepath.Join(dir, "current.json")

	if err := seen.WriteListings(seenPath, []models.Listing{{ID: "2", Address: "2 Perry St", Price: 2200}}); err != nil {
		t.Fatalf("WriteListings() error = %v", err)
	}
	if err := seen.WriteListings(currentPath, sampleListings()); err != nil {
		t.Fatalf("WriteListings() error = %v", err)
	}

	diff := &SeenDiffCmd{Current: currentPath, Seen: seenPath, Stats: true}
	if err := diff.Run(env.ctx); err != nil {
		t.Fatalf("diff Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("diff lines = %q", lines)
	}
	if !strings.HasPrefix(lines[1], "price") || !strings.Contains(lines[1], "$2,000 (-$200)  2 Perry St") {
		t.Fatalf("price change line = %q", lines[1])
	}
	if !strings.Contains(env.err.String(), "current=3 history=1 invalid_skipped=0 new=2 price_changed=1 relisted=0") {
		t.Fatalf("diff stats = %q", env.err.String())
	}

	env.err.Reset()
	update := &SeenUpdateCmd{Seen: seenPath, Input: currentPath, Stats: true}
	if err := update.Run(env.ctx); err != nil {
		t.Fatalf("update Run() error = %v", err)
	}
	if !strings.Contains(env.err.String(), "added=2 updated=1 total=3") {
		t.Fatalf("update stats = %q", env.err.String())
	}
	got, err := seen.ReadListings(seenPath)
	if err != nil {
		t.Fatalf("ReadListings() error = %v", err)
	}
	if len(got) != 3 || got[0].ID != "2" || got[0].Price != 2000 {
		t.Fatalf("updated history = %+v", got)
	}
}

func TestListingsCommandValidatesSeenFlags(t *testing.T) {
	env := newTestEnv(t)
	if err := (&ListingsCmd{NewOnly: true}).Run(env.ctx); err == nil {
		t.Fatalf("expected --new-only without --seen to fail")
	}
	path := filepath.Join(t.TempDir(), "same.json")
	cmd := &ListingsCmd{Seen: path, OutputOptions: OutputOptions{Output: path}}
	if err := cmd.Run(env.ctx); err == nil {
		t.Fatalf("expected --output equal to --seen to fail")
	}
	if len(env.srv.Queries()) != 0 {
		t.Fatalf("flag errors must not reach the backend")
	}
}

func TestListingsCommandShowsResetHint(t *testing.T) {
	env := newTestEnv(t)
	cmd := &ListingsCmd{FilterFlags: FilterFlags{Bedrooms: "3"}, OutputOptions: OutputOptions{Format: "cards"}}
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(env.out.String(), export.EmptyTitle) {
		t.Fatalf("empty state missing:\n%s", env.out.String())
	}
	if !strings.Contains(env.err.String(), "No listings match the current filters") {
		t.Fatalf("reset hint missing: %q", env.err.String())
	}
}

func TestListingsCommandReportsLoadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetListingsResponse(500, `{"error":"database unavailable"}`)
	err := (&ListingsCmd{}).Run(env.ctx)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "database unavailable") {
		t.Fatalf("error = %v, want the server message", err)
	}
}

func TestMapCommandWritesGeoJSON(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetListings(sampleListings()[:2]...)
	env.srv.SetGeocode("2 Perry St", "40.7357", "-74.0036")

	cmd := &MapCmd{Select: "1", Wait: 10 * time.Second}
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var doc struct {
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(env.out.Bytes(), &doc); err != nil {
		t.Fatalf("decode GeoJSON: %v\n%s", err, env.out.String())
	}
	if len(doc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(doc.Features))
	}
	selected := 0
	for _, f := range doc.Features {
		if f.Properties["selected"] == true {
			selected++
			if f.ID != "1" {
				t.Fatalf("selected feature = %q, want 1", f.ID)
			}
		}
	}
	if selected != 1 {
		t.Fatalf("selected features = %d, want 1", selected)
	}
	if calls := env.srv.GeocodeCalls(); len(calls) != 1 || calls[0] != "2 Perry St" {
		t.Fatalf("geocode calls = %v", calls)
	}
}

func TestGeocodeCommand(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetGeocode("1 Bank St", "40.7365", "-74.0053")
	env.ctx.PlainText = true

	if err := (&GeocodeCmd{Address: "1 Bank St"}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	fields := strings.Split(strings.TrimSpace(env.out.String()), "\t")
	if len(fields) != 4 || fields[0] != "1 Bank St" || !strings.HasPrefix(fields[1], "40.7365") {
		t.Fatalf("output = %q", env.out.String())
	}

	if err := (&GeocodeCmd{Address: "nowhere"}).Run(env.ctx); err == nil {
		t.Fatalf("expected an error for an unresolved address")
	}
}

func TestScraperRunDetachedSendsRequest(t *testing.T) {
	env := newTestEnv(t)
	env.ctx.Clock = sched.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	cmd := &ScraperRunCmd{FilterFlags: FilterFlags{MinPrice: "2000"}, Detach: true}
	if err := cmd.Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	requests := env.srv.RunRequests()
	if len(requests) != 1 {
		t.Fatalf("run requests = %d, want 1", len(requests))
	}
	if requests[0].Area != "all" || requests[0].MinPrice != "2000" || requests[0].MaxPrice != "100000" {
		t.Fatalf("run request = %+v", requests[0])
	}
	if !strings.Contains(env.err.String(), "Scraper started successfully!") {
		t.Fatalf("start toast missing: %q", env.err.String())
	}
}

func TestScraperRunStartFailure(t *testing.T) {
	env := newTestEnv(t)
	env.srv.FailRun("Scraper is already running")

	err := (&ScraperRunCmd{Detach: true}).Run(env.ctx)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(env.err.String(), "Error starting scraper: Scraper is already running") {
		t.Fatalf("failure toast missing: %q", env.err.String())
	}
}

func TestScraperStatusCommand(t *testing.T) {
	env := newTestEnv(t)
	progress := 45.0
	env.srv.QueueStatuses(models.ScraperStatus{Status: models.StateRunning, ProgressPercent: &progress, DisplayMessage: "Scraping page 3"})
	env.ctx.PlainText = true

	if err := (&ScraperStatusCmd{}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := strings.TrimSpace(env.out.String()); got != "running\t45%\tScraping page 3" {
		t.Fatalf("output = %q", got)
	}
}

func TestPingCommand(t *testing.T) {
	env := newTestEnv(t)
	env.ctx.PlainText = true
	if err := (&PingCmd{Timeout: 5 * time.Second}).Run(env.ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), env.out.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, "\tok\t") {
			t.Fatalf("check failed: %q", line)
		}
	}
}
