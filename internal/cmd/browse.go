package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/jimezsa/leasecli/internal/browse"
	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/geo"
	"github.com/jimezsa/leasecli/internal/scrape"
)

type BrowseCmd struct {
	FilterFlags
}

// Run loads the listings once and then reads one command per input line
// until quit or end of input.
func (b *BrowseCmd) Run(ctx *Context) error {
	criteria, err := b.Criteria(ctx.Config.DefaultArea)
	if err != nil {
		return err
	}
	state, err := newBrowseState(ctx, criteria)
	if err != nil {
		return err
	}
	defer state.close()

	if err := state.session.Fetch(context.Background()); err != nil {
		ctx.Logger.Debug().Err(err).Msg("initial fetch failed")
	}

	in := ctx.In
	if in == nil {
		in = os.Stdin
	}
	interactive := isTerminal(in)
	scanner := bufio.NewScanner(in)
	for !state.quit {
		if interactive {
			fmt.Fprint(ctx.Err, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := state.exec(line); err != nil {
			ctx.UI.Errorf("%v", err)
		}
	}
	return scanner.Err()
}

type browseState struct {
	ctx        *Context
	session    *browse.Session
	view       *termRenderer
	markers    *geo.Renderer
	collection *geo.Collection
	controller *scrape.Controller
	progress   *progressPrinter

	mu   sync.Mutex
	jobs []*scrape.Run
	quit bool
}

func newBrowseState(ctx *Context, criteria browse.Criteria) (*browseState, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return nil, err
	}
	state := &browseState{
		ctx:        ctx,
		view:       &termRenderer{ctx: ctx},
		collection: geo.NewCollection(),
		controller: newController(ctx, client),
		progress:   &progressPrinter{ctx: ctx},
	}
	state.markers = geo.NewRenderer(geo.Options{
		View:     mapView{Collection: state.collection, ctx: ctx},
		Geocoder: geo.NewCachedGeocoder(client),
		Clock:    ctx.clock(),
		Logger:   ctx.Logger,
		Interval: ctx.Config.GeocodeInterval(),
	})
	state.session = browse.NewSession(browse.Options{
		Client:   client,
		Renderer: state.view,
		Map:      state.markers,
		Notifier: notifier{ctx: ctx},
		Clock:    ctx.clock(),
		Logger:   ctx.Logger,
		Criteria: &criteria,
	})
	state.markers.SetMarkerClick(state.session.MarkerClicked)
	return state, nil
}

// exec parses one input line with a fresh parser and runs it.
func (s *browseState) exec(line string) error {
	var grammar browseGrammar
	parser, err := kong.New(&grammar,
		kong.Name("browse"),
		kong.Exit(func(int) {}),
		kong.Writers(s.ctx.Out, s.ctx.Err),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(strings.Fields(line))
	if err != nil {
		return err
	}
	return kctx.Run(s)
}

func (s *browseState) track(run *scrape.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, run)
}

func (s *browseState) stopTracking() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()
	for _, run := range jobs {
		run.Stop()
	}
}

func (s *browseState) close() {
	s.stopTracking()
	s.session.Close()
	s.markers.Close()
}

func (s *browseState) hooks() scrape.Hooks {
	return scrape.Hooks{
		Refetch:     s.session.FetchLater,
		OnIndicator: s.progress.Print,
	}
}

// fetched logs a failed fetch. The session already shows load failures
// as a toast and superseded fetches are expected.
func (s *browseState) fetched(err error) error {
	if err != nil {
		s.ctx.Logger.Debug().Err(err).Msg("fetch did not render")
	}
	return nil
}

type browseGrammar struct {
	Set     setLine     `cmd:"" help:"Change a filter: set <field> <value>."`
	Reset   resetLine   `cmd:"" help:"Reset every filter and reload."`
	Refresh refreshLine `cmd:"" help:"Reload with the current filters."`
	Filters filtersLine `cmd:"" help:"Print the current filters."`
	Show    showLine    `cmd:"" help:"Print the current listings."`
	Select  selectLine  `cmd:"" help:"Select a card: center the map on its marker."`
	Click   clickLine   `cmd:"" help:"Click a marker: highlight its card."`
	Map     mapLine     `cmd:"" help:"Print the markers as GeoJSON."`
	Run     runLine     `cmd:"" help:"Start the scraper with the current filters."`
	Stop    stopLine    `cmd:"" help:"Stop the scraper."`
	Help    helpLine    `cmd:"" help:"List commands."`
	Quit    quitLine    `cmd:"" aliases:"exit,q" help:"Leave browse mode."`
}

type setLine struct {
	Field string   `arg:"" help:"Filter name."`
	Value []string `arg:"" optional:"" help:"New value."`
}

func (l *setLine) Run(s *browseState) error {
	return s.session.SetFilter(l.Field, strings.Join(l.Value, " "))
}

type resetLine struct{}

func (resetLine) Run(s *browseState) error {
	return s.fetched(s.session.Reset(context.Background()))
}

type refreshLine struct{}

func (refreshLine) Run(s *browseState) error {
	return s.fetched(s.session.Refresh(context.Background()))
}

type filtersLine struct{}

func (filtersLine) Run(s *browseState) error {
	criteria := s.session.Criteria()
	for _, field := range browse.Fields() {
		value, _ := criteria.Get(field)
		if _, err := fmt.Fprintf(s.ctx.Out, "%s=%s\n", field, value); err != nil {
			return err
		}
	}
	return nil
}

type showLine struct {
	OutputOptions
}

func (l *showLine) Run(s *browseState) error {
	return writeView(s.ctx, s.session.View(), l.OutputOptions, s.view.highlighted())
}

type selectLine struct {
	ID string `arg:"" help:"Listing id."`
}

func (l *selectLine) Run(s *browseState) error {
	if !s.session.SelectCard(l.ID) {
		return fmt.Errorf("no marker for listing %s", l.ID)
	}
	if lat, lon, ok := s.collection.CenterPoint(); ok {
		s.ctx.UI.Infof("Map centered on %.6f, %.6f", lat, lon)
	}
	return nil
}

type clickLine struct {
	ID string `arg:"" help:"Listing id."`
}

func (l *clickLine) Run(s *browseState) error {
	if !s.markers.MarkerClicked(l.ID) {
		return fmt.Errorf("no marker for listing %s", l.ID)
	}
	return nil
}

type mapLine struct {
	Output string `name:"output" short:"o" help:"Write GeoJSON to a file."`
}

func (l *mapLine) Run(s *browseState) error {
	if l.Output == "" {
		return s.collection.WriteGeoJSON(s.ctx.Out)
	}
	file, err := os.Create(l.Output)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.collection.WriteGeoJSON(file)
}

type runLine struct{}

func (runLine) Run(s *browseState) error {
	run, err := s.controller.Run(context.Background(), s.session.Criteria().RunRequest(), s.hooks())
	if err != nil {
		// already reported as a toast
		return nil
	}
	s.track(run)
	return nil
}

type stopLine struct{}

func (stopLine) Run(s *browseState) error {
	s.stopTracking()
	run, err := s.controller.Stop(context.Background(), s.hooks())
	if err != nil {
		return nil
	}
	s.track(run)
	return nil
}

type helpLine struct{}

var browseHelp = []string{
	"set <field> <value>   change a filter (" + strings.Join(browse.Fields(), ", ") + ")",
	"reset                 reset every filter and reload",
	"refresh               reload with the current filters",
	"filters               print the current filters",
	"show [--format f]     print the current listings",
	"select <id>           center the map on a listing",
	"click <id>            highlight the card of a marker",
	"map [-o file]         print the markers as GeoJSON",
	"run                   start the scraper with the current filters",
	"stop                  stop the scraper",
	"quit                  leave browse mode",
}

func (helpLine) Run(s *browseState) error {
	_, err := fmt.Fprintln(s.ctx.Out, strings.Join(browseHelp, "\n"))
	return err
}

type quitLine struct{}

func (quitLine) Run(s *browseState) error {
	s.quit = true
	return nil
}

// termRenderer prints the cards each time the session renders.
type termRenderer struct {
	ctx *Context

	mu        sync.Mutex
	last      export.View
	highlight string
}

func (r *termRenderer) Render(view export.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = view
	r.writeLocked()
}

func (r *termRenderer) ShowReset() {
	r.ctx.UI.Warnf("No listings match the current filters. Type `reset` to reset all filters.")
}

func (r *termRenderer) HideReset() {
	r.ctx.Logger.Debug().Msg("reset affordance hidden")
}

func (r *termRenderer) Highlight(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlight = id
	r.writeLocked()
}

func (r *termRenderer) highlighted() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highlight
}

func (r *termRenderer) writeLocked() {
	if err := writeView(r.ctx, r.last, OutputOptions{Format: string(export.FormatCards)}, r.highlight); err != nil {
		r.ctx.Logger.Warn().Err(err).Msg("render listings")
	}
}

// mapView mirrors map-level errors onto the terminal.
type mapView struct {
	*geo.Collection
	ctx *Context
}

func (v mapView) SetError(message string) {
	v.Collection.SetError(message)
	if message != "" {
		v.ctx.UI.Warnf("%s", message)
	}
}

func isTerminal(in io.Reader) bool {
	file, ok := in.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
