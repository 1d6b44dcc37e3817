package browse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/sched"
	"github.com/rs/zerolog"
)

const (
	DefaultDebounce = 300 * time.Millisecond

	LoadErrorMessage  = "Error loading listings. Please try again."
	LoadErrorDuration = 5 * time.Second
	ResetMessage      = "Filters reset. Refreshing listings..."
	RefreshMessage    = "Refreshing listings..."
	ToastDuration     = 2 * time.Second
)

// ErrSuperseded is returned by Fetch when a newer fetch started before this one finished.
var ErrSuperseded = errors.New("fetch superseded by a newer request")

// Lister is the listings endpoint.
type Lister interface {
	Listings(ctx context.Context, params url.Values) ([]models.Listing, error)
}

// Renderer displays the listing cards.
type Renderer interface {
	Render(view export.View)
	// ShowReset and HideReset toggle the "Reset All Filters" affordance.
	ShowReset()
	HideReset()
	Highlight(id string)
}

// MapRenderer is the marker side of the view.
type MapRenderer interface {
	Update(listings []models.Listing)
	Focus(id string) bool
}

type Notifier interface {
	Toast(message string, d time.Duration)
}

type Options struct {
	Client   Lister
	Renderer Renderer
	Map      MapRenderer
	Notifier Notifier
	Clock    sched.Clock
	Logger   zerolog.Logger
	Debounce time.Duration
	Criteria *Criteria
}

// Session owns the filter state, the latest snapshots and the views they feed.
type Session struct {
	client   Lister
	renderer Renderer
	mapView  MapRenderer
	notifier Notifier
	clock    sched.Clock
	logger   zerolog.Logger

	ctx       context.Context
	stop      context.CancelFunc
	debouncer *sched.Debouncer

	mu         sync.Mutex
	criteria   Criteria
	all        []models.Listing
	filtered   []models.Listing
	view       export.View
	fetched    bool
	resetShown bool
	generation uint64
	cancel     context.CancelFunc
}

func NewSession(opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = sched.Real()
	}
	wait := opts.Debounce
	if wait <= 0 {
		wait = DefaultDebounce
	}
	criteria := Default()
	if opts.Criteria != nil {
		criteria = *opts.Criteria
	}
	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		client:   opts.Client,
		renderer: opts.Renderer,
		mapView:  opts.Map,
		notifier: opts.Notifier,
		clock:    clock,
		logger:   opts.Logger,
		ctx:      ctx,
		stop:     stop,
		criteria: criteria,
	}
	s.debouncer = sched.NewDebouncer(clock, wait, s.fetchInBackground)
	return s
}

func (s *Session) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// SetFilter changes one filter and schedules a debounced fetch.
func (s *Session) SetFilter(field, value string) error {
	s.mu.Lock()
	next := s.criteria
	if err := next.Set(field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.criteria = next
	s.mu.Unlock()

	s.debouncer.Trigger()
	return nil
}

// Fetch requests listings for the current criteria and renders the result.
// A fetch started later always wins: earlier ones are cancelled and their
// results discarded with ErrSuperseded.
func (s *Session) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	generation := s.generation
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	criteria := s.criteria
	s.mu.Unlock()
	defer cancel()

	params := criteria.Params()
	s.logger.Debug().Str("query", params.Encode()).Uint64("generation", generation).Msg("fetching listings")
	listings, err := s.client.Listings(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return ErrSuperseded
	}
	s.cancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.logger.Warn().Err(err).Msg("listings fetch failed")
		s.toast(LoadErrorMessage, LoadErrorDuration)
		return fmt.Errorf("fetch listings: %w", err)
	}

	s.all = listings
	s.filtered = PostFilter(listings, criteria.LastOffMarket, s.clock.Now())
	s.view = export.BuildView(s.filtered)
	s.fetched = true

	if len(s.filtered) == 0 && criteria.AnyActive() {
		if !s.resetShown {
			s.resetShown = true
			s.renderer.ShowReset()
		}
	} else if s.resetShown {
		s.resetShown = false
		s.renderer.HideReset()
	}

	s.renderer.Render(s.view)
	if s.mapView != nil {
		s.mapView.Update(s.filtered)
	}
	s.logger.Debug().Int("received", len(listings)).Int("shown", len(s.filtered)).Msg("listings rendered")
	return nil
}

// Refresh fetches again with unchanged criteria.
func (s *Session) Refresh(ctx context.Context) error {
	s.debouncer.Stop()
	s.toast(RefreshMessage, ToastDuration)
	return s.Fetch(ctx)
}

// Reset restores every filter to its default and fetches again.
func (s *Session) Reset(ctx context.Context) error {
	s.debouncer.Stop()
	s.mu.Lock()
	s.criteria = Default()
	s.mu.Unlock()
	s.toast(ResetMessage, ToastDuration)
	return s.Fetch(ctx)
}

// SelectCard centers the map on the listing's marker and opens its popup.
func (s *Session) SelectCard(id string) bool {
	if s.mapView == nil {
		return false
	}
	return s.mapView.Focus(id)
}

// MarkerClicked highlights the card of a clicked marker.
func (s *Session) MarkerClicked(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, listing := range s.filtered {
		if listing.ID.String() == id {
			s.renderer.Highlight(id)
			return
		}
	}
}

// All is the latest server snapshot.
func (s *Session) All() []models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all
}

// Filtered is the latest snapshot after the recency filter.
func (s *Session) Filtered() []models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filtered
}

func (s *Session) View() export.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) Fetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched
}

func (s *Session) ResetShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetShown
}

// Close cancels pending and in-flight fetches.
func (s *Session) Close() {
	s.debouncer.Stop()
	s.stop()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// FetchLater is used by timers such as the scraper follow-up refreshes.
func (s *Session) FetchLater() {
	s.fetchInBackground()
}

func (s *Session) fetchInBackground() {
	if err := s.Fetch(s.ctx); err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, context.Canceled) {
		s.logger.Debug().Err(err).Msg("background fetch failed")
	}
}

func (s *Session) toast(message string, d time.Duration) {
	if s.notifier != nil {
		s.notifier.Toast(message, d)
	}
}
