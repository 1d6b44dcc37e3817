package geo

import (
	"context"
	"sync"
	"time"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/sched"
	"github.com/rs/zerolog"
)

const (
	DefaultGeocodeInterval = 500 * time.Millisecond
	DefaultLoadingTimeout  = 3 * time.Second
	DefaultErrorDuration   = 4 * time.Second

	GeocodeFailedMessage = "Could not geocode any addresses. Please try again later."
)

// MapView is the map widget the renderer drives.
type MapView interface {
	PlaceMarker(m Marker)
	RemoveMarker(id string)
	Center(lat, lon float64)
	OpenPopup(id string)
	SetLoading(visible bool)
	// SetError shows a map-level error message; an empty message clears it.
	SetError(message string)
}

type Options struct {
	View           MapView
	Geocoder       Geocoder
	Clock          sched.Clock
	Logger         zerolog.Logger
	Interval       time.Duration
	LoadingTimeout time.Duration
	ErrorDuration  time.Duration
	// OnMarkerClick receives the listing id of a clicked marker.
	OnMarkerClick func(id string)
}

// Renderer places one batch of markers per Update. Listings without
// coordinates are geocoded through a FIFO queue spaced by Interval.
type Renderer struct {
	view     MapView
	geocoder Geocoder
	clock    sched.Clock
	logger   zerolog.Logger
	throttle *sched.Throttle

	loadingTimeout time.Duration
	errorDuration  time.Duration

	mu            sync.Mutex
	onMarkerClick func(id string)
	batch         uint64
	cancel        context.CancelFunc
	markers       map[string]Marker
	order         []string
	requested     int
	failed        int
	outstanding   int
	loading       bool
	errorShown    bool
	loadingTimer  sched.Timer
	errorTimer    sched.Timer
	settled       chan struct{}
}

func NewRenderer(opts Options) *Renderer {
	clock := opts.Clock
	if clock == nil {
		clock = sched.Real()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultGeocodeInterval
	}
	loadingTimeout := opts.LoadingTimeout
	if loadingTimeout <= 0 {
		loadingTimeout = DefaultLoadingTimeout
	}
	errorDuration := opts.ErrorDuration
	if errorDuration <= 0 {
		errorDuration = DefaultErrorDuration
	}
	settled := make(chan struct{})
	close(settled)
	return &Renderer{
		view:           opts.View,
		geocoder:       opts.Geocoder,
		clock:          clock,
		logger:         opts.Logger,
		throttle:       sched.NewThrottle(clock, interval),
		loadingTimeout: loadingTimeout,
		errorDuration:  errorDuration,
		onMarkerClick:  opts.OnMarkerClick,
		markers:        map[string]Marker{},
		settled:        settled,
	}
}

// SetMarkerClick replaces the marker click callback.
func (r *Renderer) SetMarkerClick(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMarkerClick = fn
}

// Update clears the previous batch and places markers for listings.
func (r *Renderer) Update(listings []models.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.batch++
	batch := r.batch
	if r.cancel != nil {
		r.cancel()
	}
	if dropped := r.throttle.Clear(); dropped > 0 {
		r.logger.Debug().Int("dropped", dropped).Msg("discarded queued geocode lookups")
	}
	for _, id := range r.order {
		r.view.RemoveMarker(id)
	}
	r.markers = map[string]Marker{}
	r.order = nil
	r.requested, r.failed, r.outstanding = 0, 0, 0
	stopTimer(r.loadingTimer)
	stopTimer(r.errorTimer)
	r.loadingTimer, r.errorTimer = nil, nil
	if r.errorShown {
		r.errorShown = false
		r.view.SetError("")
	}
	r.closeSettledLocked()

	if len(listings) == 0 {
		r.setLoadingLocked(false)
		return
	}

	r.settled = make(chan struct{})
	r.setLoadingLocked(true)
	r.loadingTimer = r.clock.AfterFunc(r.loadingTimeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.batch == batch {
			r.setLoadingLocked(false)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	cached, _ := r.geocoder.(interface {
		Cached(address string) (api.Location, bool)
	})

	for i, listing := range listings {
		id := markerKey(listing, i)
		if lat, lon, ok := listing.Coordinates(); ok {
			r.placeLocked(NewMarker(id, listing, lat, lon))
			continue
		}
		if cached != nil {
			if loc, ok := cached.Cached(listing.Address); ok {
				r.placeLocked(NewMarker(id, listing, loc.Lat, loc.Lon))
				continue
			}
		}
		r.requested++
		r.outstanding++
		listing := listing
		r.throttle.Do(func() { r.resolve(ctx, batch, id, listing) })
	}

	if r.outstanding == 0 {
		r.closeSettledLocked()
	}
}

func (r *Renderer) resolve(ctx context.Context, batch uint64, id string, listing models.Listing) {
	if ctx.Err() != nil {
		return
	}
	loc, err := r.geocoder.Geocode(ctx, listing.Address)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batch != batch {
		return
	}
	r.outstanding--
	if err != nil {
		r.failed++
		r.logger.Debug().Err(err).Str("address", listing.Address).Msg("geocode failed")
		if r.failed >= r.requested {
			r.showErrorLocked(batch)
		}
	} else {
		r.placeLocked(NewMarker(id, listing, loc.Lat, loc.Lon))
	}
	if r.outstanding == 0 {
		r.closeSettledLocked()
	}
}

// Focus centers the map on the listing's marker and opens its popup.
func (r *Renderer) Focus(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	marker, ok := r.markers[id]
	if !ok {
		return false
	}
	r.view.Center(marker.Lat, marker.Lon)
	r.view.OpenPopup(id)
	return true
}

// MarkerClicked forwards a marker click to the card highlighter.
func (r *Renderer) MarkerClicked(id string) bool {
	r.mu.Lock()
	_, ok := r.markers[id]
	fn := r.onMarkerClick
	r.mu.Unlock()
	if !ok {
		return false
	}
	if fn != nil {
		fn(id)
	}
	return true
}

// Markers returns the current batch in placement order.
func (r *Renderer) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Marker, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.markers[id])
	}
	return out
}

func (r *Renderer) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Settled is closed once every geocode lookup of the current batch has finished.
func (r *Renderer) Settled() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled
}

// Close drops queued lookups and cancels the one in flight.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch++
	if r.cancel != nil {
		r.cancel()
	}
	r.throttle.Clear()
	stopTimer(r.loadingTimer)
	stopTimer(r.errorTimer)
	r.closeSettledLocked()
}

func (r *Renderer) placeLocked(marker Marker) {
	if _, exists := r.markers[marker.ID]; exists {
		r.view.RemoveMarker(marker.ID)
	} else {
		r.order = append(r.order, marker.ID)
	}
	r.markers[marker.ID] = marker
	r.view.PlaceMarker(marker)
	if r.loading {
		r.setLoadingLocked(false)
		stopTimer(r.loadingTimer)
		r.loadingTimer = nil
	}
}

func (r *Renderer) showErrorLocked(batch uint64) {
	r.setLoadingLocked(false)
	stopTimer(r.loadingTimer)
	r.loadingTimer = nil
	r.errorShown = true
	r.view.SetError(GeocodeFailedMessage)
	stopTimer(r.errorTimer)
	r.errorTimer = r.clock.AfterFunc(r.errorDuration, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.batch == batch && r.errorShown {
			r.errorShown = false
			r.view.SetError("")
		}
	})
}

func (r *Renderer) setLoadingLocked(visible bool) {
	if r.loading == visible {
		return
	}
	r.loading = visible
	r.view.SetLoading(visible)
}

func (r *Renderer) closeSettledLocked() {
	select {
	case <-r.settled:
	default:
		close(r.settled)
	}
}

func stopTimer(t sched.Timer) {
	if t != nil {
		t.Stop()
	}
}
