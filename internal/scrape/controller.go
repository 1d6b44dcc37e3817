package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/rs/zerolog"
)

const (
	shortToast = 3 * time.Second
	longToast  = 5 * time.Second
)

// ControlClient is the scraper-control half of the API.
type ControlClient interface {
	StatusClient
	RunScraper(ctx context.Context, req models.RunRequest) (models.ControlResult, error)
	StopScraper(ctx context.Context) (models.ControlResult, error)
}

type Notifier interface {
	Toast(message string, d time.Duration)
}

// Hooks connect a job to the rest of the session.
type Hooks struct {
	Refetch     func()
	OnIndicator func(Indicator)
	OnProgress  func(progress *float64, message string)
}

// Controller starts and stops the job and reports progress the way the run and stop buttons do.
type Controller struct {
	client   ControlClient
	poller   *Poller
	notifier Notifier
	logger   zerolog.Logger
}

func NewController(client ControlClient, poller *Poller, notifier Notifier, logger zerolog.Logger) *Controller {
	return &Controller{client: client, poller: poller, notifier: notifier, logger: logger}
}

// Run starts the job and polls it. The returned error covers only the start request.
func (c *Controller) Run(ctx context.Context, req models.RunRequest, hooks Hooks) (*Run, error) {
	indicate(hooks, StartingIndicator())
	c.logger.Info().Str("area", req.Area).Str("min_price", req.MinPrice).Str("max_price", req.MaxPrice).Msg("starting scraper")

	if _, err := c.client.RunScraper(ctx, req); err != nil {
		c.toast(startFailure("Error starting scraper: ", err), longToast)
		indicate(hooks, IdleIndicator())
		return nil, err
	}
	c.toast("Scraper started successfully!", shortToast)

	return c.poller.Start(ctx, Callbacks{
		OnRunning:   hooks.OnProgress,
		OnIndicator: hooks.OnIndicator,
		Refetch:     hooks.Refetch,
		OnDone: func() {
			c.toast("Scraper completed successfully! Refreshing listings...", longToast)
		},
		OnStopped: func() {
			c.toast("Scraper stopped.", shortToast)
		},
		OnError: func(message string) {
			c.toast("Scraper error: "+message, longToast)
		},
	}), nil
}

// Stop asks the job to stop and polls until it reports a terminal state.
func (c *Controller) Stop(ctx context.Context, hooks Hooks) (*Run, error) {
	if _, err := c.client.StopScraper(ctx); err != nil {
		c.toast(startFailure("Error stopping scraper: ", err), longToast)
		return nil, err
	}
	c.toast("Stop signal sent to scraper", shortToast)

	return c.poller.Start(ctx, Callbacks{
		OnRunning:   hooks.OnProgress,
		OnIndicator: hooks.OnIndicator,
		Refetch:     hooks.Refetch,
		OnDone: func() {
			c.toast("Scraper completed before stop", shortToast)
		},
		OnStopped: func() {
			c.toast("Scraper stopped successfully", shortToast)
		},
		OnError: func(message string) {
			c.logger.Warn().Str("error", message).Msg("scraper stop ended in error")
		},
	}), nil
}

func startFailure(prefix string, err error) string {
	if errors.Is(err, api.ErrTransport) {
		return "Network error: " + api.Message(err)
	}
	return prefix + api.Message(err)
}

func indicate(hooks Hooks, ind Indicator) {
	if hooks.OnIndicator != nil {
		hooks.OnIndicator(ind)
	}
}

func (c *Controller) toast(message string, d time.Duration) {
	if c.notifier != nil {
		c.notifier.Toast(message, d)
	}
}
