package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/browse"
	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/scrape"
)

type ScraperCmd struct {
	Run    ScraperRunCmd    `cmd:"" help:"Start a scraper job and follow its progress."`
	Stop   ScraperStopCmd   `cmd:"" help:"Ask the running scraper job to stop."`
	Status ScraperStatusCmd `cmd:"" help:"Print the scraper job status."`
}

type ScraperRunCmd struct {
	FilterFlags
	Detach bool `help:"Return after the job is accepted instead of following it."`
}

type ScraperStopCmd struct {
	Detach bool `help:"Return after the stop signal is sent."`
}

type ScraperStatusCmd struct{}

func (s *ScraperRunCmd) Run(ctx *Context) error {
	criteria, err := s.Criteria(ctx.Config.DefaultArea)
	if err != nil {
		return err
	}
	return runJob(ctx, criteria, s.Detach, func(c context.Context, ctrl *scrape.Controller, hooks scrape.Hooks) (*scrape.Run, error) {
		return ctrl.Run(c, criteria.RunRequest(), hooks)
	})
}

func (s *ScraperStopCmd) Run(ctx *Context) error {
	return runJob(ctx, browse.Default(), s.Detach, func(c context.Context, ctrl *scrape.Controller, hooks scrape.Hooks) (*scrape.Run, error) {
		return ctrl.Stop(c, hooks)
	})
}

type jobStarter func(context.Context, *scrape.Controller, scrape.Hooks) (*scrape.Run, error)

// runJob starts or stops the job, then follows it until the follow-up
// refreshes have run. The refreshes print the listing stats.
func runJob(ctx *Context, criteria browse.Criteria, detach bool, start jobStarter) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	session := browse.NewSession(browse.Options{
		Client:   client,
		Renderer: statsRenderer{ctx: ctx},
		Notifier: notifier{ctx: ctx, quiet: true},
		Clock:    ctx.clock(),
		Logger:   ctx.Logger,
		Criteria: &criteria,
	})
	defer session.Close()

	controller := newController(ctx, client)
	progress := &progressPrinter{ctx: ctx}
	run, err := start(signalCtx, controller, scrape.Hooks{
		Refetch:     session.FetchLater,
		OnIndicator: progress.Print,
	})
	if err != nil {
		return err
	}
	if detach {
		run.Stop()
		return nil
	}

	select {
	case <-run.Settled():
	case <-signalCtx.Done():
		run.Stop()
		return fmt.Errorf("interrupted; the job keeps running on the server")
	}

	outcome := run.Outcome()
	if outcome.State == models.StateError {
		return fmt.Errorf("scraper: %s", outcome.Message)
	}
	return nil
}

func newController(ctx *Context, client *api.Client) *scrape.Controller {
	poller := scrape.NewPoller(scrape.Options{
		Client:      client,
		Clock:       ctx.clock(),
		Logger:      ctx.Logger,
		MaxDuration: ctx.Config.PollTimeout(),
	})
	return scrape.NewController(client, poller, notifier{ctx: ctx}, ctx.Logger)
}

func (s *ScraperStatusCmd) Run(ctx *Context) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	status, err := client.ScraperStatus(context.Background())
	if err != nil {
		return err
	}
	indicator := scrape.IndicatorFor(status, nil)

	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Status    models.ScraperStatus `json:"status"`
			Indicator scrape.Indicator     `json:"indicator"`
		}{status, indicator})
	}

	fields := []string{string(status.Status), indicator.ProgressText, indicator.Detail}
	if ctx.PlainText {
		_, err = fmt.Fprintln(ctx.Out, strings.Join(fields, "\t"))
		return err
	}
	_, err = fmt.Fprintln(ctx.Out, joinNonEmpty(fields, "  "))
	return err
}

// progressPrinter writes an indicator line whenever it changes.
type progressPrinter struct {
	ctx  *Context
	mu   sync.Mutex
	last string
}

func (p *progressPrinter) Print(ind scrape.Indicator) {
	if !ind.ProgressVisible {
		return
	}
	line := joinNonEmpty([]string{ind.Button, ind.ProgressText, ind.Detail}, "  ")
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	p.ctx.UI.Infof("%s", line)
}

// statsRenderer prints one stats line per rendered view.
type statsRenderer struct {
	ctx *Context
}

func (r statsRenderer) Render(view export.View) {
	r.ctx.UI.Infof("%s", export.StatsLine(view.Stats))
}

func (statsRenderer) ShowReset()       {}
func (statsRenderer) HideReset()       {}
func (statsRenderer) Highlight(string) {}

func joinNonEmpty(values []string, sep string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, sep)
}
