package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimezsa/leasecli/internal/browse"
	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/seen"
)

type ListingsCmd struct {
	FilterFlags
	OutputOptions
	Seen       string `help:"Path to seen listings JSON file."`
	NewOnly    bool   `help:"Output only new, repriced or relisted listings (requires --seen)."`
	NewOut     string `help:"Write the changes against --seen as JSON (requires --seen)."`
	SeenUpdate bool   `help:"Record the fetched listings and their prices into --seen after output (requires --seen)."`
}

func (l *ListingsCmd) Run(ctx *Context) error {
	seenPath := strings.TrimSpace(l.Seen)
	if l.NewOnly && seenPath == "" {
		return fmt.Errorf("--new-only requires --seen")
	}
	if strings.TrimSpace(l.NewOut) != "" && seenPath == "" {
		return fmt.Errorf("--new-out requires --seen")
	}
	if l.SeenUpdate && seenPath == "" {
		return fmt.Errorf("--seen-update requires --seen")
	}
	outputPath := l.path()
	if strings.TrimSpace(l.NewOut) != "" && pathsEqual(outputPath, l.NewOut) {
		return fmt.Errorf("--new-out path must differ from --output")
	}
	if seenPath != "" && pathsEqual(outputPath, seenPath) {
		return fmt.Errorf("--output path must differ from --seen")
	}
	if strings.TrimSpace(l.NewOut) != "" && pathsEqual(l.NewOut, seenPath) {
		return fmt.Errorf("--new-out path must differ from --seen")
	}

	criteria, err := l.Criteria(ctx.Config.DefaultArea)
	if err != nil {
		return err
	}

	stop := startIndicator(ctx, "Loading listings")
	session, err := fetchOnce(ctx, criteria)
	if stop != nil {
		stop()
	}
	if err != nil {
		return err
	}

	view := session.View()
	fetched := view.Listings
	var changes []seen.Change
	var stats *seen.DiffStats
	if seenPath != "" {
		history, err := seen.ReadListingsAllowMissing(seenPath)
		if err != nil {
			return fmt.Errorf("read --seen: %w", err)
		}
		var diff seen.DiffStats
		changes, diff = seen.Diff(fetched, history)
		stats = &diff
		if l.NewOnly {
			view = export.BuildView(seen.Listings(changes))
		}
	}

	if strings.TrimSpace(l.NewOut) != "" {
		if err := seen.WriteChanges(l.NewOut, changes); err != nil {
			return fmt.Errorf("write --new-out: %w", err)
		}
	}

	if err := writeView(ctx, view, l.OutputOptions, ""); err != nil {
		return err
	}
	if session.ResetShown() {
		ctx.UI.Warnf("No listings match the current filters. Run without filter flags to see all listings.")
	}

	if l.SeenUpdate {
		if err := updateSeenHistory(seenPath, fetched); err != nil {
			return err
		}
	}

	printSummary(ctx, view, stats)
	return nil
}

// fetchOnce runs a single fetch through a session without a live view.
func fetchOnce(ctx *Context, criteria browse.Criteria) (*browse.Session, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return nil, err
	}
	session := browse.NewSession(browse.Options{
		Client:   client,
		Renderer: discardRenderer{},
		Notifier: notifier{ctx: ctx, quiet: true},
		Clock:    ctx.clock(),
		Logger:   ctx.Logger,
		Criteria: &criteria,
	})
	defer session.Close()
	if err := session.Fetch(context.Background()); err != nil {
		return nil, err
	}
	return session, nil
}

// discardRenderer is used when the caller writes the view itself.
type discardRenderer struct{}

func (discardRenderer) Render(export.View) {}
func (discardRenderer) ShowReset()         {}
func (discardRenderer) HideReset()         {}
func (discardRenderer) Highlight(string)   {}
