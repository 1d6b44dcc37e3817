package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/seen"
)

type SeenCmd struct {
	Diff   SeenDiffCmd   `cmd:"" help:"Report new, repriced and relisted listings against a seen history."`
	Update SeenUpdateCmd `cmd:"" help:"Record listings (prices and off-market dates) into a seen history."`
}

type SeenDiffCmd struct {
	Current string `name:"current" required:"" help:"Listings JSON: a history file or a 'listings --format json' export."`
	Seen    string `name:"seen" required:"" help:"Seen history JSON. A missing file is treated as empty."`
	Out     string `name:"out" help:"Write the changes as JSON instead of printing them."`
	Stats   bool   `name:"stats" help:"Print comparison stats."`
}

type SeenUpdateCmd struct {
	Seen  string `name:"seen" required:"" help:"Seen history JSON. A missing file is treated as empty."`
	Input string `name:"input" required:"" help:"Listings JSON to record: a history file or a 'listings --format json' export."`
	Out   string `name:"out" help:"Write the updated history here instead of over --seen."`
	Stats bool   `name:"stats" help:"Print merge stats."`
}

func (c *SeenDiffCmd) Run(ctx *Context) error {
	current, err := seen.ReadListings(c.Current)
	if err != nil {
		return fmt.Errorf("read --current: %w", err)
	}
	history, err := seen.ReadListingsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	changes, stats := seen.Diff(current, history)
	if strings.TrimSpace(c.Out) != "" {
		if err := seen.WriteChanges(c.Out, changes); err != nil {
			return fmt.Errorf("write --out: %w", err)
		}
	} else if err := writeChanges(ctx.Out, changes); err != nil {
		return err
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Err,
			"current=%d history=%d invalid_skipped=%d new=%d price_changed=%d relisted=%d\n",
			stats.Current,
			stats.History,
			stats.InvalidSkipped(),
			stats.New,
			stats.PriceChanged,
			stats.Relisted,
		)
		return err
	}
	return nil
}

func (c *SeenUpdateCmd) Run(ctx *Context) error {
	history, err := seen.ReadListingsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}
	input, err := seen.ReadListings(c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	merged, stats := seen.Merge(history, input)
	out := firstNonEmpty(strings.TrimSpace(c.Out), c.Seen)
	if err := seen.WriteListings(out, merged); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Err,
			"history=%d input=%d invalid_skipped=%d added=%d updated=%d total=%d\n",
			stats.History,
			stats.Input,
			stats.InvalidSkipped(),
			stats.Added,
			stats.Updated,
			stats.Total,
		)
		return err
	}
	return nil
}

// writeChanges prints one line per change, e.g. "price  $2,800 (-$200)  2 Perry St".
func writeChanges(w io.Writer, changes []seen.Change) error {
	for _, change := range changes {
		listing := change.Listing
		price := export.FormatPrice(int(listing.Price))
		switch delta := change.PriceDelta(); {
		case delta > 0:
			price += " (+" + export.FormatPrice(delta) + ")"
		case delta < 0:
			price += " (-" + export.FormatPrice(-delta) + ")"
		}
		place := joinNonEmpty([]string{listing.Address, listing.Unit.String()}, " ")
		if _, err := fmt.Fprintf(w, "%-8s  %s  %s\n", change.Kind, price, place); err != nil {
			return err
		}
	}
	return nil
}
