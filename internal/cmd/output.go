package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jimezsa/leasecli/internal/export"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/seen"
	"github.com/muesli/termenv"
)

// OutputOptions control where and how a listing view is written.
type OutputOptions struct {
	Format string `help:"Output format: cards, table, csv, tsv, json, md, html." enum:",cards,table,csv,tsv,json,md,markdown,html" default:""`
	Links  string `help:"Table link display: short or full." enum:"short,full" default:"short"`
	Output string `name:"output" short:"o" help:"Write output to a file."`
	Out    string `name:"out" help:"Alias for --output."`
}

func (o OutputOptions) path() string {
	if o.Output != "" {
		return o.Output
	}
	return o.Out
}

func resolveFormat(ctx *Context, opts OutputOptions, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if opts.Format != "" {
		return export.ParseFormat(opts.Format)
	}
	if outputPath != "" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".json":
			return export.FormatJSON, nil
		case ".html", ".htm":
			return export.FormatHTML, nil
		case ".md":
			return export.FormatMarkdown, nil
		case ".tsv":
			return export.FormatTSV, nil
		}
		return export.FormatCSV, nil
	}
	if isTTY(ctx.Out) {
		return export.FormatCards, nil
	}
	return export.FormatCSV, nil
}

// writeView renders view to stdout or to the --output file.
func writeView(ctx *Context, view export.View, opts OutputOptions, highlight string) error {
	outputPath := opts.path()
	format, err := resolveFormat(ctx, opts, outputPath)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := outputPath == "" && ctx.UI != nil && ctx.UI.ColorEnabled
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(opts.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	return export.WriteView(writer, view, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   colorEnabled && isTTY(writer),
		LinkStyle:    linkStyle,
		Highlight:    highlight,
	})
}

func pathsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil {
		return absA == absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func updateSeenHistory(seenPath string, listings []models.Listing) error {
	history, err := seen.ReadListingsAllowMissing(seenPath)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	merged, _ := seen.Merge(history, listings)
	if err := seen.WriteListings(seenPath, merged); err != nil {
		return fmt.Errorf("write --seen: %w", err)
	}

	return nil
}

// printSummary reports totals on stderr. stats is nil when no history is tracked.
func printSummary(ctx *Context, view export.View, stats *seen.DiffStats) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	_, _ = fmt.Fprintf(ctx.Err, "%s\n", formatSummary(view, stats))
}

func formatSummary(view export.View, stats *seen.DiffStats) string {
	summary := fmt.Sprintf("summary: listings=%d avg_price=%d stabilized=%d",
		view.Stats.Total, view.Stats.AveragePrice, view.Stats.Stabilized)
	if stats != nil {
		summary += fmt.Sprintf(" new=%d price_changed=%d relisted=%d",
			stats.New, stats.PriceChanged, stats.Relisted)
	}
	return summary
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

// startIndicator draws a spinner on stderr until the returned func is called.
func startIndicator(ctx *Context, label string) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				frame := frames[index%len(frames)]
				fmt.Fprintf(ctx.Err, "\r\033[2K%s... %ds %s", label, seconds, frame)
				index++
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
