package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/browse"
)

type PingCmd struct {
	Timeout time.Duration `help:"Timeout per request." default:"15s"`
}

type PingResult struct {
	Endpoint  string `json:"endpoint"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Run checks that the backend answers on its read-only endpoints.
func (p *PingCmd) Run(ctx *Context) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}

	checks := []struct {
		endpoint string
		call     func(context.Context) error
	}{
		{"/api/scraper-status", func(c context.Context) error {
			_, err := client.ScraperStatus(c)
			return err
		}},
		{"/api/listings", func(c context.Context) error {
			_, err := client.Listings(c, browse.Default().Params())
			return err
		}},
	}

	results := make([]PingResult, 0, len(checks))
	failed := 0
	for _, check := range checks {
		result := PingResult{Endpoint: client.BaseURL() + check.endpoint, Status: "ok"}
		start := time.Now()
		err := withTimeout(p.Timeout, check.call)
		result.LatencyMS = time.Since(start).Milliseconds()
		if err != nil {
			failed++
			result.Status = "error"
			result.Error = api.Message(err)
		}
		results = append(results, result)
	}

	if err := writePingResults(ctx, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

func withTimeout(timeout time.Duration, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return call(ctx)
}

func writePingResults(ctx *Context, results []PingResult) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if ctx.PlainText {
		for _, res := range results {
			line := []string{res.Endpoint, res.Status, fmt.Sprintf("%d", res.LatencyMS), res.Error}
			fmt.Fprintln(ctx.Out, strings.Join(line, "\t"))
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "endpoint\tstatus\tlatency_ms\terror")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Endpoint, res.Status, res.LatencyMS, res.Error)
	}
	return tw.Flush()
}
