package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jimezsa/leasecli/internal/browse"
	"github.com/jimezsa/leasecli/internal/geo"
)

type MapCmd struct {
	FilterFlags
	Output string        `name:"output" short:"o" help:"Write GeoJSON to a file."`
	Select string        `help:"Listing id whose popup is opened and centered."`
	Wait   time.Duration `help:"Maximum time to wait for geocoding." default:"2m"`
}

func (m *MapCmd) Run(ctx *Context) error {
	criteria, err := m.Criteria(ctx.Config.DefaultArea)
	if err != nil {
		return err
	}
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}

	collection := geo.NewCollection()
	renderer := geo.NewRenderer(geo.Options{
		View:     collection,
		Geocoder: geo.NewCachedGeocoder(client),
		Clock:    ctx.clock(),
		Logger:   ctx.Logger,
		Interval: ctx.Config.GeocodeInterval(),
	})
	defer renderer.Close()

	session := browse.NewSession(browse.Options{
		Client:   client,
		Renderer: discardRenderer{},
		Map:      renderer,
		Notifier: notifier{ctx: ctx, quiet: true},
		Clock:    ctx.clock(),
		Logger:   ctx.Logger,
		Criteria: &criteria,
	})
	defer session.Close()

	stop := startIndicator(ctx, "Placing markers")
	err = session.Fetch(context.Background())
	if err == nil {
		err = waitSettled(renderer.Settled(), m.Wait)
	}
	if stop != nil {
		stop()
	}
	if err != nil {
		return err
	}

	if message := collection.ErrorMessage(); message != "" {
		ctx.UI.Warnf("%s", message)
	}
	if m.Select != "" && !session.SelectCard(m.Select) {
		ctx.UI.Warnf("No marker for listing %s", m.Select)
	}

	var writer io.Writer = ctx.Out
	if m.Output != "" {
		file, err := os.Create(m.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}
	if err := collection.WriteGeoJSON(writer); err != nil {
		return err
	}

	ctx.Logger.Debug().Int("listings", len(session.Filtered())).Int("markers", len(collection.Markers())).Msg("map written")
	return nil
}

func waitSettled(settled <-chan struct{}, limit time.Duration) error {
	if limit <= 0 {
		<-settled
		return nil
	}
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-settled:
		return nil
	case <-timer.C:
		return fmt.Errorf("geocoding did not finish within %s", limit)
	}
}
