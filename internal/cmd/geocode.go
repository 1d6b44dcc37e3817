package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/mmcloughlin/geohash"
)

type GeocodeCmd struct {
	Address string `arg:"" help:"Street address to resolve."`
}

type geocodeResult struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Geohash string  `json:"geohash"`
}

func (g *GeocodeCmd) Run(ctx *Context) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	location, err := client.Geocode(context.Background(), g.Address)
	if errors.Is(err, api.ErrUnresolved) {
		return fmt.Errorf("could not geocode %q", g.Address)
	}
	if err != nil {
		return err
	}

	result := geocodeResult{
		Address: g.Address,
		Lat:     location.Lat,
		Lon:     location.Lon,
		Geohash: geohash.Encode(location.Lat, location.Lon),
	}
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if ctx.PlainText {
		_, err = fmt.Fprintf(ctx.Out, "%s\t%f\t%f\t%s\n", result.Address, result.Lat, result.Lon, result.Geohash)
		return err
	}
	_, err = fmt.Fprintf(ctx.Out, "%.6f, %.6f (%s)\n", result.Lat, result.Lon, result.Geohash)
	return err
}
