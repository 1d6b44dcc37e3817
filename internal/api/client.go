package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/jimezsa/leasecli/internal/models"
	"github.com/jimezsa/leasecli/internal/network"
	"github.com/rs/zerolog"
)

const (
	pathListings      = "/api/listings"
	pathGeocode       = "/api/geocode"
	pathRunScraper    = "/api/run-scraper"
	pathStopScraper   = "/api/stop-scraper"
	pathScraperStatus = "/api/scraper-status"

	maxBodyBytes = 32 << 20
)

// Client talks to the listings backend and its scraper-control endpoints.
type Client struct {
	base   *url.URL
	doer   network.Doer
	logger zerolog.Logger
}

// Location is a resolved geocode result.
type Location struct {
	Lat float64
	Lon float64
}

func NewClient(baseURL string, doer network.Doer, logger zerolog.Logger) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	return &Client{base: base, doer: doer, logger: logger}, nil
}

func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) Listings(ctx context.Context, params url.Values) ([]models.Listing, error) {
	var listings []models.Listing
	if err := c.do(ctx, fhttp.MethodGet, pathListings, params, nil, &listings); err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, nil
}

type geocodeMatch struct {
	Lat models.Text `json:"lat"`
	Lon models.Text `json:"lon"`
}

func (c *Client) Geocode(ctx context.Context, address string) (Location, error) {
	var raw json.RawMessage
	query := url.Values{}
	query.Set("address", address)
	if err := c.do(ctx, fhttp.MethodGet, pathGeocode, query, nil, &raw); err != nil {
		return Location{}, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Location{}, ErrUnresolved
	}
	if trimmed[0] == '{' {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return Location{}, fmt.Errorf("%w: geocode: %v", ErrParse, err)
		}
		if body.Error != "" {
			return Location{}, &DomainError{Message: body.Error}
		}
		return Location{}, ErrUnresolved
	}

	var matches []geocodeMatch
	if err := json.Unmarshal(trimmed, &matches); err != nil {
		return Location{}, fmt.Errorf("%w: geocode: %v", ErrParse, err)
	}
	if len(matches) == 0 {
		return Location{}, ErrUnresolved
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(matches[0].Lat.String()), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(matches[0].Lon.String()), 64)
	if errLat != nil || errLon != nil {
		return Location{}, ErrUnresolved
	}
	return Location{Lat: lat, Lon: lon}, nil
}

func (c *Client) RunScraper(ctx context.Context, req models.RunRequest) (models.ControlResult, error) {
	var result models.ControlResult
	err := c.do(ctx, fhttp.MethodPost, pathRunScraper, nil, req, &result)
	return result, err
}

func (c *Client) StopScraper(ctx context.Context) (models.ControlResult, error) {
	var result models.ControlResult
	err := c.do(ctx, fhttp.MethodPost, pathStopScraper, nil, nil, &result)
	return result, err
}

func (c *Client) ScraperStatus(ctx context.Context) (models.ScraperStatus, error) {
	var status models.ScraperStatus
	err := c.do(ctx, fhttp.MethodGet, pathScraperStatus, nil, nil, &status)
	return status, err
}

func (c *Client) endpoint(path string, query url.Values) string {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		payload = bytes.NewReader(data)
	} else if method == fhttp.MethodPost {
		payload = bytes.NewReader(nil)
	}

	req, err := fhttp.NewRequestWithContext(ctx, method, c.endpoint(path, query), payload)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if method == fhttp.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Debug().Str("request_id", requestID).Str("path", path).Err(err).Msg("request failed")
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: read %s: %v", ErrTransport, path, err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DomainError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if result, ok := out.(*models.ControlResult); ok && result.Error != "" && !result.Success {
		return &DomainError{StatusCode: resp.StatusCode, Message: result.Error}
	}
	return nil
}

func errorMessage(data []byte, status int) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		return strings.TrimSpace(body.Error)
	}
	if text := fhttp.StatusText(status); text != "" {
		return text
	}
	return "Unknown error"
}
