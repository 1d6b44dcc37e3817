package cmd

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`
	LogFile string `help:"Also write logs to this file (rotated)." type:"path"`
	BaseURL string `name:"base-url" help:"Backend base URL (overrides config)."`
	Proxy   string `help:"Proxy URL for backend requests (overrides config)."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version  VersionCmd  `cmd:"" help:"Print version."`
	Config   ConfigCmd   `cmd:"" help:"Manage configuration."`
	Listings ListingsCmd `cmd:"" aliases:"ls" help:"Fetch and print rental listings."`
	Map      MapCmd      `cmd:"" help:"Geocode listings and print them as GeoJSON markers."`
	Geocode  GeocodeCmd  `cmd:"" help:"Resolve an address to coordinates."`
	Scraper  ScraperCmd  `cmd:"" help:"Control the backend scraper job."`
	Browse   BrowseCmd   `cmd:"" help:"Interactive session: filters, cards, markers and scraper."`
	Seen     SeenCmd     `cmd:"" help:"Seen listings utilities."`
	Ping     PingCmd     `cmd:"" help:"Check that the backend is reachable."`
}

func NewCLI() *CLI {
	return &CLI{}
}
