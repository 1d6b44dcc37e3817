package cmd

import (
	"io"
	"strings"
	"time"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/config"
	"github.com/jimezsa/leasecli/internal/network"
	"github.com/jimezsa/leasecli/internal/sched"
	"github.com/jimezsa/leasecli/internal/ui"
	"github.com/rs/zerolog"
)

type Context struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Clock      sched.Clock
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
}

func (c *Context) clock() sched.Clock {
	if c.Clock == nil {
		return sched.Real()
	}
	return c.Clock
}

func (c *Context) userAgent() string {
	version := "dev"
	if fields := strings.Fields(c.Version); len(fields) > 0 {
		version = fields[0]
	}
	return "leasecli/" + version
}

// apiClient builds the backend client from the loaded config.
func (c *Context) apiClient() (*api.Client, error) {
	transport, err := network.NewClient(network.Options{
		Timeout:   c.Config.Timeout(),
		UserAgent: c.userAgent(),
		Proxy:     c.Config.Proxy,
	})
	if err != nil {
		return nil, err
	}
	return api.NewClient(c.Config.BaseURL, transport, c.Logger)
}

// notifier sends toasts to the UI and mirrors them into the debug log.
// Quiet notifiers only log.
type notifier struct {
	ctx   *Context
	quiet bool
}

func (n notifier) Toast(message string, d time.Duration) {
	n.ctx.Logger.Debug().Dur("duration", d).Msg(message)
	if !n.quiet && n.ctx.UI != nil {
		n.ctx.UI.Toast(message, d)
	}
}
