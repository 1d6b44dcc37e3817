package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ANSI palette indexes per message kind.
const (
	colorError   = "1"
	colorSuccess = "2"
	colorWarn    = "3"
	colorInfo    = "4"
	colorToast   = "6"
)

const LinkColor = "#87CEEB"

// UI writes user-facing messages. Info and success go to Out, everything
// else to Err, so stdout stays clean for exports.
type UI struct {
	Out          io.Writer
	Err          io.Writer
	Output       *termenv.Output
	ErrOutput    *termenv.Output
	ColorEnabled bool
}

func New(out io.Writer, err io.Writer, mode ColorMode, disableColor bool) *UI {
	output := termenv.NewOutput(out)
	return &UI{
		Out:          out,
		Err:          err,
		Output:       output,
		ErrOutput:    termenv.NewOutput(err),
		ColorEnabled: colorAllowed(output, mode, disableColor),
	}
}

func colorAllowed(output *termenv.Output, mode ColorMode, disableColor bool) bool {
	if disableColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return output.ColorProfile() != termenv.Ascii
	}
}

func (u *UI) Errorf(format string, args ...any) {
	u.line(u.Err, u.ErrOutput, colorError, fmt.Sprintf(format, args...))
}

func (u *UI) Warnf(format string, args ...any) {
	u.line(u.Err, u.ErrOutput, colorWarn, fmt.Sprintf(format, args...))
}

func (u *UI) Infof(format string, args ...any) {
	u.line(u.Out, u.Output, colorInfo, fmt.Sprintf(format, args...))
}

func (u *UI) Successf(format string, args ...any) {
	u.line(u.Out, u.Output, colorSuccess, fmt.Sprintf(format, args...))
}

// Toast prints a transient notification to stderr. A terminal line cannot be
// retracted, so the duration only shows up in debug logs.
func (u *UI) Toast(message string, d time.Duration) {
	u.line(u.Err, u.ErrOutput, colorToast, message)
}

func (u *UI) line(w io.Writer, output *termenv.Output, color string, msg string) {
	msg = strings.TrimRight(msg, "\n")
	if u.ColorEnabled {
		msg = output.String(msg).Foreground(output.Color(color)).String()
	}
	fmt.Fprintln(w, msg)
}

// ColorizeLink paints text in the link color when color output is on.
func ColorizeLink(output *termenv.Output, enabled bool, text string) string {
	if !enabled || output == nil {
		return text
	}
	return output.String(text).Foreground(output.Color(LinkColor)).String()
}

func NormalizeColorMode(value string) ColorMode {
	switch ColorMode(strings.ToLower(strings.TrimSpace(value))) {
	case ColorAlways:
		return ColorAlways
	case ColorNever:
		return ColorNever
	default:
		return ColorAuto
	}
}
