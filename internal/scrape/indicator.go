package scrape

import (
	"fmt"
	"math"

	"github.com/jimezsa/leasecli/internal/api"
	"github.com/jimezsa/leasecli/internal/models"
)

const (
	ButtonIdle     = "Run Scraper"
	ButtonStarting = "Starting..."
	ButtonRunning  = "Running..."
)

// Indicator is the state of the run button and progress bar.
type Indicator struct {
	Button          string  `json:"button"`
	Busy            bool    `json:"busy"`
	ProgressVisible bool    `json:"progress_visible"`
	Percent         float64 `json:"percent"`
	ProgressText    string  `json:"progress_text,omitempty"`
	Detail          string  `json:"detail,omitempty"`
}

func IdleIndicator() Indicator {
	return Indicator{Button: ButtonIdle}
}

// StartingIndicator is shown between the run request and the first poll.
func StartingIndicator() Indicator {
	return Indicator{
		Button:          ButtonStarting,
		Busy:            true,
		ProgressVisible: true,
		ProgressText:    "Starting...",
		Detail:          "Initializing scraper...",
	}
}

// IndicatorFor maps one poll outcome to the indicator state.
func IndicatorFor(status models.ScraperStatus, err error) Indicator {
	if err != nil {
		return Indicator{Button: ButtonIdle, ProgressVisible: true, Detail: "Network error: " + api.Message(err)}
	}
	switch status.Status {
	case models.StateStarting, models.StateRunning:
		ind := Indicator{
			Button:          ButtonRunning,
			Busy:            true,
			ProgressVisible: true,
			Detail:          RunningMessage(status),
		}
		if status.Status == models.StateStarting {
			ind.Button = ButtonStarting
		}
		if status.ProgressPercent != nil {
			ind.Percent = clampPercent(*status.ProgressPercent)
			ind.ProgressText = fmt.Sprintf("%d%%", int(math.Round(*status.ProgressPercent)))
		} else if status.Status == models.StateStarting {
			ind.ProgressText = "Starting..."
		} else {
			ind.ProgressText = "Processing..."
		}
		return ind
	case models.StateCompleted, models.StateIdle:
		return Indicator{Button: ButtonIdle, ProgressVisible: true, Percent: 100, Detail: firstNonEmpty(status.DisplayMessage, status.Message, "Completed")}
	case models.StateStopped:
		return Indicator{Button: ButtonIdle, ProgressVisible: true, Detail: firstNonEmpty(status.DisplayMessage, status.Message, "Stopped")}
	default:
		return Indicator{Button: ButtonIdle, ProgressVisible: true, Detail: ErrorMessage(status)}
	}
}

// RunningMessage picks display_message, then message, then a default for the state.
func RunningMessage(status models.ScraperStatus) string {
	fallback := "Running..."
	if status.Status == models.StateStarting {
		fallback = "Initializing scraper..."
	}
	return firstNonEmpty(status.DisplayMessage, status.Message, fallback)
}

// ErrorMessage is the text reported for an error or unrecognised status.
func ErrorMessage(status models.ScraperStatus) string {
	if err := api.CheckState(status.Status); err != nil {
		return err.Error()
	}
	return firstNonEmpty(status.Message, status.Error, "Unknown error")
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
