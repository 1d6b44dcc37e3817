package models

// ScraperState is the lifecycle value reported by /api/scraper-status.
type ScraperState string

const (
	StateStarting  ScraperState = "starting"
	StateRunning   ScraperState = "running"
	StateCompleted ScraperState = "completed"
	StateIdle      ScraperState = "idle"
	StateStopped   ScraperState = "stopped"
	StateError     ScraperState = "error"
)

// ScraperStatus is the poll payload of the background scraper job.
type ScraperStatus struct {
	Status          ScraperState `json:"status"`
	ProgressPercent *float64     `json:"progress_percent,omitempty"`
	DisplayMessage  string       `json:"display_message,omitempty"`
	Message         string       `json:"message,omitempty"`
	Error           string       `json:"error,omitempty"`
	Timestamp       string       `json:"timestamp,omitempty"`
}

// RunRequest is the body of POST /api/run-scraper. Values are sent as strings.
type RunRequest struct {
	Area                string `json:"area"`
	MinPrice            string `json:"min_price"`
	MaxPrice            string `json:"max_price"`
	Bedrooms            string `json:"bedrooms"`
	Laundry             string `json:"laundry"`
	Pets                string `json:"pets"`
	Outdoor             string `json:"outdoor"`
	Days                string `json:"days"`
	OffMarketMonthStart string `json:"offmarket_month_start"`
	OffMarketMonthEnd   string `json:"offmarket_month_end"`
	ByOwner             string `json:"by_owner"`
	RentStabilized      string `json:"rent_stabilized"`
}

// ControlResult is the success body of the scraper control endpoints.
type ControlResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
