package api

import (
	"errors"
	"fmt"

	"github.com/jimezsa/leasecli/internal/models"
)

var (
	// ErrTransport marks failures to reach the backend at all.
	ErrTransport = errors.New("transport failure")
	// ErrParse marks responses that could not be decoded.
	ErrParse = errors.New("malformed response")
	// ErrUnresolved is returned by Geocode when the proxy found no match.
	ErrUnresolved = errors.New("address not resolved")
)

// DomainError is an error reported by the backend itself.
type DomainError struct {
	StatusCode int
	Message    string
}

func (e *DomainError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (http %d)", e.Message, e.StatusCode)
}

// UnknownStatusError is a scraper status value this client does not recognise.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return "Unknown status: " + e.Status
}

// CheckState returns an *UnknownStatusError for status values outside the known set.
func CheckState(state models.ScraperState) error {
	switch state {
	case models.StateStarting, models.StateRunning, models.StateCompleted,
		models.StateIdle, models.StateStopped, models.StateError:
		return nil
	default:
		return &UnknownStatusError{Status: string(state)}
	}
}

// Message extracts the user-facing text of err, preferring the server's own wording.
func Message(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
