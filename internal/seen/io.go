package seen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jimezsa/leasecli/internal/models"
)

// ReadListings loads a history file or a `listings --format json` export.
// Both a bare array and an object with a "listings" array are accepted.
func ReadListings(path string) ([]models.Listing, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.Listing{}, nil
	}

	var listings []models.Listing
	if data[0] == '{' {
		var doc struct {
			Listings []models.Listing `json:"listings"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		listings = doc.Listings
	} else if err := json.Unmarshal(data, &listings); err != nil {
		return nil, err
	}
	if listings == nil {
		return []models.Listing{}, nil
	}
	return listings, nil
}

// ReadListingsAllowMissing treats a missing file as empty history.
func ReadListingsAllowMissing(path string) ([]models.Listing, error) {
	listings, err := ReadListings(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Listing{}, nil
		}
		return nil, err
	}
	return listings, nil
}

func WriteListings(path string, listings []models.Listing) error {
	if listings == nil {
		listings = []models.Listing{}
	}
	return writeJSON(path, listings)
}

// WriteChanges writes a Diff report as a JSON array.
func WriteChanges(path string, changes []Change) error {
	if changes == nil {
		changes = []Change{}
	}
	return writeJSON(path, changes)
}

func writeJSON(path string, v any) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is required")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
