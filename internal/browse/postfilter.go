package browse

import (
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/leasecli/internal/models"
)

const (
	yearLength = time.Duration(365.25 * 24 * float64(time.Hour))

	// OpenEndedBucket selects listings that went off market this many years ago or more.
	OpenEndedBucket = 6
)

// PostFilter applies the recency bucket that the listings endpoint cannot express.
// Bucket 6 keeps listings off market for 6 or more years; any other N keeps
// those within the last N years. With the bucket active, listings without a
// parsable offMarketAt are dropped. "all" or empty returns listings unchanged.
func PostFilter(listings []models.Listing, bucket string, now time.Time) []models.Listing {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" || bucket == All {
		return listings
	}

	filtered := make([]models.Listing, 0, len(listings))
	years, err := strconv.Atoi(bucket)
	if err != nil {
		return filtered
	}
	for _, listing := range listings {
		offMarket, err := listing.OffMarketTime()
		if err != nil {
			continue
		}
		age := YearsSince(offMarket, now)
		if years == OpenEndedBucket {
			if age >= float64(OpenEndedBucket) {
				filtered = append(filtered, listing)
			}
			continue
		}
		if age <= float64(years) {
			filtered = append(filtered, listing)
		}
	}
	return filtered
}

// YearsSince measures the gap in 365.25-day years.
func YearsSince(then, now time.Time) float64 {
	return float64(now.Sub(then)) / float64(yearLength)
}
