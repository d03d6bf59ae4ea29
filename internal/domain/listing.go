package domain

import "time"

// UnknownPrefix marks an identifier synthesized from a normalized display
// name because the listing payload did not yield a canonical id.
const UnknownPrefix = "UNKNOWN::"

// RawListing is one auction record as delivered by the fetch layer. Payload
// is the base64 item blob exactly as the marketplace sent it.
type RawListing struct {
	Payload      string
	DisplayName  string
	Price        int64
	ListingID    string
	IsFixedPrice bool
	Category     string
}

// ListingEntry is a listing after identity resolution and name
// normalization. Identifier is the grouping key.
type ListingEntry struct {
	Price          int64  `json:"price"`
	ListingID      string `json:"listing_id"`
	DisplayName    string `json:"display_name"`
	NormalizedName string `json:"normalized_name"`
	Identifier     string `json:"identifier"`
}

// FallbackIdentifier returns the synthetic grouping key used for listings
// whose payload could not be resolved to a canonical id.
func FallbackIdentifier(normalizedName string) string {
	return UnknownPrefix + normalizedName
}

// Candidate is the cheapest pair of a group that cleared the price-gap and
// listing-count thresholds and still awaits volume gating.
type Candidate struct {
	Identifier     string
	Cheapest       ListingEntry
	SecondCheapest ListingEntry
	Gap            int64
}

// Flip is a fully admitted candidate as handed to notification, history and
// the dashboard.
type Flip struct {
	ListingID           string    `json:"listing_id"`
	DisplayName         string    `json:"display_name"`
	Identifier          string    `json:"identifier"`
	CheapestPrice       int64     `json:"cheapest_price"`
	SecondCheapestPrice int64     `json:"second_cheapest_price"`
	Profit              int64     `json:"profit"`
	AverageDailyVolume  float64   `json:"average_daily_volume"`
	DetectedAt          time.Time `json:"detected_at"`
}

// NewFlip builds the report record for an admitted candidate.
func NewFlip(c Candidate, volume float64, at time.Time) Flip {
	return Flip{
		ListingID:           c.Cheapest.ListingID,
		DisplayName:         c.Cheapest.DisplayName,
		Identifier:          c.Identifier,
		CheapestPrice:       c.Cheapest.Price,
		SecondCheapestPrice: c.SecondCheapest.Price,
		Profit:              c.Gap,
		AverageDailyVolume:  volume,
		DetectedAt:          at,
	}
}
