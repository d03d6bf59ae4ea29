package hypixel

import (
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// auctionsPage is one page of GET /v2/skyblock/auctions. Only the fields the
// scanner consumes are decoded.
type auctionsPage struct {
	Success    bool         `json:"success"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
	Auctions   []APIAuction `json:"auctions"`
}

// APIAuction is a single active auction as returned by the API.
type APIAuction struct {
	UUID        string `json:"uuid"`
	ItemName    string `json:"item_name"`
	StartingBid int64  `json:"starting_bid"`
	BIN         bool   `json:"bin"`
	Category    string `json:"category"`
	ItemBytes   string `json:"item_bytes"`
}

// ToDomainListing converts the API record to a domain.RawListing.
func (a APIAuction) ToDomainListing() domain.RawListing {
	return domain.RawListing{
		Payload:      a.ItemBytes,
		DisplayName:  a.ItemName,
		Price:        a.StartingBid,
		ListingID:    NormalizeListingID(a.UUID),
		IsFixedPrice: a.BIN,
		Category:     a.Category,
	}
}

// NormalizeListingID returns the dashless lower-case form the game's
// /viewauction command accepts. Unparseable ids are returned unchanged.
func NormalizeListingID(id string) string {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return id
	}
	return strings.ReplaceAll(u.String(), "-", "")
}
