// Package flip finds underpriced listings: it groups resolved listings by
// identifier, applies price thresholds, gates on trading volume and
// suppresses repeat reports.
package flip

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// ProfitMode selects how the required price gap is computed.
type ProfitMode string

const (
	// ProfitAbsolute requires a gap of at least MinProfit coins.
	ProfitAbsolute ProfitMode = "absolute"
	// ProfitRatio requires a gap of at least cheapest * Ratio coins.
	ProfitRatio ProfitMode = "ratio"
)

// Thresholds are the admission limits applied to each group.
type Thresholds struct {
	Mode        ProfitMode
	MinProfit   int64
	Ratio       decimal.Decimal
	MaxCost     int64
	MinListings int
}

// Validate reports the first unusable threshold.
func (t Thresholds) Validate() error {
	switch t.Mode {
	case ProfitAbsolute, ProfitRatio:
	default:
		return fmt.Errorf("flip: unknown profit mode %q", t.Mode)
	}
	if t.MinListings < 2 {
		return fmt.Errorf("flip: min listings must be at least 2, got %d", t.MinListings)
	}
	if t.MinProfit < 0 {
		return fmt.Errorf("flip: min profit must not be negative")
	}
	if t.MaxCost < 0 {
		return fmt.Errorf("flip: max cost must not be negative")
	}
	return nil
}

var one = decimal.NewFromInt(1)

// RequiredProfit returns the minimum gap a group with the given cheapest
// price must show.
func (t Thresholds) RequiredProfit(cheapest int64) int64 {
	if t.Mode != ProfitRatio {
		return t.MinProfit
	}
	ratio := t.Ratio
	if ratio.LessThan(one) {
		ratio = one
	}
	return decimal.NewFromInt(cheapest).Mul(ratio).Ceil().IntPart()
}

// Grouper turns one cycle's listings into candidates. It holds no state
// between calls.
type Grouper struct {
	th Thresholds
}

// NewGrouper returns a Grouper enforcing th.
func NewGrouper(th Thresholds) *Grouper {
	return &Grouper{th: th}
}

// FindCandidates partitions entries by Identifier and returns the cheapest
// pair of every group that clears the thresholds, ordered by identifier.
func (g *Grouper) FindCandidates(entries []domain.ListingEntry) []domain.Candidate {
	groups := make(map[string][]domain.ListingEntry)
	for _, e := range entries {
		groups[e.Identifier] = append(groups[e.Identifier], e)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []domain.Candidate
	for _, id := range keys {
		group := groups[id]
		if len(group) < g.th.MinListings || len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].Price < group[j].Price })

		cheapest, second := group[0], group[1]
		gap := second.Price - cheapest.Price
		if gap < g.th.RequiredProfit(cheapest.Price) || cheapest.Price > g.th.MaxCost {
			continue
		}
		out = append(out, domain.Candidate{
			Identifier:     id,
			Cheapest:       cheapest,
			SecondCheapest: second,
			Gap:            gap,
		})
	}
	return out
}
