package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one row of the market-data asset list.
// Prices are kept as decimal strings exactly as the API sends them.
// Only PriceUsd changes after fetch (live ticks).
type Asset struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	PriceUsd     string `json:"priceUsd"`
	MarketCapUsd string `json:"marketCapUsd"`
}

// HistoryPoint is a single sample of an asset's price history.
type HistoryPoint struct {
	Time     int64  `json:"time"` // Unix Milli
	PriceUsd string `json:"priceUsd"`
}

// At returns the sample time.
func (p HistoryPoint) At() time.Time {
	return time.UnixMilli(p.Time)
}

// IDs returns the asset identifiers in list order.
func IDs(assets []Asset) []string {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}
	return ids
}

// FormatFixed renders a decimal string with exactly places fraction digits.
// ok is false when s is not a number.
func FormatFixed(s string, places int32) (string, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return d.StringFixed(places), true
}

// FormatUSD renders s as a dollar amount, or "-" when s is not a number.
func FormatUSD(s string, places int32) string {
	v, ok := FormatFixed(s, places)
	if !ok {
		return "-"
	}
	return "$" + v
}
