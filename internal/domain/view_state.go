package domain

import "fmt"

// SortKey names the Asset field the table is ordered by.
type SortKey string

const (
	SortBySymbol    SortKey = "symbol"
	SortByName      SortKey = "name"
	SortByPrice     SortKey = "priceUsd"
	SortByMarketCap SortKey = "marketCapUsd"
)

// Numeric reports whether the key holds a decimal-as-string value.
func (k SortKey) Numeric() bool {
	return k == SortByPrice || k == SortByMarketCap
}

// Valid reports whether k is a sortable field.
func (k SortKey) Valid() bool {
	switch k {
	case SortBySymbol, SortByName, SortByPrice, SortByMarketCap:
		return true
	}
	return false
}

// Value extracts the field named by k.
func (k SortKey) Value(a Asset) string {
	switch k {
	case SortBySymbol:
		return a.Symbol
	case SortByName:
		return a.Name
	case SortByPrice:
		return a.PriceUsd
	case SortByMarketCap:
		return a.MarketCapUsd
	}
	return ""
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// DefaultPageSizes are the page sizes offered by the table.
var DefaultPageSizes = []int{10, 25, 50}

// ViewState is the table's presentation state.
type ViewState struct {
	Query         string        `json:"query"`
	SortKey       SortKey       `json:"sort_key"`
	SortDirection SortDirection `json:"sort_direction"`
	PageIndex     int           `json:"page_index"`
	PageSize      int           `json:"page_size"`
}

// DefaultViewState sorts by name ascending, first page of ten.
func DefaultViewState() ViewState {
	return ViewState{
		SortKey:       SortByName,
		SortDirection: Ascending,
		PageIndex:     0,
		PageSize:      DefaultPageSizes[0],
	}
}

// WithQuery sets the search query. The page index returns to 0.
func (v ViewState) WithQuery(q string) ViewState {
	if q != v.Query {
		v.PageIndex = 0
	}
	v.Query = q
	return v
}

// WithPageSize sets the page size if it is one of allowed. The page index returns to 0.
func (v ViewState) WithPageSize(size int, allowed []int) (ViewState, error) {
	if !containsInt(allowed, size) {
		return v, fmt.Errorf("page size %d not in %v", size, allowed)
	}
	if size != v.PageSize {
		v.PageIndex = 0
	}
	v.PageSize = size
	return v, nil
}

// WithPage moves to page index i. Negative indexes clamp to 0.
func (v ViewState) WithPage(i int) ViewState {
	if i < 0 {
		i = 0
	}
	v.PageIndex = i
	return v
}

// ToggleSort selects key. Selecting the active ascending key flips to
// descending; anything else selects key ascending.
func (v ViewState) ToggleSort(key SortKey) ViewState {
	if v.SortKey == key && v.SortDirection == Ascending {
		v.SortDirection = Descending
	} else {
		v.SortDirection = Ascending
	}
	v.SortKey = key
	return v
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
