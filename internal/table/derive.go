package table

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"crypto_dash/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Row is one rendered table line.
type Row struct {
	domain.Asset
	Price     string // "$" + 6 decimals
	MarketCap string // "$" + 2 decimals
	Favorite  bool
}

// MarshalJSON flattens the row with snake_case keys. The embedded Asset keeps
// the upstream camelCase tags for decoding, so it is not marshaled as is.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           string `json:"id"`
		Symbol       string `json:"symbol"`
		Name         string `json:"name"`
		PriceUsd     string `json:"price_usd"`
		MarketCapUsd string `json:"market_cap_usd"`
		Price        string `json:"price"`
		MarketCap    string `json:"market_cap"`
		Favorite     bool   `json:"favorite"`
	}{r.ID, r.Symbol, r.Name, r.PriceUsd, r.MarketCapUsd, r.Price, r.MarketCap, r.Favorite})
}

// Page is the derived, paginated view of the asset list.
type Page struct {
	Rows        []Row            `json:"rows"`
	View        domain.ViewState `json:"view"`
	Total       int              `json:"total"` // rows matching the query
	TotalAssets int              `json:"total_assets"`
	PageCount   int              `json:"page_count"`
}

// Filter keeps assets whose name contains query, case-insensitively.
// An empty query keeps everything. The input is not modified.
func Filter(assets []domain.Asset, query string) []domain.Asset {
	q := strings.ToLower(query)
	out := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), q) {
			out = append(out, a)
		}
	}
	return out
}

type sortItem struct {
	asset domain.Asset
	text  []byte          // collation key for text fields
	num   decimal.Decimal // parsed value for numeric fields
	isNum bool
}

// Sort returns a stably sorted copy of assets.
// Text fields use English collation; numeric fields compare as decimals, with
// unparsable values ordered before every number. Descending reverses the
// comparison; equal keys keep their relative order in both directions.
func Sort(assets []domain.Asset, key domain.SortKey, dir domain.SortDirection) []domain.Asset {
	items := make([]sortItem, len(assets))

	var buf collate.Buffer
	col := collate.New(language.English)
	for i, a := range assets {
		items[i].asset = a
		v := key.Value(a)
		if key.Numeric() {
			if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
				items[i].num = d
				items[i].isNum = true
			}
		} else {
			items[i].text = col.KeyFromString(&buf, v)
		}
	}

	compare := func(x, y sortItem) int {
		if !key.Numeric() {
			return bytes.Compare(x.text, y.text)
		}
		switch {
		case x.isNum && y.isNum:
			return x.num.Cmp(y.num)
		case x.isNum:
			return 1
		case y.isNum:
			return -1
		default:
			return 0
		}
	}

	slices.SortStableFunc(items, func(x, y sortItem) int {
		c := compare(x, y)
		if dir == domain.Descending {
			return -c
		}
		return c
	})

	out := make([]domain.Asset, len(items))
	for i, it := range items {
		out[i] = it.asset
	}
	return out
}

// Paginate returns the slice [index*size, index*size+size).
// Out-of-range pages are empty, never an error.
func Paginate(assets []domain.Asset, index, size int) []domain.Asset {
	if size <= 0 || index < 0 {
		return []domain.Asset{}
	}
	start := index * size
	if start >= len(assets) {
		return []domain.Asset{}
	}
	end := start + size
	if end > len(assets) {
		end = len(assets)
	}
	return slices.Clone(assets[start:end])
}

// PageCount is ceil(n/size).
func PageCount(n, size int) int {
	if size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Derive filters, sorts and paginates assets for v. It has no side effects.
// isFavorite may be nil.
func Derive(assets []domain.Asset, v domain.ViewState, isFavorite func(id string) bool) Page {
	filtered := Filter(assets, v.Query)
	sorted := Sort(filtered, v.SortKey, v.SortDirection)
	visible := Paginate(sorted, v.PageIndex, v.PageSize)

	rows := make([]Row, 0, len(visible))
	for _, a := range visible {
		rows = append(rows, NewRow(a, isFavorite != nil && isFavorite(a.ID)))
	}

	return Page{
		Rows:        rows,
		View:        v,
		Total:       len(filtered),
		TotalAssets: len(assets),
		PageCount:   PageCount(len(filtered), v.PageSize),
	}
}

// NewRow formats an asset for display.
func NewRow(a domain.Asset, favorite bool) Row {
	return Row{
		Asset:     a,
		Price:     domain.FormatUSD(a.PriceUsd, 6),
		MarketCap: domain.FormatUSD(a.MarketCapUsd, 2),
		Favorite:  favorite,
	}
}
