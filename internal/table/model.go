package table

import (
	"slices"
	"sync"
	"time"

	"crypto_dash/internal/domain"
)

// Model owns the fetched asset list and the table's view state.
// The live feed is its only external writer and may only touch PriceUsd.
type Model struct {
	mu        sync.RWMutex
	assets    []domain.Asset
	index     map[string][]int
	view      domain.ViewState
	pageSizes []int

	loading   bool
	feed      domain.FeedStatus
	feedErr   string
	updatedAt time.Time
}

// NewModel creates an empty, loading table.
func NewModel(pageSizes []int, defaultPageSize int) *Model {
	if len(pageSizes) == 0 {
		pageSizes = domain.DefaultPageSizes
	}
	view := domain.DefaultViewState()
	if slices.Contains(pageSizes, defaultPageSize) {
		view.PageSize = defaultPageSize
	} else {
		view.PageSize = pageSizes[0]
	}
	return &Model{
		index:     make(map[string][]int),
		view:      view,
		pageSizes: slices.Clone(pageSizes),
		loading:   true,
		feed:      domain.FeedIdle,
	}
}

// Replace swaps in a freshly fetched list and ends loading.
func (m *Model) Replace(assets []domain.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assets = slices.Clone(assets)
	m.index = make(map[string][]int, len(assets))
	for i, a := range m.assets {
		m.index[a.ID] = append(m.index[a.ID], i)
	}
	m.loading = false
	m.updatedAt = time.Now()
}

// Clear discards the list.
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets = nil
	m.index = make(map[string][]int)
	m.loading = true
}

// SetLoading marks a fetch in flight.
func (m *Model) SetLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// Loading reports whether the list is still being fetched.
func (m *Model) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// ApplyTicks sets PriceUsd, formatted to 6 decimals, for every id in prices
// that is in the current list. Unknown ids and unparsable prices are skipped.
// It returns the number of rows changed.
func (m *Model) ApplyTicks(prices map[string]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := 0
	for id, raw := range prices {
		rows, ok := m.index[id]
		if !ok {
			continue
		}
		price, ok := domain.FormatFixed(raw, 6)
		if !ok {
			continue
		}
		for _, i := range rows {
			m.assets[i].PriceUsd = price
			changed++
		}
	}
	if changed > 0 {
		m.updatedAt = time.Now()
	}
	return changed
}

// SetFeedStatus records the live feed state.
func (m *Model) SetFeedStatus(s domain.FeedStatus, errMsg string) {
	m.mu.Lock()
	m.feed = s
	m.feedErr = errMsg
	m.mu.Unlock()
}

// FeedStatus returns the live feed state and its last error.
func (m *Model) FeedStatus() (domain.FeedStatus, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.feed, m.feedErr
}

// Assets returns a copy of the current list.
func (m *Model) Assets() []domain.Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.assets)
}

// IDs returns the ids of the current list.
func (m *Model) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.IDs(m.assets)
}

// UpdatedAt is the time of the last reload or tick.
func (m *Model) UpdatedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedAt
}

// PageSizes returns the allowed page sizes.
func (m *Model) PageSizes() []int {
	return slices.Clone(m.pageSizes)
}

// View returns the current view state.
func (m *Model) View() domain.ViewState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view
}

func (m *Model) SetQuery(q string) domain.ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = m.view.WithQuery(q)
	return m.view
}

func (m *Model) ToggleSort(key domain.SortKey) domain.ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key.Valid() {
		m.view = m.view.ToggleSort(key)
	}
	return m.view
}

func (m *Model) SetPage(i int) domain.ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = m.view.WithPage(i)
	return m.view
}

func (m *Model) SetPageSize(size int) (domain.ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.view.WithPageSize(size, m.pageSizes)
	if err != nil {
		return m.view, err
	}
	m.view = v
	return m.view, nil
}

// Page derives the rows for the model's own view state.
func (m *Model) Page(isFavorite func(string) bool) Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Derive(m.assets, m.view, isFavorite)
}

// PageFor derives the rows for an arbitrary view state without storing it.
func (m *Model) PageFor(v domain.ViewState, isFavorite func(string) bool) Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Derive(m.assets, v, isFavorite)
}
