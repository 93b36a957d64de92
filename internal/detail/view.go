package detail

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"crypto_dash/internal/domain"
)

// ErrClosed is returned by Load when the view was closed while fetching.
var ErrClosed = errors.New("detail: view closed")

// State of a detail view. Missing and Ready are terminal.
type State int

const (
	StateLoading State = iota
	StateMissing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateMissing:
		return "missing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

const (
	MessageLoading = "Loading..."
	MessageNoData  = "No data available"
)

// Source fetches one asset and its history. coincap.Client implements it.
type Source interface {
	Asset(ctx context.Context, id string) (*domain.Asset, error)
	History(ctx context.Context, id, interval string) ([]domain.HistoryPoint, error)
}

// Options tune a view. Zero fields take the defaults.
type Options struct {
	Window     time.Duration    // default 30 days
	Interval   string           // default "d1"
	DateLayout string           // default "1/2/2006"
	Location   *time.Location   // default time.Local
	Now        func() time.Time // default time.Now
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = 30 * 24 * time.Hour
	}
	if o.Interval == "" {
		o.Interval = "d1"
	}
	if o.DateLayout == "" {
		o.DateLayout = "1/2/2006"
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Summary is the static part of the page.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	MarketCap string `json:"market_cap"`
}

// Series holds index-aligned chart data: len(Prices) == len(Labels).
type Series struct {
	Prices []string `json:"prices"`
	Labels []string `json:"labels"`
}

// Len is the number of points.
func (s Series) Len() int { return len(s.Prices) }

// Snapshot is a read-only copy of the view.
type Snapshot struct {
	ID      string   `json:"id"`
	State   State    `json:"state"`
	Message string   `json:"message,omitempty"`
	Summary *Summary `json:"summary,omitempty"`
	Series  Series   `json:"series"`
}

// View loads one asset's detail page. It moves from loading to missing or
// ready exactly once and never goes back.
type View struct {
	id   string
	src  Source
	opts Options

	mu      sync.Mutex
	state   State
	started bool
	closed  bool
	summary *Summary
	series  Series
}

// NewView creates a view for id in the loading state.
func NewView(src Source, id string, opts Options) *View {
	return &View{
		id:     id,
		src:    src,
		opts:   opts.withDefaults(),
		series: Series{Prices: []string{}, Labels: []string{}},
	}
}

// Load fetches the asset and its history. Only the first call does work.
// A failed or empty asset fetch ends in StateMissing; a failed history fetch
// after that still ends in StateReady with an empty series.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.started || v.closed {
		v.mu.Unlock()
		return nil
	}
	v.started = true
	v.mu.Unlock()

	now := v.opts.Now()

	asset, err := v.src.Asset(ctx, v.id)
	if err != nil {
		slog.Error("Failed to fetch asset", slog.String("id", v.id), slog.Any("error", err))
	}
	if err != nil || asset == nil {
		return v.finish(StateMissing, nil, Series{Prices: []string{}, Labels: []string{}})
	}

	summary := NewSummary(*asset)
	series := Series{Prices: []string{}, Labels: []string{}}

	points, err := v.src.History(ctx, v.id, v.opts.Interval)
	if err != nil {
		slog.Error("Failed to fetch history", slog.String("id", v.id), slog.Any("error", err))
	} else {
		recent := FilterRecent(points, now, v.opts.Window)
		series = BuildSeries(recent, v.opts.DateLayout, v.opts.Location)
	}

	return v.finish(StateReady, &summary, series)
}

func (v *View) finish(state State, summary *Summary, series Series) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.state = state
	v.summary = summary
	v.series = series
	return nil
}

// Close tears the view down. A Load still in flight will not apply its result.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// State returns the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Snapshot copies the view for rendering.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := Snapshot{
		ID:    v.id,
		State: v.state,
		Series: Series{
			Prices: append([]string{}, v.series.Prices...),
			Labels: append([]string{}, v.series.Labels...),
		},
	}
	switch v.state {
	case StateLoading:
		snap.Message = MessageLoading
	case StateMissing:
		snap.Message = MessageNoData
	case StateReady:
		s := *v.summary
		snap.Summary = &s
	}
	return snap
}

// NewSummary formats an asset for the page header.
func NewSummary(a domain.Asset) Summary {
	return Summary{
		ID:        a.ID,
		Name:      a.Name,
		Symbol:    strings.ToUpper(a.Symbol),
		Price:     domain.FormatUSD(a.PriceUsd, 2),
		MarketCap: domain.FormatUSD(a.MarketCapUsd, 2),
	}
}

// FilterRecent keeps points with now - time <= window. Points after now are kept.
func FilterRecent(points []domain.HistoryPoint, now time.Time, window time.Duration) []domain.HistoryPoint {
	out := make([]domain.HistoryPoint, 0, len(points))
	for _, p := range points {
		if now.Sub(p.At()) <= window {
			out = append(out, p)
		}
	}
	return out
}

// BuildSeries formats prices to 2 decimals and labels with layout in loc.
// Points whose price is not a number are left out of both sequences.
func BuildSeries(points []domain.HistoryPoint, layout string, loc *time.Location) Series {
	s := Series{
		Prices: make([]string, 0, len(points)),
		Labels: make([]string, 0, len(points)),
	}
	for _, p := range points {
		price, ok := domain.FormatFixed(p.PriceUsd, 2)
		if !ok {
			continue
		}
		s.Prices = append(s.Prices, price)
		s.Labels = append(s.Labels, p.At().In(loc).Format(layout))
	}
	return s
}
