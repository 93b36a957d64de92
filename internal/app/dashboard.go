package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coincap"
	"crypto_dash/internal/table"
)

var (
	// ErrStale is returned when a fetch finished after an unmount or a newer load.
	// Its result was discarded.
	ErrStale = errors.New("app: stale result discarded")
	// ErrNotMounted is returned by Reload before Mount or after Unmount.
	ErrNotMounted = errors.New("app: dashboard not mounted")
)

// noFeed is an id no feed ever has. Activating it drops every queued event.
const noFeed = "none"

// AssetSource fetches the full asset list. coincap.Client implements it.
type AssetSource interface {
	Assets(ctx context.Context) ([]domain.Asset, error)
}

// Feed is a live price subscription for a fixed id set.
type Feed interface {
	ID() string
	Connect(ctx context.Context) error
	Disconnect()
}

// FeedFactory opens feeds that deliver into inbox.
type FeedFactory func(ids []string, inbox chan<- event.Event) Feed

// PriceFeedFactory builds coincap price feeds from the live settings of cfg.
func PriceFeedFactory(cfg *infra.Config) FeedFactory {
	return func(ids []string, inbox chan<- event.Event) Feed {
		f := coincap.NewPriceFeed(cfg.API.WSURL, ids, inbox)
		w := f.Worker()
		w.Reconnect = cfg.Live.Reconnect
		if cfg.Live.ReadTimeoutSec > 0 {
			w.ReadTimeout = time.Duration(cfg.Live.ReadTimeoutSec) * time.Second
		}
		return f
	}
}

// Dashboard drives the table's lifecycle: fetch the list, open the feed for
// its ids, apply ticks through the sequencer, and tear it all down.
type Dashboard struct {
	src       AssetSource
	table     *table.Model
	newFeed   FeedFactory
	inboxSize int
	onUpdate  func()

	mu      sync.Mutex
	gen     uint64 // bumped by every mount, reload and unmount
	mounted bool
	runCtx  context.Context // lives from Mount to Unmount
	cancel  context.CancelFunc
	seq     *engine.Sequencer
	feed    Feed
}

// NewDashboard wires a dashboard. onUpdate may be nil; it is called after
// every reload and every applied feed event.
func NewDashboard(src AssetSource, model *table.Model, newFeed FeedFactory, inboxSize int, onUpdate func()) *Dashboard {
	if onUpdate == nil {
		onUpdate = func() {}
	}
	return &Dashboard{
		src:       src,
		table:     model,
		newFeed:   newFeed,
		inboxSize: inboxSize,
		onUpdate:  onUpdate,
	}
}

// Table returns the model the dashboard writes into.
func (d *Dashboard) Table() *table.Model { return d.table }

// Mounted reports whether the dashboard is live.
func (d *Dashboard) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

// Stats returns the sequencer counters, or zero when unmounted.
func (d *Dashboard) Stats() engine.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seq == nil {
		return engine.Stats{}
	}
	return d.seq.Stats()
}

// Mount starts the sequencer and loads the list. Mounting twice is a no-op.
func (d *Dashboard) Mount(ctx context.Context) error {
	d.mu.Lock()
	if d.mounted {
		d.mu.Unlock()
		return nil
	}
	d.mounted = true
	d.gen++
	gen := d.gen

	d.runCtx, d.cancel = context.WithCancel(context.Background())
	d.seq = engine.NewSequencer(d.inboxSize, d.table, d.onUpdate)
	go d.seq.Run(d.runCtx)

	d.table.SetLoading(true)
	d.mu.Unlock()

	slog.Info("Dashboard mounted")
	return d.load(ctx, gen)
}

// Reload fetches the list again and reopens the feed for the new id set.
func (d *Dashboard) Reload(ctx context.Context) error {
	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return ErrNotMounted
	}
	d.gen++
	gen := d.gen
	d.table.SetLoading(true)
	d.mu.Unlock()

	return d.load(ctx, gen)
}

// load fetches the list and applies it if gen is still current.
// A failed fetch still applies, as the empty list. A fetch cut short by the
// caller's ctx applies nothing: the current list and feed stay.
func (d *Dashboard) load(ctx context.Context, gen uint64) error {
	assets, fetchErr := d.src.Assets(ctx)
	if ctx.Err() != nil {
		return d.abandon(ctx, gen, fetchErr)
	}
	if fetchErr != nil {
		slog.Error("Failed to fetch assets", slog.Any("error", fetchErr))
		assets = []domain.Asset{}
	}

	d.mu.Lock()
	if gen != d.gen || !d.mounted {
		d.mu.Unlock()
		slog.Debug("Discarding stale asset list", slog.Uint64("gen", gen))
		return ErrStale
	}

	// Events still queued by the old feed must not land after the swap
	d.seq.SetActiveFeed(noFeed)
	if d.feed != nil {
		d.feed.Disconnect()
		d.feed = nil
	}

	d.table.Replace(assets)
	slog.Info("Asset list loaded", slog.Int("count", len(assets)))

	if len(assets) > 0 && d.newFeed != nil {
		feed := d.newFeed(domain.IDs(assets), d.seq.Inbox())
		d.seq.SetActiveFeed(feed.ID())
		if err := feed.Connect(d.runCtx); err != nil {
			slog.Error("Failed to open live feed", slog.Any("error", err))
			d.table.SetFeedStatus(domain.FeedError, err.Error())
		} else {
			d.feed = feed
		}
	} else {
		d.table.SetFeedStatus(domain.FeedIdle, "")
	}
	d.mu.Unlock()

	d.onUpdate()

	if fetchErr != nil {
		return fmt.Errorf("load assets: %w", fetchErr)
	}
	return nil
}

// abandon ends a load whose ctx was canceled. Only the loading flag is reset.
func (d *Dashboard) abandon(ctx context.Context, gen uint64, fetchErr error) error {
	if fetchErr == nil {
		fetchErr = ctx.Err()
	}
	d.mu.Lock()
	if gen != d.gen || !d.mounted {
		d.mu.Unlock()
		return ErrStale
	}
	d.table.SetLoading(false)
	d.mu.Unlock()

	slog.Warn("Asset load canceled, keeping the current list", slog.Any("error", fetchErr))
	d.onUpdate()
	return fmt.Errorf("load assets: %w", fetchErr)
}

// Unmount closes the feed, stops the sequencer and discards the list.
// Fetches still in flight will not be applied.
func (d *Dashboard) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.mounted {
		return
	}
	d.mounted = false
	d.gen++

	if d.feed != nil {
		d.feed.Disconnect()
		d.feed = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.table.Clear()
	d.table.SetFeedStatus(domain.FeedClosed, "")
	slog.Info("Dashboard unmounted")
}
