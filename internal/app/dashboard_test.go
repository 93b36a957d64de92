package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
	"crypto_dash/internal/table"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fetch func(n int) ([]domain.Asset, error)
}

func (f *fakeSource) Assets(ctx context.Context) ([]domain.Asset, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.fetch(n)
}

type fakeFeed struct {
	id           string
	ids          []string
	inbox        chan<- event.Event
	mu           sync.Mutex
	seq          uint64
	connected    bool
	disconnected bool
}

func (f *fakeFeed) ID() string { return f.id }
func (f *fakeFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}
// Disconnect queues a closed status like the real feed does.
func (f *fakeFeed) Disconnect() {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
	select {
	case f.inbox <- &event.FeedStatusEvent{
		BaseEvent: event.BaseEvent{Seq: event.NextSeq(&f.seq), Ts: time.Now(), FeedID: f.id},
		Status:    domain.FeedClosed,
	}:
	default:
	}
}

func (f *fakeFeed) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type feedRecorder struct {
	mu    sync.Mutex
	feeds []*fakeFeed
}

func (r *feedRecorder) factory(ids []string, inbox chan<- event.Event) Feed {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := &fakeFeed{id: "feed-" + string(rune('a'+len(r.feeds))), ids: ids, inbox: inbox}
	r.feeds = append(r.feeds, f)
	return f
}

func (r *feedRecorder) all() []*fakeFeed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeFeed(nil), r.feeds...)
}

var twoAssets = []domain.Asset{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", PriceUsd: "50000", MarketCapUsd: "1"},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", PriceUsd: "3000", MarketCapUsd: "1"},
}

func newTestDashboard(src AssetSource, rec *feedRecorder, onUpdate func()) (*Dashboard, *table.Model) {
	model := table.NewModel(domain.DefaultPageSizes, 10)
	return NewDashboard(src, model, rec.factory, 16, onUpdate), model
}

func TestDashboard_MountOpensFeed(t *testing.T) {
	src := &fakeSource{fetch: func(int) ([]domain.Asset, error) { return twoAssets, nil }}
	rec := &feedRecorder{}
	d, model := newTestDashboard(src, rec, nil)
	defer d.Unmount()

	if err := d.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	if model.Loading() || len(model.Assets()) != 2 {
		t.Errorf("Expected 2 loaded assets, got %d (loading=%v)", len(model.Assets()), model.Loading())
	}
	feeds := rec.all()
	if len(feeds) != 1 || !feeds[0].connected {
		t.Fatalf("Expected one connected feed, got %d", len(feeds))
	}
	if len(feeds[0].ids) != 2 || feeds[0].ids[0] != "bitcoin" || feeds[0].ids[1] != "ethereum" {
		t.Errorf("unexpected feed ids: %v", feeds[0].ids)
	}

	// Second mount is a no-op
	d.Mount(context.Background())
	if src.calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", src.calls)
	}
}

func TestDashboard_TicksReachTable(t *testing.T) {
	src := &fakeSource{fetch: func(int) ([]domain.Asset, error) { return twoAssets, nil }}
	rec := &feedRecorder{}
	updated := make(chan struct{}, 16)
	d, model := newTestDashboard(src, rec, func() {
		select {
		case updated <- struct{}{}:
		default:
		}
	})
	defer d.Unmount()

	d.Mount(context.Background())
	<-updated // the load itself

	feed := rec.all()[0]
	feed.inbox <- &event.PriceTickEvent{
		BaseEvent: event.BaseEvent{Seq: 1, Ts: time.Now(), FeedID: feed.id},
		Prices:    map[string]string{"bitcoin": "51000.5", "dogecoin": "0.1"},
	}

	deadline := time.After(time.Second)
	for {
		assets := model.Assets()
		if assets[0].PriceUsd == "51000.500000" {
			break
		}
		select {
		case <-updated:
		case <-deadline:
			t.Fatalf("tick not applied, price is %s", assets[0].PriceUsd)
		}
	}

	if got := model.Assets(); len(got) != 2 || got[1].PriceUsd != "3000" {
		t.Errorf("tick must only touch listed ids: %+v", got)
	}
}

func TestDashboard_FetchFailureDegradesToEmpty(t *testing.T) {
	src := &fakeSource{fetch: func(int) ([]domain.Asset, error) { return nil, errors.New("network down") }}
	rec := &feedRecorder{}
	d, model := newTestDashboard(src, rec, nil)
	defer d.Unmount()

	err := d.Mount(context.Background())
	if err == nil {
		t.Fatal("Expected the fetch error to be returned")
	}
	if model.Loading() {
		t.Error("loading should end after a failed fetch")
	}
	if len(model.Assets()) != 0 {
		t.Error("Expected empty list")
	}
	if len(rec.all()) != 0 {
		t.Error("no feed should open for an empty list")
	}
}

func TestDashboard_UnmountDiscardsInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	src := &fakeSource{fetch: func(int) ([]domain.Asset, error) {
		close(entered)
		<-release
		return twoAssets, nil
	}}
	rec := &feedRecorder{}
	d, model := newTestDashboard(src, rec, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- d.Mount(context.Background()) }()

	<-entered
	d.Unmount()
	close(release)

	if err := <-errCh; !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale, got %v", err)
	}
	if len(model.Assets()) != 0 {
		t.Error("stale result must not be applied")
	}
	if len(rec.all()) != 0 {
		t.Error("no feed should open after unmount")
	}
	if s, _ := model.FeedStatus(); s != domain.FeedClosed {
		t.Errorf("Expected closed feed status, got %s", s)
	}
}

func TestDashboard_NewerReloadWins(t *testing.T) {
	release := make(chan struct{})
	firstEntered := make(chan struct{})
	src := &fakeSource{fetch: func(n int) ([]domain.Asset, error) {
		switch n {
		case 1:
			return twoAssets, nil
		case 2:
			close(firstEntered)
			<-release
			return twoAssets, nil
		default:
			return twoAssets[:1], nil
		}
	}}
	rec := &feedRecorder{}
	d, model := newTestDashboard(src, rec, nil)
	defer d.Unmount()

	d.Mount(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- d.Reload(context.Background()) }()
	<-firstEntered

	if err := d.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	close(release)

	if err := <-errCh; !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale for the older reload, got %v", err)
	}
	if got := model.Assets(); len(got) != 1 {
		t.Errorf("newer result should stand, got %d assets", len(got))
	}

	feeds := rec.all()
	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds (mount + newest reload), got %d", len(feeds))
	}
	if !feeds[0].disconnected {
		t.Error("old feed should be closed when the list is replaced")
	}
	if len(feeds[1].ids) != 1 {
		t.Errorf("new feed should watch the new id set, got %v", feeds[1].ids)
	}
}

func TestDashboard_ReloadRequiresMount(t *testing.T) {
	src := &fakeSource{fetch: func(int) ([]domain.Asset, error) { return twoAssets, nil }}
	d, _ := newTestDashboard(src, &feedRecorder{}, nil)

	if err := d.Reload(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Errorf("Expected ErrNotMounted, got %v", err)
	}
}

func TestDashboard_UnmountClosesFeed(t *testing.T) {
	src := &fakeSource{fetch: func(int) ([]domain.Asset, error) { return twoAssets, nil }}
	rec := &feedRecorder{}
	d, model := newTestDashboard(src, rec, nil)

	d.Mount(context.Background())
	d.Unmount()
	d.Unmount() // idempotent

	if !rec.all()[0].disconnected {
		t.Error("feed should be disconnected")
	}
	if d.Mounted() || len(model.Assets()) != 0 {
		t.Error("list should be discarded on unmount")
	}
}

func TestDashboard_CanceledReloadKeepsList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{fetch: func(n int) ([]domain.Asset, error) {
		if n == 1 {
			return twoAssets, nil
		}
		cancel()
		return nil, context.Canceled
	}}
	rec := &feedRecorder{}
	d, model := newTestDashboard(src, rec, nil)
	defer d.Unmount()

	if err := d.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	err := d.Reload(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if got := model.Assets(); len(got) != 2 {
		t.Errorf("list must survive a canceled reload, got %d assets", len(got))
	}
	if model.Loading() {
		t.Error("loading should end after a canceled reload")
	}
	feeds := rec.all()
	if len(feeds) != 1 || feeds[0].isDisconnected() {
		t.Error("live feed must stay open after a canceled reload")
	}
}

func TestDashboard_EmptyReloadEndsIdle(t *testing.T) {
	src := &fakeSource{fetch: func(n int) ([]domain.Asset, error) {
		if n == 1 {
			return twoAssets, nil
		}
		return []domain.Asset{}, nil
	}}
	rec := &feedRecorder{}
	d, model := newTestDashboard(src, rec, nil)
	defer d.Unmount()

	d.Mount(context.Background())
	if err := d.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	// Wait for the old feed's closed event to be dropped
	deadline := time.After(time.Second)
	for d.Stats().Stale == 0 {
		select {
		case <-deadline:
			t.Fatal("old feed's closed event was never processed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if s, _ := model.FeedStatus(); s != domain.FeedIdle {
		t.Errorf("Expected idle feed status, got %s", s)
	}
}
