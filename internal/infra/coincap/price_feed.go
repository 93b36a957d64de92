package coincap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PriceFeed streams live prices for a fixed set of asset ids.
// Each message {id: price} becomes one PriceTickEvent in the inbox.
// Changing the watched set means closing this feed and opening a new one.
type PriceFeed struct {
	base   *infra.BaseWSWorker
	wsBase string
	ids    []string
	inbox  chan<- event.Event
	seq    uint64
	feedID string
}

// NewPriceFeed creates a feed for ids. It does not connect.
func NewPriceFeed(wsBase string, ids []string, inbox chan<- event.Event) *PriceFeed {
	f := &PriceFeed{
		wsBase: strings.TrimRight(wsBase, "/"),
		ids:    append([]string(nil), ids...),
		inbox:  inbox,
		feedID: uuid.NewString(),
	}
	f.base = infra.NewBaseWSWorker(f)
	return f
}

// Worker exposes the connection settings (ReadTimeout, Reconnect, Backoff).
func (f *PriceFeed) Worker() *infra.BaseWSWorker { return f.base }

// ID returns the feed session identifier. Events carry it as FeedID.
func (f *PriceFeed) ID() string { return f.feedID }

// GetURL returns {ws}/prices?assets=id1,id2,...
func (f *PriceFeed) GetURL() string {
	escaped := make([]string, len(f.ids))
	for i, id := range f.ids {
		escaped[i] = url.QueryEscape(id)
	}
	return f.wsBase + "/prices?assets=" + strings.Join(escaped, ",")
}

// Connect starts the WebSocket connection.
func (f *PriceFeed) Connect(ctx context.Context) error {
	if len(f.ids) == 0 {
		return errors.New("price feed: no assets to watch")
	}
	f.emitStatus(domain.FeedConnecting, "")
	f.base.Start(ctx)
	return nil
}

// Disconnect terminates the connection and waits for the reader to exit.
func (f *PriceFeed) Disconnect() {
	f.base.Stop()
	slog.Info("WebSocket connection closed", slog.String("feed", f.feedID))
	f.emitStatus(domain.FeedClosed, "")
}

// Done is closed once the feed stopped reading.
func (f *PriceFeed) Done() <-chan struct{} { return f.base.Done() }

// OnConnect has nothing to subscribe: the id set is in the URL.
func (f *PriceFeed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	f.emitStatus(domain.FeedLive, "")
	return nil
}

// OnMessage decodes one price message and forwards it.
func (f *PriceFeed) OnMessage(ctx context.Context, msg []byte) {
	var prices map[string]string
	if err := json.Unmarshal(msg, &prices); err != nil {
		slog.Warn("Undecodable price message", slog.String("feed", f.feedID), slog.Any("error", err))
		return
	}
	if len(prices) == 0 {
		return
	}

	ev := &event.PriceTickEvent{
		BaseEvent: event.BaseEvent{Seq: event.NextSeq(&f.seq), Ts: time.Now(), FeedID: f.feedID},
		Prices:    prices,
	}

	select {
	case f.inbox <- ev:
	default:
		slog.Warn("Inbox full, dropping price tick", slog.String("feed", f.feedID), slog.Uint64("seq", ev.Seq))
	}
}

// OnPing sends a control ping; the pong extends the read deadline.
func (f *PriceFeed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// OnError reports the failure as a feed status. Prices already shown stay.
func (f *PriceFeed) OnError(ctx context.Context, err error) {
	slog.Error("WebSocket error", slog.String("feed", f.feedID), slog.Any("error", err))
	f.emitStatus(domain.FeedError, err.Error())
}

// Status events must not be lost, unlike ticks, so they block until the
// inbox has room or a second has passed.
func (f *PriceFeed) emitStatus(s domain.FeedStatus, errMsg string) {
	ev := &event.FeedStatusEvent{
		BaseEvent: event.BaseEvent{Seq: event.NextSeq(&f.seq), Ts: time.Now(), FeedID: f.feedID},
		Status:    s,
		Err:       errMsg,
	}
	select {
	case f.inbox <- ev:
	case <-time.After(time.Second):
		slog.Warn("Inbox full, dropping feed status", slog.String("feed", f.feedID), slog.String("status", string(s)))
	}
}
