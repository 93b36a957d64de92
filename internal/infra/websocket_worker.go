package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketHandler defines feed-specific logic for the BaseWSWorker.
type WebSocketHandler interface {
	GetURL() string
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	OnPing(ctx context.Context, conn *websocket.Conn) error
	// OnError reports a dial or read failure. The worker keeps no state about it.
	OnError(ctx context.Context, err error)
	ID() string
}

// BaseWSWorker manages the lifecycle of a WebSocket connection:
// dial, read loop and keepalive pings.
// When Reconnect is false (the default) the worker stops after the first
// dial or read failure; when true it redials with Backoff.
type BaseWSWorker struct {
	handler WebSocketHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}

	ReadTimeout  time.Duration
	PingInterval time.Duration
	Reconnect    bool
	Backoff      Backoff
}

// NewBaseWSWorker creates a new generic WebSocket worker.
func NewBaseWSWorker(handler WebSocketHandler) *BaseWSWorker {
	return &BaseWSWorker{
		handler:      handler,
		done:         make(chan struct{}),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		Backoff:      DefaultBackoff,
	}
}

// Start initiates the connection loop.
func (w *BaseWSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop terminates the worker and waits for its goroutines.
func (w *BaseWSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

// Done is closed when the connection loop has exited.
func (w *BaseWSWorker) Done() <-chan struct{} {
	return w.done
}

func (w *BaseWSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.done)
	retry := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if err := w.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("WS Connection failed", "id", w.handler.ID(), "err", err, "retry", retry)
			w.handler.OnError(ctx, err)
			if !w.Reconnect {
				return
			}

			delay := w.Backoff.Delay(retry)
			retry++
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.process(ctx)

		if !w.Reconnect || ctx.Err() != nil {
			slog.Info("WS Closed", "id", w.handler.ID())
			return
		}
	}
}

func (w *BaseWSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", GetUserAgent())

	conn, _, err := dialer.DialContext(ctx, w.handler.GetURL(), header)
	if err != nil {
		return err
	}

	if w.ReadTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		})
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("OnConnect failed: %w", err)
	}

	if w.PingInterval > 0 {
		w.wg.Add(1)
		go w.pingLoop(ctx, conn)
	}

	slog.Info("WS Connected", "id", w.handler.ID())
	return nil
}

func (w *BaseWSWorker) process(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		if w.ReadTimeout > 0 {
			c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				slog.Warn("WS Read error", "id", w.handler.ID(), "err", err)
				w.handler.OnError(ctx, err)
			}
			w.close()
			return
		}

		w.handler.OnMessage(ctx, msg)
	}
}

func (w *BaseWSWorker) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			c := w.conn
			w.mu.RUnlock()
			if c != conn {
				return
			}
			if err := w.handler.OnPing(ctx, c); err != nil {
				slog.Warn("WS Ping error", "id", w.handler.ID(), "err", err)
				w.close()
				return
			}
		}
	}
}

func (w *BaseWSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
