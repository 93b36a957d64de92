package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
)

// TickSink receives the effects of feed events. table.Model implements it.
type TickSink interface {
	ApplyTicks(prices map[string]string) int
	SetFeedStatus(status domain.FeedStatus, errMsg string)
}

// Sequencer is the single goroutine that applies live feed events to the
// asset list, in arrival order.
type Sequencer struct {
	inbox chan event.Event
	sink  TickSink

	// per-feed next expected seq; touched only by the Run goroutine
	nextSeq map[string]uint64

	mu         sync.RWMutex // guards activeFeed and stats for external reads
	activeFeed string
	stats      Stats

	// Boundary: notifies UI of applied changes
	onUpdate func()

	DumpPath string
}

// Stats counts what the sequencer did with its inbox.
type Stats struct {
	Applied    uint64 `json:"applied"`
	RowsSet    uint64 `json:"rows_set"`
	Duplicates uint64 `json:"duplicates"`
	Gaps       uint64 `json:"gaps"`
	Stale      uint64 `json:"stale"`
}

// NewSequencer creates a sequencer writing into sink.
func NewSequencer(inboxSize int, sink TickSink, onUpdate func()) *Sequencer {
	if inboxSize <= 0 {
		inboxSize = 1
	}
	return &Sequencer{
		inbox:    make(chan event.Event, inboxSize),
		sink:     sink,
		nextSeq:  make(map[string]uint64),
		onUpdate: onUpdate,
		DumpPath: "panic_dump.json",
	}
}

// Inbox returns the event channel. Feed workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// SetActiveFeed restricts processing to events from feedID.
// Events of any other feed are dropped. An empty id accepts every feed.
func (s *Sequencer) SetActiveFeed(feedID string) {
	s.mu.Lock()
	s.activeFeed = feedID
	s.mu.Unlock()
}

// Stats returns a copy of the counters.
func (s *Sequencer) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Run starts the main event loop. This MUST be run in a single goroutine.
// A panic while processing is logged and dumped; the loop then stops and
// the last applied prices stay in place.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.DumpPath)
			if s.sink != nil {
				s.sink.SetFeedStatus(domain.FeedError, fmt.Sprintf("sequencer halted: %v", r))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

// validateSequence reports whether ev should be applied.
// Older or repeated seqs are dropped. Forward gaps come from ticks the feed
// dropped on a full inbox and are tolerated.
func (s *Sequencer) validateSequence(ev event.Event) bool {
	feed := ev.GetFeedID()
	expected, ok := s.nextSeq[feed]
	if !ok {
		expected = 1
	}
	got := ev.GetSeq()

	switch {
	case got == expected:
	case got < expected:
		slog.Warn("SEQUENCE_DUPLICATE_IGNORED", slog.String("feed", feed), slog.Uint64("expected", expected), slog.Uint64("got", got))
		s.count(func(st *Stats) { st.Duplicates++ })
		return false
	default:
		slog.Warn("SEQUENCE_GAP_TOLERATED",
			slog.String("feed", feed),
			slog.Uint64("expected", expected),
			slog.Uint64("got", got),
			slog.Uint64("gap", got-expected))
		s.count(func(st *Stats) { st.Gaps++ })
	}

	s.nextSeq[feed] = got + 1
	return true
}

func (s *Sequencer) processEvent(ev event.Event) {
	if ev == nil {
		return
	}

	s.mu.RLock()
	active := s.activeFeed
	s.mu.RUnlock()
	if active != "" && ev.GetFeedID() != active {
		slog.Debug("Dropping event from inactive feed", slog.String("feed", ev.GetFeedID()))
		s.count(func(st *Stats) { st.Stale++ })
		return
	}

	if !s.validateSequence(ev) {
		return
	}

	switch e := ev.(type) {
	case *event.PriceTickEvent:
		s.handlePriceTick(e)
	case *event.FeedStatusEvent:
		s.handleFeedStatus(e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
		return
	}

	if s.onUpdate != nil {
		s.onUpdate()
	}
}

func (s *Sequencer) handlePriceTick(e *event.PriceTickEvent) {
	n := 0
	if s.sink != nil {
		n = s.sink.ApplyTicks(e.Prices)
	}
	s.count(func(st *Stats) {
		st.Applied++
		st.RowsSet += uint64(n)
	})
}

func (s *Sequencer) handleFeedStatus(e *event.FeedStatusEvent) {
	if e.Err != "" {
		slog.Warn("Live feed status", slog.String("feed", e.FeedID), slog.String("status", string(e.Status)), slog.String("error", e.Err))
	} else {
		slog.Info("Live feed status", slog.String("feed", e.FeedID), slog.String("status", string(e.Status)))
	}
	if s.sink != nil {
		s.sink.SetFeedStatus(e.Status, e.Err)
	}
	s.count(func(st *Stats) { st.Applied++ })
}

func (s *Sequencer) count(f func(*Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}

// DumpState writes the sequencer's counters to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	if filename == "" {
		return
	}
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq map[string]uint64 `json:"next_seq"`
		Stats   Stats             `json:"stats"`
	}{
		NextSeq: s.nextSeq,
		Stats:   s.Stats(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
