package event

import (
	"sync/atomic"
	"time"

	"crypto_dash/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvPriceTick Type = iota + 1
	EvFeedStatus
)

func (t Type) String() string {
	switch t {
	case EvPriceTick:
		return "PRICE_TICK"
	case EvFeedStatus:
		return "FEED_STATUS"
	default:
		return "UNKNOWN"
	}
}

// Event is the interface for all sequencer events.
type Event interface {
	GetSeq() uint64
	GetTs() time.Time
	GetType() Type
	GetFeedID() string
}

// BaseEvent contains common fields for all events.
// Seq is assigned per feed session, starting at 1.
type BaseEvent struct {
	Seq    uint64    `json:"seq"`
	Ts     time.Time `json:"ts"`
	FeedID string    `json:"feed_id"`
}

func (e BaseEvent) GetSeq() uint64    { return e.Seq }
func (e BaseEvent) GetTs() time.Time  { return e.Ts }
func (e BaseEvent) GetFeedID() string { return e.FeedID }

// PriceTickEvent carries one decoded feed message: asset id -> price string.
type PriceTickEvent struct {
	BaseEvent
	Prices map[string]string `json:"prices"`
}

func (e PriceTickEvent) GetType() Type { return EvPriceTick }

// FeedStatusEvent reports a connection state change of a feed.
type FeedStatusEvent struct {
	BaseEvent
	Status domain.FeedStatus `json:"status"`
	Err    string            `json:"error,omitempty"`
}

func (e FeedStatusEvent) GetType() Type { return EvFeedStatus }

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}
