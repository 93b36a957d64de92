package event

import (
	"sync"
	"testing"
)

func TestNextSeq_Concurrent(t *testing.T) {
	var seq uint64
	var wg sync.WaitGroup
	seen := make(chan uint64, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- NextSeq(&seq)
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool)
	for s := range seen {
		if s == 0 || s > 100 {
			t.Errorf("sequence out of range: %d", s)
		}
		unique[s] = true
	}
	if len(unique) != 100 {
		t.Errorf("expected 100 unique sequence numbers, got %d", len(unique))
	}
}

func TestEventTypes(t *testing.T) {
	var ev Event = &PriceTickEvent{BaseEvent: BaseEvent{Seq: 3, FeedID: "f"}}
	if ev.GetType() != EvPriceTick || ev.GetSeq() != 3 || ev.GetFeedID() != "f" {
		t.Errorf("unexpected tick event accessors: %v %d %s", ev.GetType(), ev.GetSeq(), ev.GetFeedID())
	}
	ev = &FeedStatusEvent{}
	if ev.GetType().String() != "FEED_STATUS" {
		t.Errorf("unexpected type name %s", ev.GetType())
	}
}
