package intent

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Tracker keeps a sliding window of message timestamps per sender. The number of tracked
// senders is bounded; the least recently seen sender is evicted first.
type Tracker struct {
	mu        sync.Mutex
	senders   *lru.Cache[string, []time.Time]
	threshold int
	window    time.Duration
}

func NewTracker(threshold int, window time.Duration, capacity int) (*Tracker, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("loop threshold must be positive, got %d", threshold)
	}
	if window <= 0 {
		return nil, fmt.Errorf("loop window must be positive, got %s", window)
	}
	cache, err := lru.New[string, []time.Time](capacity)
	if err != nil {
		return nil, fmt.Errorf("create sender tracker: %w", err)
	}
	return &Tracker{senders: cache, threshold: threshold, window: window}, nil
}

// Observe records a message at time at and returns how many messages the sender sent
// inside the window ending at at, this one included. Entries older than the window are
// pruned on every call and at most threshold+1 timestamps are kept.
func (t *Tracker) Observe(sender string, at time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	stamps, _ := t.senders.Get(sender)
	cutoff := at.Add(-t.window)
	kept := make([]time.Time, 0, len(stamps)+1)
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, at)
	if over := len(kept) - (t.threshold + 1); over > 0 {
		kept = kept[over:]
	}
	t.senders.Add(sender, kept)
	return len(kept)
}

// Exceeded records the message and reports whether the sender is above the threshold.
func (t *Tracker) Exceeded(sender string, at time.Time) bool {
	return t.Observe(sender, at) > t.threshold
}

func (t *Tracker) Forget(sender string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.senders.Remove(sender)
}

// Len is the number of senders currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.senders.Len()
}
