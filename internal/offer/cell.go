package offer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the published offer state.
type Snapshot struct {
	Result
	Deadline    time.Time `json:"deadline"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Reader is the read-only view of the offer state handed to consumers.
type Reader interface {
	// Snapshot returns the latest state and whether one has been published.
	Snapshot() (Snapshot, bool)
	// Subscribe registers for change notifications.
	Subscribe() *Subscription
}

// Subscription delivers snapshots whenever the published result changes.
type Subscription struct {
	ID uuid.UUID
	ch chan Snapshot

	once    sync.Once
	release func()
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Close detaches the subscription from the cell.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}

// Cell holds the latest snapshot. Only the owning Poller publishes into it.
type Cell struct {
	mu      sync.RWMutex
	current Snapshot
	set     bool
	subs    map[uuid.UUID]*Subscription
}

// NewCell constructs an empty Cell.
func NewCell() *Cell {
	return &Cell{subs: make(map[uuid.UUID]*Subscription)}
}

// Snapshot implements Reader.
func (c *Cell) Snapshot() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.set
}

// Subscribe implements Reader. When a snapshot already exists it is queued
// immediately so new subscribers never start empty.
func (c *Cell) Subscribe() *Subscription {
	sub := &Subscription{ID: uuid.New(), ch: make(chan Snapshot, 1)}
	sub.release = func() { c.unsubscribe(sub.ID) }
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[sub.ID] = sub
	if c.set {
		sub.ch <- c.current
	}
	return sub
}

// Subscribers returns the number of live subscriptions.
func (c *Cell) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Cell) unsubscribe(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(sub.ch)
	}
}

// publish stores snap and notifies subscribers when the result changed. It
// reports whether the stored state changed. Once an expired snapshot is
// stored, non-expired snapshots are ignored.
func (c *Cell) publish(snap Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set && c.current.Expired && !snap.Expired {
		return false
	}
	changed := !c.set || c.current.Result != snap.Result
	c.current = snap
	c.set = true
	if !changed {
		return false
	}
	for _, sub := range c.subs {
		// Latest value wins for slow readers.
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
	return true
}

// Fixed is a Reader that always reports the same snapshot. It backs preview
// mode, where the page is pinned to the active or expired state.
type Fixed struct {
	snap Snapshot
}

// NewFixed returns a Reader pinned to snap.
func NewFixed(snap Snapshot) *Fixed {
	return &Fixed{snap: snap}
}

// Snapshot implements Reader.
func (f *Fixed) Snapshot() (Snapshot, bool) {
	return f.snap, true
}

// Subscribe implements Reader. The pinned snapshot is delivered once.
func (f *Fixed) Subscribe() *Subscription {
	sub := &Subscription{ID: uuid.New(), ch: make(chan Snapshot, 1)}
	sub.ch <- f.snap
	sub.release = func() { close(sub.ch) }
	return sub
}
