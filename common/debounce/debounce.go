// Package debounce coalesces bursts of text edits so only the last edit of
// each field instance is applied once the field has been quiet for a window.
package debounce

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultWindow is the quiet period used when none is configured
const DefaultWindow = 250 * time.Millisecond

type pending struct {
	apply func()
	timer *time.Timer
	seq   uint64
}

// Coalescer holds at most one pending apply per key. Keys name a field
// instance, e.g. "identifiers/n3/value", so a row's fields share a prefix.
type Coalescer struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*pending
	seq     uint64
	closed  bool
}

// New creates a coalescer; a non-positive window falls back to DefaultWindow
func New(window time.Duration) *Coalescer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Coalescer{
		window:  window,
		pending: make(map[string]*pending),
	}
}

// Window returns the quiet period
func (c *Coalescer) Window() time.Duration {
	return c.window
}

// Push replaces the pending apply for key and restarts its timer
func (c *Coalescer) Push(key string, apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if old, ok := c.pending[key]; ok {
		old.timer.Stop()
	}

	c.seq++
	p := &pending{apply: apply, seq: c.seq}
	p.timer = time.AfterFunc(c.window, func() { c.fire(key, p) })
	c.pending[key] = p
}

// fire runs p unless it was replaced, cancelled or flushed in the meantime
func (c *Coalescer) fire(key string, p *pending) {
	c.mu.Lock()
	current, ok := c.pending[key]
	if !ok || current != p {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	c.mu.Unlock()

	p.apply()
}

// Cancel drops the pending apply for key
func (c *Coalescer) Cancel(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(c.pending, key)
	return true
}

// CancelPrefix drops every pending apply whose key starts with prefix and
// returns how many were dropped. Deleting a row cancels all of its fields.
func (c *Coalescer) CancelPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, p := range c.pending {
		if strings.HasPrefix(key, prefix) {
			p.timer.Stop()
			delete(c.pending, key)
			n++
		}
	}
	return n
}

// Flush applies everything pending right away, in push order. Applies run
// on the caller's goroutine without the coalescer lock held.
func (c *Coalescer) Flush() int {
	c.mu.Lock()
	batch := make([]*pending, 0, len(c.pending))
	for key, p := range c.pending {
		p.timer.Stop()
		batch = append(batch, p)
		delete(c.pending, key)
	}
	c.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].seq < batch[j].seq })
	for _, p := range batch {
		p.apply()
	}
	return len(batch)
}

// Pending returns the keys waiting to be applied, sorted
func (c *Coalescer) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.pending))
	for key := range c.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close cancels everything pending and rejects later pushes
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, key)
	}
	c.closed = true
}
