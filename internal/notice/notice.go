// Package notice holds short-lived user-facing messages such as "Saved to Drive".
package notice

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notice stays visible
const DefaultTTL = 5 * time.Second

// Kind is the visual category of a notice
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Notice is a single transient message
type Notice struct {
	ID       uint64    `json:"id"`
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"posted_at"`
}

// Board shows at most one notice at a time. Posting replaces the current
// notice; each notice dismisses itself after the TTL unless replaced first.
type Board struct {
	mu      sync.Mutex
	ttl     time.Duration
	seq     uint64
	current *Notice
	timer   *time.Timer
}

// NewBoard creates a board; a non-positive ttl selects DefaultTTL
func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl}
}

// Post shows a new notice and returns it
func (b *Board) Post(kind Kind, text string) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	n := Notice{ID: b.seq, Kind: kind, Text: text, PostedAt: time.Now().UTC()}
	b.current = &n

	if b.timer != nil {
		b.timer.Stop()
	}
	id := n.ID
	b.timer = time.AfterFunc(b.ttl, func() { b.dismiss(id) })
	return n
}

// Current returns the visible notice, if any
func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	return *b.current, true
}

// Dismiss hides the current notice immediately
func (b *Board) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
}

// Close stops the pending dismissal timer
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Board) dismiss(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil && b.current.ID == id {
		b.clearLocked()
	}
}

func (b *Board) clearLocked() {
	b.current = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
