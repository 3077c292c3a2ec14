package conversation

import (
	"sync"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 8

// Turn is one resolved exchange.
type Turn struct {
	Utterance string            `json:"utterance"`
	Answer    string            `json:"answer"`
	Strategy  strategy.Strategy `json:"strategy"`
	At        time.Time         `json:"at"`
}

// Context is a bounded history of turns, oldest evicted first. The zero
// value is not usable; call New. A nil *Context behaves as an empty history.
type Context struct {
	mu    sync.RWMutex
	buf   []Turn
	start int
	n     int
}

// New returns an empty history holding at most capacity turns.
func New(capacity int) *Context {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Context{buf: make([]Turn, capacity)}
}

// Add appends a turn, evicting the oldest when full.
func (c *Context) Add(t Turn) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.At.IsZero() {
		t.At = time.Now()
	}
	if c.n < len(c.buf) {
		c.buf[(c.start+c.n)%len(c.buf)] = t
		c.n++
		return
	}
	c.buf[c.start] = t
	c.start = (c.start + 1) % len(c.buf)
}

// Recent returns the turns from oldest to newest.
func (c *Context) Recent() []Turn {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Turn, c.n)
	for i := range c.n {
		out[i] = c.buf[(c.start+i)%len(c.buf)]
	}
	return out
}

// Last returns up to n of the newest turns, oldest first.
func (c *Context) Last(n int) []Turn {
	all := c.Recent()
	if n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

// Len returns the number of turns held.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.n
}

// Cap returns the capacity.
func (c *Context) Cap() int {
	if c == nil {
		return 0
	}
	return len(c.buf)
}

// Reset drops all turns.
func (c *Context) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.buf)
	c.start, c.n = 0, 0
}

// AnswerRecency returns how many turns ago answer was last served: 0 for the
// newest turn, -1 if it is not in the history.
func (c *Context) AnswerRecency(answer string) int {
	turns := c.Recent()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Answer == answer {
			return len(turns) - 1 - i
		}
	}
	return -1
}
