// Package settings holds the evaluation-date context that instruments price against.
package settings

import (
	"sync"
	"time"

	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/utils"
)

// Context carries "today" for pricing. Changing the evaluation date notifies observers.
type Context struct {
	observer.Subject

	mu                         sync.RWMutex
	evaluationDate             time.Time
	includeReferenceDateEvents bool

	now func() time.Time
}

// New returns a context that follows the system clock until an evaluation date is set.
func New() *Context {
	return &Context{now: time.Now}
}

var defaultContext = New()

// Default is the process-wide context used when an instrument is not given one.
func Default() *Context {
	return defaultContext
}

// EvaluationDate returns the fixed evaluation date, or today's date when none is set.
func (c *Context) EvaluationDate() time.Time {
	c.mu.RLock()
	d := c.evaluationDate
	now := c.now
	c.mu.RUnlock()
	if !d.IsZero() {
		return d
	}
	if now == nil {
		now = time.Now
	}
	return utils.Truncate(now())
}

// SetEvaluationDate pins the evaluation date. Observers are notified when it changes.
func (c *Context) SetEvaluationDate(d time.Time) {
	d = utils.Truncate(d)
	c.mu.Lock()
	changed := !c.evaluationDate.Equal(d)
	c.evaluationDate = d
	c.mu.Unlock()
	if changed {
		c.Notify()
	}
}

// ResetEvaluationDate returns to following the system clock.
func (c *Context) ResetEvaluationDate() {
	c.mu.Lock()
	changed := !c.evaluationDate.IsZero()
	c.evaluationDate = time.Time{}
	c.mu.Unlock()
	if changed {
		c.Notify()
	}
}

// IncludeReferenceDateEvents reports whether an event on the evaluation date is still pending.
// When false, the default, such an event has already occurred.
func (c *Context) IncludeReferenceDateEvents() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.includeReferenceDateEvents
}

// SetIncludeReferenceDateEvents changes the same-day event rule and notifies observers.
// Passing true keeps events dated on the evaluation date alive.
func (c *Context) SetIncludeReferenceDateEvents(include bool) {
	c.mu.Lock()
	changed := c.includeReferenceDateEvents != include
	c.includeReferenceDateEvents = include
	c.mu.Unlock()
	if changed {
		c.Notify()
	}
}

// HasOccurred reports whether an event dated d has happened as of the evaluation date.
// Events dated on the evaluation date have occurred unless reference-date events are included.
func (c *Context) HasOccurred(d time.Time) bool {
	today := c.EvaluationDate()
	d = utils.Truncate(d)
	if d.Equal(today) {
		return !c.IncludeReferenceDateEvents()
	}
	return d.Before(today)
}
