package termstructure

import (
	"sync"
	"time"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/observer"
)

// RelinkableHandle lets many instruments share a curve slot whose content can be swapped.
// Observers of the handle are notified on relinking and on every change of the linked curve.
type RelinkableHandle struct {
	observer.Subject

	mu      sync.RWMutex
	current YieldCurve
	sub     *observer.Subscription
}

// NewRelinkableHandle returns a handle linked to c, which may be nil.
func NewRelinkableHandle(c YieldCurve) *RelinkableHandle {
	h := &RelinkableHandle{}
	h.link(c)
	return h
}

func (h *RelinkableHandle) link(c YieldCurve) {
	h.mu.Lock()
	h.sub.Cancel()
	h.sub = nil
	h.current = c
	if c != nil {
		h.sub = c.Register(observer.ObserverFunc(h.Notify))
	}
	h.mu.Unlock()
}

// LinkTo points the handle at c (nil empties it) and notifies observers.
func (h *RelinkableHandle) LinkTo(c YieldCurve) {
	h.link(c)
	h.Notify()
}

// Empty reports whether no curve is linked.
func (h *RelinkableHandle) Empty() bool {
	return h.Current() == nil
}

// Current returns the linked curve or nil.
func (h *RelinkableHandle) Current() YieldCurve {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *RelinkableHandle) Discount(t time.Time) (float64, error) {
	c := h.Current()
	if c == nil {
		return 0, ErrEmptyHandle
	}
	return c.Discount(t)
}

func (h *RelinkableHandle) DayCount() market.DayCount {
	if c := h.Current(); c != nil {
		return c.DayCount()
	}
	return ""
}

func (h *RelinkableHandle) Calendar() calendar.CalendarID {
	if c := h.Current(); c != nil {
		return c.Calendar()
	}
	return ""
}

func (h *RelinkableHandle) ReferenceDate() time.Time {
	if c := h.Current(); c != nil {
		return c.ReferenceDate()
	}
	return time.Time{}
}
