// Package observer is the notification graph between market data and the instruments
// priced off it. A Subject keeps a set of subscribers and calls Update on each of them
// when it changes.
package observer

import (
	"slices"
	"sync"
)

// Observer receives change notifications.
type Observer interface {
	Update()
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func()

func (f ObserverFunc) Update() { f() }

// Observable is anything an Observer can subscribe to.
type Observable interface {
	Register(o Observer) *Subscription
}

// Subject is an embeddable Observable. The zero value is ready to use.
type Subject struct {
	mu        sync.Mutex
	next      uint64
	observers map[uint64]Observer
}

// Subscription is the handle returned by Register.
type Subscription struct {
	subject *Subject
	id      uint64
}

// Register subscribes o. Registering the same observer twice delivers two notifications.
func (s *Subject) Register(o Observer) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observers == nil {
		s.observers = make(map[uint64]Observer)
	}
	s.next++
	s.observers[s.next] = o
	return &Subscription{subject: s, id: s.next}
}

// Cancel removes the subscription. It is safe to call more than once and on nil.
func (sub *Subscription) Cancel() {
	if sub == nil || sub.subject == nil {
		return
	}
	s := sub.subject
	s.mu.Lock()
	delete(s.observers, sub.id)
	s.mu.Unlock()
	sub.subject = nil
}

// Len returns the number of live subscriptions.
func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Notify calls Update on every subscriber. Subscribers run outside the lock so they may
// register, cancel or notify further observers.
func (s *Subject) Notify() {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	targets := make([]Observer, len(ids))
	for i, id := range ids {
		targets[i] = s.observers[id]
	}
	s.mu.Unlock()

	for _, o := range targets {
		o.Update()
	}
}

// Group collects subscriptions so an owner can drop all of them at once.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Watch registers o with src and remembers the subscription. A nil src is ignored.
func (g *Group) Watch(src Observable, o Observer) {
	if src == nil {
		return
	}
	sub := src.Register(o)
	g.mu.Lock()
	g.subs = append(g.subs, sub)
	g.mu.Unlock()
}

// CancelAll cancels every subscription in the group.
func (g *Group) CancelAll() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}
