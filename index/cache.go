package index

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/utils"
)

// CachedFixingStore memoizes published fixings of a slower store. Only hits are cached;
// a missing fixing is asked again next time since it may have been published meanwhile.
type CachedFixingStore struct {
	observer.Subject

	inner FixingStore
	cache *cache.Cache
	sub   *observer.Subscription
}

// NewCachedFixingStore wraps inner. When inner is observable, its notifications flush the
// cache and are forwarded.
func NewCachedFixingStore(inner FixingStore, ttl time.Duration) *CachedFixingStore {
	c := &CachedFixingStore{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
	if src, ok := inner.(observer.Observable); ok {
		c.sub = src.Register(observer.ObserverFunc(func() {
			c.cache.Flush()
			c.Notify()
		}))
	}
	return c
}

func cacheKey(name string, date time.Time) string {
	return name + "|" + date.Format(utils.DateLayout)
}

func (c *CachedFixingStore) Fixing(name string, date time.Time) (float64, bool, error) {
	key := cacheKey(name, date)
	if rate, found := c.cache.Get(key); found {
		return rate.(float64), true, nil
	}
	rate, ok, err := c.inner.Fixing(name, date)
	if err != nil || !ok {
		return rate, ok, err
	}
	c.cache.SetDefault(key, rate)
	return rate, true, nil
}

// AddFixing writes through to the inner store.
func (c *CachedFixingStore) AddFixing(name string, date time.Time, rate float64) error {
	w, ok := c.inner.(FixingWriter)
	if !ok {
		return errReadOnly(name)
	}
	c.cache.Delete(cacheKey(name, date))
	if err := w.AddFixing(name, date, rate); err != nil {
		return err
	}
	if c.sub == nil {
		c.Notify()
	}
	return nil
}

// Flush drops every cached fixing.
func (c *CachedFixingStore) Flush() {
	c.cache.Flush()
}

// Close stops listening to the inner store.
func (c *CachedFixingStore) Close() {
	c.sub.Cancel()
}
