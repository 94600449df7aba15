package index

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/utils"
)

// ErrReadOnly is returned when writing to a store that does not accept fixings.
var ErrReadOnly = errors.New("fixing store is read-only")

func errReadOnly(name string) error {
	return fmt.Errorf("AddFixing: %s: %w", name, ErrReadOnly)
}

// FixingStore supplies published fixings keyed by index name and fixing date.
// ok is false when no fixing was published for that date.
type FixingStore interface {
	Fixing(name string, date time.Time) (rate float64, ok bool, err error)
}

// FixingWriter is implemented by stores that accept new fixings.
type FixingWriter interface {
	AddFixing(name string, date time.Time, rate float64) error
}

// MapFixingStore is an in-memory store. Adding a fixing notifies observers.
type MapFixingStore struct {
	observer.Subject

	mu    sync.RWMutex
	rates map[string]map[string]float64
}

func NewMapFixingStore() *MapFixingStore {
	return &MapFixingStore{rates: make(map[string]map[string]float64)}
}

// NewMapFixingStoreFrom seeds a store with name -> YYYY-MM-DD -> rate.
func NewMapFixingStoreFrom(rates map[string]map[string]float64) *MapFixingStore {
	s := NewMapFixingStore()
	for name, series := range rates {
		cp := make(map[string]float64, len(series))
		for d, r := range series {
			cp[d] = r
		}
		s.rates[name] = cp
	}
	return s
}

func (m *MapFixingStore) Fixing(name string, date time.Time) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.rates[name][date.Format(utils.DateLayout)]
	return val, ok, nil
}

func (m *MapFixingStore) AddFixing(name string, date time.Time, rate float64) error {
	m.mu.Lock()
	series, ok := m.rates[name]
	if !ok {
		series = make(map[string]float64)
		m.rates[name] = series
	}
	series[date.Format(utils.DateLayout)] = rate
	m.mu.Unlock()

	m.Notify()
	return nil
}

// ClearFixings removes every fixing of an index.
func (m *MapFixingStore) ClearFixings(name string) {
	m.mu.Lock()
	delete(m.rates, name)
	m.mu.Unlock()
	m.Notify()
}
