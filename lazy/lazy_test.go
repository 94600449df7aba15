package lazy_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fralib/lazy"
)

func TestValueCachesUntilInvalidated(t *testing.T) {
	t.Parallel()

	calls := 0
	v := lazy.New(func() (int, error) {
		calls++
		return calls * 10, nil
	})
	assert.False(t, v.IsCalculated())

	for i := 0; i < 3; i++ {
		got, err := v.Get()
		require.NoError(t, err)
		assert.Equal(t, 10, got)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, v.IsCalculated())

	assert.True(t, v.Invalidate())
	assert.False(t, v.Invalidate())

	got, err := v.Get()
	require.NoError(t, err)
	assert.Equal(t, 20, got)
	assert.Equal(t, 2, calls)
}

func TestValueFailureKeepsPreviousResult(t *testing.T) {
	t.Parallel()

	fail := false
	calls := 0
	v := lazy.New(func() (string, error) {
		calls++
		if fail {
			return "", errors.New("no market data")
		}
		return "ok", nil
	})

	_, err := v.Get()
	require.NoError(t, err)

	fail = true
	v.Invalidate()
	_, err = v.Get()
	require.Error(t, err)
	assert.False(t, v.IsCalculated())

	prev, fresh := v.Peek()
	assert.Equal(t, "ok", prev)
	assert.False(t, fresh)

	fail = false
	got, err := v.Get()
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestValueInvalidatedDuringCalculation(t *testing.T) {
	t.Parallel()

	var v *lazy.Value[int]
	calls := 0
	v = lazy.New(func() (int, error) {
		calls++
		if calls == 1 {
			v.Invalidate()
		}
		return calls, nil
	})

	got, err := v.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.False(t, v.IsCalculated())

	got, err = v.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.True(t, v.IsCalculated())
}

func TestValueFreeze(t *testing.T) {
	t.Parallel()

	calls := 0
	v := lazy.New(func() (int, error) {
		calls++
		return calls, nil
	})
	_, _ = v.Get()

	v.Freeze()
	v.Update()
	got, _ := v.Get()
	assert.Equal(t, 1, got)

	assert.True(t, v.Unfreeze())
	got, _ = v.Get()
	assert.Equal(t, 2, got)

	got, err := v.Recalculate()
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestValueConcurrentGet(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	v := lazy.New(func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return 42, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Get()
			assert.NoError(t, err)
			assert.Equal(t, 42, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}
