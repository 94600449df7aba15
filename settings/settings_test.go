package settings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/settings"
	"github.com/meenmo/fralib/utils"
)

func TestEvaluationDateNotifies(t *testing.T) {
	t.Parallel()

	ctx := settings.New()
	notified := 0
	ctx.Register(observer.ObserverFunc(func() { notified++ }))

	d := utils.MustParseDate("2025-03-14")
	ctx.SetEvaluationDate(d)
	ctx.SetEvaluationDate(d)
	assert.Equal(t, d, ctx.EvaluationDate())
	assert.Equal(t, 1, notified)

	ctx.ResetEvaluationDate()
	assert.Equal(t, 2, notified)
	assert.False(t, ctx.EvaluationDate().IsZero())
}

func TestHasOccurred(t *testing.T) {
	t.Parallel()

	ctx := settings.New()
	ctx.SetEvaluationDate(utils.MustParseDate("2025-03-14"))

	assert.True(t, ctx.HasOccurred(utils.MustParseDate("2025-03-13")))
	assert.True(t, ctx.HasOccurred(utils.MustParseDate("2025-03-14")))
	assert.True(t, ctx.HasOccurred(time.Date(2025, 3, 14, 17, 30, 0, 0, time.UTC)))
	assert.False(t, ctx.HasOccurred(utils.MustParseDate("2025-03-15")))

	ctx.SetIncludeReferenceDateEvents(true)
	assert.True(t, ctx.HasOccurred(utils.MustParseDate("2025-03-13")))
	assert.False(t, ctx.HasOccurred(utils.MustParseDate("2025-03-14")))
	assert.False(t, ctx.HasOccurred(utils.MustParseDate("2025-03-15")))
}
