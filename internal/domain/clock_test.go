package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		defer SetClock(nil)

		assert.Equal(t, fixedTime, Now())
	})

	t.Run("now is UTC", func(t *testing.T) {
		local := time.Date(2024, 1, 1, 8, 0, 0, 0, time.FixedZone("AST", -4*3600))
		SetClock(clockwork.NewFakeClockAt(local))
		defer SetClock(nil)

		assert.Equal(t, time.UTC, Now().Location())
		assert.True(t, local.Equal(Now()))
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)

		assert.True(t, time.Since(Now()) < time.Second)
	})
}
