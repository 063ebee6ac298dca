package snooze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harrisonrobin/eisen/pkg/clock"
)

func TestSnoozeExpiry(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	r := NewRegistry(clk)

	r.Snooze(7, 15)
	assert.True(t, r.IsSnoozed(7, start))
	assert.True(t, r.IsSnoozed(7, start.Add(14*time.Minute+59*time.Second)))
	assert.True(t, r.IsSnoozed(7, start.Add(15*time.Minute)), "expiry instant is still snoozed")
	assert.Equal(t, 1, r.Len())

	assert.False(t, r.IsSnoozed(7, start.Add(15*time.Minute+time.Millisecond)))
	assert.Equal(t, 0, r.Len(), "false path prunes the entry")
}

func TestSnoozeOverwritesAndPrunes(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	r := NewRegistry(clk)

	r.Snooze(1, 5)
	r.Snooze(2, 60)
	clk.Advance(10 * time.Minute)

	// Snoozing again sweeps the stale entry for 1.
	r.Snooze(2, 1)
	_, ok := r.Until(1)
	assert.False(t, ok)

	until, ok := r.Until(2)
	assert.True(t, ok)
	assert.Equal(t, start.Add(11*time.Minute), until)
}

func TestUnknownIDNotSnoozed(t *testing.T) {
	r := NewRegistry(nil)
	assert.False(t, r.IsSnoozed(42, time.Now()))
}
