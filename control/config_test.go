package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purc-tools/purcrdr/constants"
)

func TestNewConfigStoreSeedsDefaults(t *testing.T) {
	cs := NewConfigStore()
	snap := cs.GetSnapshot()

	assert.Equal(t, constants.ReapDanglingPeriod, snap.ReapDanglingPeriod)
	assert.Equal(t, constants.CheckNoRespondingPeriod, snap.CheckNoRespondingPeriod)
	assert.Equal(t, constants.MaxNoRespondingTime, snap.MaxNoRespondingTime)
	assert.Equal(t, constants.MaxPingTime, snap.MaxPingTime)
}

func TestSetConfigMergesZeroFields(t *testing.T) {
	cs := NewConfigStore()

	cs.SetConfig(HousekeepingConfig{ReapDanglingPeriod: 2 * time.Second})

	snap := cs.GetSnapshot()
	assert.Equal(t, 2*time.Second, snap.ReapDanglingPeriod)
	// Untouched fields keep their previous value rather than zeroing out.
	assert.Equal(t, constants.CheckNoRespondingPeriod, snap.CheckNoRespondingPeriod)
	assert.Equal(t, constants.MaxNoRespondingTime, snap.MaxNoRespondingTime)
	assert.Equal(t, constants.MaxPingTime, snap.MaxPingTime)
}

func TestOnReloadFiresWithMergedConfig(t *testing.T) {
	cs := NewConfigStore()

	var got HousekeepingConfig
	calls := 0
	cs.OnReload(func(next HousekeepingConfig) {
		calls++
		got = next
	})

	cs.SetConfig(HousekeepingConfig{MaxPingTime: 30 * time.Second})

	require.Equal(t, 1, calls)
	assert.Equal(t, 30*time.Second, got.MaxPingTime)
	assert.Equal(t, constants.ReapDanglingPeriod, got.ReapDanglingPeriod)
}

func TestOnReloadMultipleListeners(t *testing.T) {
	cs := NewConfigStore()

	var a, b int
	cs.OnReload(func(HousekeepingConfig) { a++ })
	cs.OnReload(func(HousekeepingConfig) { b++ })

	cs.SetConfig(HousekeepingConfig{MaxNoRespondingTime: time.Minute})
	cs.SetConfig(HousekeepingConfig{MaxNoRespondingTime: 2 * time.Minute})

	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}
