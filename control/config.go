// Package control holds the server's hot-reloadable housekeeping
// knobs: the ping/reap/no-responding intervals spec.md §4.5 names as
// fixed constants but that an operator may want to tune without a
// restart.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package control

import (
	"sync"
	"time"

	"github.com/purc-tools/purcrdr/constants"
)

// HousekeepingConfig is the set of tunable intervals the server's
// dispatch-goroutine tickers run on. Zero fields are not meaningful;
// NewConfigStore seeds every field from constants.
type HousekeepingConfig struct {
	ReapDanglingPeriod      time.Duration
	CheckNoRespondingPeriod time.Duration
	MaxNoRespondingTime     time.Duration
	MaxPingTime             time.Duration
}

// ConfigStore is a thread-safe holder for the current
// HousekeepingConfig with reload-listener propagation, adapted from
// the teacher's control.ConfigStore (generic map/listener store)
// narrowed to this module's one actual dynamic-config use case.
type ConfigStore struct {
	mu        sync.RWMutex
	cfg       HousekeepingConfig
	listeners []func(HousekeepingConfig)
}

// NewConfigStore returns a store seeded with the spec's default
// housekeeping intervals.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		cfg: HousekeepingConfig{
			ReapDanglingPeriod:      constants.ReapDanglingPeriod,
			CheckNoRespondingPeriod: constants.CheckNoRespondingPeriod,
			MaxNoRespondingTime:     constants.MaxNoRespondingTime,
			MaxPingTime:             constants.MaxPingTime,
		},
	}
}

// GetSnapshot returns the current HousekeepingConfig by value.
func (cs *ConfigStore) GetSnapshot() HousekeepingConfig {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cfg
}

// SetConfig replaces zero-valued fields of next with the store's
// current values, stores the merged result, and dispatches every
// registered reload listener with the new snapshot.
func (cs *ConfigStore) SetConfig(next HousekeepingConfig) {
	cs.mu.Lock()
	merged := cs.cfg
	if next.ReapDanglingPeriod != 0 {
		merged.ReapDanglingPeriod = next.ReapDanglingPeriod
	}
	if next.CheckNoRespondingPeriod != 0 {
		merged.CheckNoRespondingPeriod = next.CheckNoRespondingPeriod
	}
	if next.MaxNoRespondingTime != 0 {
		merged.MaxNoRespondingTime = next.MaxNoRespondingTime
	}
	if next.MaxPingTime != 0 {
		merged.MaxPingTime = next.MaxPingTime
	}
	cs.cfg = merged
	listeners := append([]func(HousekeepingConfig){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(merged)
	}
}

// OnReload registers fn to be called, synchronously on the caller of
// SetConfig, with every subsequent merged HousekeepingConfig. Unlike
// the teacher's OnReload (which fires each listener on its own
// goroutine), this store calls listeners inline: the server's own
// listener only hands the snapshot to its Run loop with a non-blocking
// channel send, and an inline call keeps reload ordering deterministic
// for tests.
func (cs *ConfigStore) OnReload(fn func(HousekeepingConfig)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
