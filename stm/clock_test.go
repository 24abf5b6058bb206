// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClockRolloverPreservesCommittedState sets the global clock a few
// ticks below versionMax and drives it the rest of the way with
// IncClock (§8 boundary-behaviour test), then starts a fresh
// transaction to confirm Start's rollover check fires quiesceBarrier
// and that prior committed state survives the reset.
func TestClockRolloverPreservesCommittedState(t *testing.T) {
	rt := New(WithMaxThreads(1))
	th := rt.InitThread(0)

	var x int64
	require.NoError(t, Atomic(th, Attr{}, func(tok Token) error {
		Store(tok, &x, 1)
		return nil
	}))

	limit := versionMax(rt.cfg.MaxThreads)
	rt.clock.StoreRelease(limit - 8)
	for rt.Clock() < limit {
		rt.IncClock()
	}
	require.GreaterOrEqual(t, rt.Clock(), limit)

	require.NoError(t, Atomic(th, Attr{}, func(tok Token) error {
		v := Load(tok, &x)
		Store(tok, &x, v+1)
		return nil
	}))

	require.Equal(t, int64(2), x, "committed state must survive the rollover")
	require.Less(t, rt.Clock(), limit, "Start must have rolled the clock back via quiesceBarrier")
}

// TestClockRolloverUnblocksConcurrentThreads runs the rollover with two
// registered threads: th1's transaction, started from another
// goroutine, triggers the barrier while th0 is registered but not
// inside a transaction, so the barrier must not wait on th0; th0 then
// transacts against the reset clock.
func TestClockRolloverUnblocksConcurrentThreads(t *testing.T) {
	rt := New(WithMaxThreads(2))
	th0 := rt.InitThread(0)
	th1 := rt.InitThread(1)

	var y int64
	require.NoError(t, Atomic(th1, Attr{}, func(tok Token) error {
		Store(tok, &y, 5)
		return nil
	}))

	limit := versionMax(rt.cfg.MaxThreads)
	rt.clock.StoreRelease(limit - 8)
	for rt.Clock() < limit {
		rt.IncClock()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Atomic(th1, Attr{}, func(tok Token) error {
			v := Load(tok, &y)
			Store(tok, &y, v+1)
			return nil
		})
	}()
	<-done

	require.NoError(t, Atomic(th0, Attr{}, func(tok Token) error {
		Load(tok, &y)
		return nil
	}))
	require.Less(t, rt.Clock(), limit)
}
