// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// Runtime owns the shared state one or more Threads transact against:
// the global version clock, the striped lock table, the thread
// registry used for quiescence, and the callback slots (§4.I).
//
// The source establishes this state through an idempotent package-
// level init(); this is expressed here as an explicit constructed
// value instead of an implicit global singleton, so a process can run
// more than one independent STM domain (e.g. one per benchmark) —
// recorded as an Open-Question resolution in DESIGN.md.
type Runtime struct {
	cfg   Config
	clock atomix.Uint64
	locks []atomix.Uint64

	mu      sync.Mutex
	cond    *sync.Cond
	threads []*Thread
	active  []bool
	quiesce atomix.Int64 // 0 idle, 1 preparing, 2 barrier in effect

	irrevocable atomix.Bool

	callbacks callbackSet
}

// New creates a Runtime. The lock table and thread registry are
// sized from cfg.MaxThreads and cfg.LockBits; both are fixed for the
// Runtime's lifetime.
func New(opts ...Option) *Runtime {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	rt := &Runtime{
		cfg:     cfg,
		locks:   make([]atomix.Uint64, 1<<cfg.LockBits),
		threads: make([]*Thread, cfg.MaxThreads),
		active:  make([]bool, cfg.MaxThreads),
	}
	rt.cond = sync.NewCond(&rt.mu)
	return rt
}

// Clock returns the current value of the global version clock.
func (rt *Runtime) Clock() uint64 { return rt.clock.LoadAcquire() }

// IncClock bumps the global version clock by one and returns the new
// value (§6 inc_clock()). Exposed mainly for tests driving the clock
// toward versionMax to exercise the quiescence-barrier rollover; a
// transaction's own commit path bumps the clock itself and never
// needs to call this.
func (rt *Runtime) IncClock() uint64 { return rt.clock.AddAcqRel(1) }
