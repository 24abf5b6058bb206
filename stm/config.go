// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

// Design selects which commit/load/store strategy a Runtime uses.
// The source implements these as three parallel engines selected by
// a compile-time #ifdef over one shared descriptor/lock-table/set
// layout (stm_wbetl.h, stm_wt.h, stm_wbctl.h over stm_internal.h);
// collapsing that into a runtime-selected strategy value is a
// deliberate redesign, recorded in DESIGN.md, since Go has no
// equivalent to compiling three variants of the same translation
// unit and idiomatically prefers a value over a build-tag matrix
// here.
type Design int

const (
	// WriteBackETL is write-back encounter-time locking: locks are
	// acquired as addresses are first written, memory is updated at
	// commit. The default design, matching the source.
	WriteBackETL Design = iota
	// WriteThrough updates memory immediately at each Store and
	// undoes it on abort; locks are still acquired encounter-time.
	WriteThrough
	// WriteBackCTL defers lock acquisition to commit time, taking
	// every write's lock in reverse write-set order before
	// validating and applying.
	WriteBackCTL
)

func (d Design) String() string {
	switch d {
	case WriteBackETL:
		return "write-back-etl"
	case WriteThrough:
		return "write-through"
	case WriteBackCTL:
		return "write-back-ctl"
	default:
		return "unknown"
	}
}

// ContentionPolicy selects the decision function invoked when a
// transaction encounters a lock held by another (§4.F Contention).
type ContentionPolicy int

const (
	// Suicide always aborts the encountering transaction.
	Suicide ContentionPolicy = iota
	// Delay aborts the encountering transaction only after spinning
	// briefly on the contended lock, hoping it frees up first.
	Delay
	// Backoff spins a pseudo-random number of iterations (fewer than
	// 1024) before retrying. The generator state lives in each
	// thread's transaction descriptor and starts at zero; the delay
	// range does not grow with repeated conflicts.
	Backoff
	// Modular is a simplified stand-in for the source's karma /
	// aggressive / timestamp policy trio: the older transaction (by
	// start time) wins, and marks the younger one killed so it aborts
	// at its next safe point. See DESIGN.md for why the full trio was
	// not carried over.
	Modular
)

func (c ContentionPolicy) String() string {
	switch c {
	case Suicide:
		return "suicide"
	case Delay:
		return "delay"
	case Backoff:
		return "backoff"
	case Modular:
		return "modular"
	default:
		return "unknown"
	}
}

// Irrevocability levels for Attr.Irrevocable.
type Irrevocability int

const (
	IrrevocabilityNone Irrevocability = iota
	// IrrevocabilityParallel acquires the process-wide single-writer
	// flag but lets other transactions keep running.
	IrrevocabilityParallel
	// IrrevocabilitySerial additionally drives the quiescence barrier
	// to park every other active transaction first.
	IrrevocabilitySerial
)

// Config configures a Runtime. Construct one via New's functional
// options rather than directly — the zero value is not usable.
type Config struct {
	MaxThreads int
	Design     Design
	CM         ContentionPolicy
	// LockBits is log2 of the lock table's stripe count.
	LockBits uint
}

// Option configures a Runtime at construction.
type Option func(*Config)

// WithMaxThreads bounds the number of threads that may call
// Runtime.InitThread, and the headroom reserved before the global
// clock must roll over through the quiescence barrier.
func WithMaxThreads(n int) Option {
	return func(c *Config) { c.MaxThreads = n }
}

// WithDesign selects the commit/load/store strategy. Default
// WriteBackETL.
func WithDesign(d Design) Option {
	return func(c *Config) { c.Design = d }
}

// WithContentionManager selects the contention management policy.
// Default Delay.
func WithContentionManager(cm ContentionPolicy) Option {
	return func(c *Config) { c.CM = cm }
}

// WithLockBits sets the lock table size to 1<<bits stripes. Default
// 20 (one million stripes).
func WithLockBits(bits uint) Option {
	return func(c *Config) { c.LockBits = bits }
}

func defaultConfig() Config {
	return Config{
		MaxThreads: 64,
		Design:     WriteBackETL,
		CM:         Delay,
		LockBits:   20,
	}
}

// Attr configures one atomic block.
type Attr struct {
	ReadOnly    bool
	Irrevocable Irrevocability
	// NoRetry makes Atomic return the AbortError instead of retrying
	// when the block aborts.
	NoRetry bool
	// NoExtend disables widening tx.end on a stale read; any read
	// observing a too-new version aborts immediately instead.
	NoExtend bool
}
