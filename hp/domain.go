// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hp

import "sync/atomic"

// wordsPerLine is how many pointer-sized words fill one 64-byte cache
// line; per-thread hazard rows are padded to at least this width to
// avoid false sharing between adjacent threads' slots.
const wordsPerLine = 64 / 8

// FindFunc is an application-supplied predicate consulted by Retire in
// addition to the hazard-slot scan. It must return true if ptr is
// still reachable from some other re-usable piece of state the
// reclaimer cannot see (e.g. SimQueue's installed EnqState.tail),
// which prevents the node from being freed this round.
//
// FindFunc distinguishes the SimQueue-specific reclaimer (§4.C) from
// the plain hazard-pointer domain (§4.B): passing one to [New] via
// [WithPredicate] gives the §4.C behaviour, omitting it gives §4.B.
type FindFunc[T any] func(ptr *T) bool

// Domain is a hazard-pointer reclamation domain for *T nodes.
//
// It is safe for concurrent use by up to maxThreads goroutines, each
// identified by a dense tid in [0, maxThreads), and each using up to
// maxSlots hazard slots of its own (addressed by a dense slot index in
// [0, maxSlots)). Both bounds are supplied to [New] rather than fixed
// at compile time, resolving spec.md §9's Open Question about the
// source's hard-coded 128-thread limit.
//
// Hazard slots are stored as [atomic.Pointer] rather than the raw
// atomic words the rest of this codebase's ambient stack
// ([code.hybscloud.com/atomix]) provides: a slot is, by construction,
// sometimes the *only* surviving reference to a retired-but-still-
// protected node, and the Go garbage collector does not trace a bare
// integer word. Using the standard library's GC-visible atomic
// pointer here is a deliberate, documented deviation from the
// teacher's atomics idiom — the same kind of safety-motivated
// deviation spec.md §9 itself calls out for the source's
// signal-handler scheme.
type Domain[T any] struct {
	maxThreads int
	maxSlots   int
	stride     int // slots per thread row, >= maxSlots, padded to a cache line
	threshold  int // R: retired-list length that triggers a scan; 0 = scan every retire

	find FindFunc[T]

	hp      []atomic.Pointer[T] // [thread*stride + slot]
	retired [][]*T              // per-thread retired lists; only the owning thread mutates its row
}

// Option configures a Domain at construction.
type Option[T any] func(*Domain[T])

// WithPredicate installs the application-level reachability predicate
// consulted by Retire (§4.C). Without this option, Retire only
// consults the hazard-slot table (§4.B).
func WithPredicate[T any](find FindFunc[T]) Option[T] {
	return func(d *Domain[T]) { d.find = find }
}

// WithRetireThreshold sets R, the number of entries a thread's
// retired list may hold before Retire performs a reclamation scan.
// The default, matching the source, is 0: scan on every retirement.
func WithRetireThreshold[T any](r int) Option[T] {
	return func(d *Domain[T]) { d.threshold = r }
}

// New creates a hazard-pointer domain sized for maxThreads threads,
// each using up to maxSlots hazard slots.
func New[T any](maxThreads, maxSlots int, opts ...Option[T]) *Domain[T] {
	if maxThreads < 1 {
		panic("hp: maxThreads must be >= 1")
	}
	if maxSlots < 1 {
		panic("hp: maxSlots must be >= 1")
	}
	stride := maxSlots
	if stride < wordsPerLine {
		stride = wordsPerLine
	}
	d := &Domain[T]{
		maxThreads: maxThreads,
		maxSlots:   maxSlots,
		stride:     stride,
		hp:         make([]atomic.Pointer[T], maxThreads*stride),
		retired:    make([][]*T, maxThreads),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Domain[T]) slot(tid, i int) *atomic.Pointer[T] {
	return &d.hp[tid*d.stride+i]
}

// Protect repeatedly reads *source, publishing the observed value to
// the given hazard slot, until two consecutive reads agree. Returns
// the protected pointer, or nil if the source is currently nil.
//
// Progress: lock-free.
func (d *Domain[T]) Protect(tid, i int, source *atomic.Pointer[T]) *T {
	var prev *T
	for {
		ret := source.Load()
		if ret == nil {
			d.slot(tid, i).Store(nil)
			return nil
		}
		if ret == prev {
			return ret
		}
		d.slot(tid, i).Store(ret)
		prev = ret
	}
}

// ProtectPtr unconditionally publishes p to the given hazard slot.
// The caller vouches that p is currently valid (e.g. it was just read
// from a source the caller already holds some other protection for).
//
// Progress: wait-free.
func (d *Domain[T]) ProtectPtr(tid, i int, p *T) *T {
	d.slot(tid, i).Store(p)
	return p
}

// Clear releases every hazard slot owned by tid.
//
// Progress: wait-free.
func (d *Domain[T]) Clear(tid int) {
	for i := 0; i < d.maxSlots; i++ {
		d.slot(tid, i).Store(nil)
	}
}

// ClearOne releases a single hazard slot owned by tid.
//
// Progress: wait-free.
func (d *Domain[T]) ClearOne(tid, i int) {
	d.slot(tid, i).Store(nil)
}

// Retire appends p to tid's retired list, then scans that list and
// drops any entry that is no longer named by any thread's hazard slot
// and — if a predicate was installed — no longer reported reachable
// by it. A dropped entry becomes ordinary garbage: once nothing else
// references it, the collector reclaims it; there is no explicit free
// in a tracing-GC runtime.
//
// Progress: wait-free bounded, linear in threads × slots × the
// retired-list length.
func (d *Domain[T]) Retire(tid int, p *T) {
	list := append(d.retired[tid], p)
	if len(list) <= d.threshold {
		d.retired[tid] = list
		return
	}
	kept := list[:0]
	for _, obj := range list {
		if d.find != nil && d.find(obj) {
			kept = append(kept, obj)
			continue
		}
		if d.isHazardous(obj) {
			kept = append(kept, obj)
			continue
		}
	}
	d.retired[tid] = kept
}

func (d *Domain[T]) isHazardous(obj *T) bool {
	for t := 0; t < d.maxThreads; t++ {
		for i := 0; i < d.maxSlots; i++ {
			if d.slot(t, i).Load() == obj {
				return true
			}
		}
	}
	return false
}
