// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/cq/hp"
	"code.hybscloud.com/spin"
)

// simNode is a SimQueue list node. item holds a pointer to a boxed
// copy of the enqueued value so that helper threads can republish it
// by pointer, without copying T itself, the same way the source
// threads a raw item pointer through helped Node objects.
type simNode[T any] struct {
	item atomic.Pointer[T]
	next atomic.Pointer[simNode[T]]
}

// enqState is one generation of the shared enqueue combining state
// (§4.E). tail is the node the list's tail pointed to before this
// generation's batch was spliced in; nextNode/nextTail bracket the
// batch itself, left unlinked until some later generation's helper
// performs the lazy fix-up.
type enqState[T any] struct {
	tail     atomic.Pointer[simNode[T]]
	nextNode atomic.Pointer[simNode[T]]
	nextTail atomic.Pointer[simNode[T]]
	applied  []atomix.Bool
}

// deqState is one generation of the shared dequeue combining state.
// items[tid] is the value thread tid's request consumed this
// generation, or nil if the queue ran dry before reaching it.
type deqState[T any] struct {
	head    atomic.Pointer[simNode[T]]
	items   []atomic.Pointer[T]
	applied []atomix.Bool
}

func packPtr(seq uint64, idx int) uint64 { return seq<<16 | uint64(uint16(idx)) }
func unpackPtr(v uint64) (seq uint64, idx int) { return v >> 16, int(uint16(v)) }

const simHPSlot = 0

// SimQueue is a wait-free multi-producer multi-consumer FIFO queue
// built on request-batch combining (§4.E): a thread publishes its
// enqueue or dequeue request, then a sequence of CAS attempts on a
// single shared pointer hand the combiner role from one arriving
// thread to the next, each one applying every request it observes
// still outstanding before trying to install its batch. A thread
// whose own request a *different* combiner already applied simply
// observes that and returns, without ever becoming combiner itself —
// this is what gives every operation a wait-free bound on the number
// of concurrently contending threads, rather than only lock-freedom.
//
// Reclamation reuses [hp.Domain] with a predicate: a node is retired
// only once it is unreferenced by any thread's hazard slot *and* no
// longer serves as the tail of some still-installed enqueue
// generation (a combiner may lazily link against an older
// generation's recorded tail well after that generation stopped being
// current).
//
// Linearisation points: the CAS that installs a thread's own request
// into the newly combined generation. Progress: wait-free for both
// operations.
type SimQueue[T any] struct {
	_      pad
	enqPtr atomix.Uint64
	_      pad
	deqPtr atomix.Uint64
	_      pad

	maxThreads int
	enqStates  []enqState[T] // len 2*maxThreads, fixed for the domain's lifetime
	deqStates  []deqState[T]

	items     []atomic.Pointer[T] // per-thread announced enqueue payload
	enqueuers []atomix.Bool       // per-thread enqueue request toggle
	dequeuers []atomix.Bool       // per-thread dequeue request toggle

	pool [][]*simNode[T] // pool[tid] is scratch nodes for tid's own combining batch

	hazard *hp.Domain[simNode[T]]
}

// NewSimQueue creates an empty SimQueue sized for maxThreads threads.
func NewSimQueue[T any](maxThreads int) *SimQueue[T] {
	if maxThreads < 1 {
		panic("cq: maxThreads must be >= 1")
	}
	q := &SimQueue[T]{maxThreads: maxThreads}
	sentinel := &simNode[T]{}

	n := 2 * maxThreads
	q.enqStates = make([]enqState[T], n)
	q.deqStates = make([]deqState[T], n)
	for i := range q.enqStates {
		q.enqStates[i].tail.Store(sentinel)
		q.enqStates[i].applied = make([]atomix.Bool, maxThreads)
	}
	q.enqStates[0].nextTail.Store(sentinel)
	for i := range q.deqStates {
		q.deqStates[i].head.Store(sentinel)
		q.deqStates[i].applied = make([]atomix.Bool, maxThreads)
		q.deqStates[i].items = make([]atomic.Pointer[T], maxThreads)
	}

	q.items = make([]atomic.Pointer[T], maxThreads)
	q.enqueuers = make([]atomix.Bool, maxThreads)
	q.dequeuers = make([]atomix.Bool, maxThreads)

	q.pool = make([][]*simNode[T], maxThreads)
	for t := range q.pool {
		row := make([]*simNode[T], maxThreads)
		for j := range row {
			row[j] = &simNode[T]{}
		}
		q.pool[t] = row
	}

	q.hazard = hp.New[simNode[T]](maxThreads, 1, hp.WithPredicate(func(n *simNode[T]) bool {
		for i := range q.enqStates {
			if q.enqStates[i].tail.Load() == n {
				return true
			}
		}
		return false
	}))

	q.enqPtr.StoreRelease(packPtr(0, 0))
	q.deqPtr.StoreRelease(packPtr(0, 0))
	return q
}

// Cap returns the maxThreads the queue was constructed with.
func (q *SimQueue[T]) Cap() int { return q.maxThreads }

// ClassName returns "SimQueue".
func (q *SimQueue[T]) ClassName() string { return "SimQueue" }

// Enqueue adds item to the tail of the queue. Never blocks; returns
// ErrInvalidArgument if item is nil.
//
// Progress: wait-free. Linearises when tid's request is applied into
// a combined generation, whether or not this call is the one that
// installs it.
func (q *SimQueue[T]) Enqueue(item *T, tid int) error {
	if item == nil {
		return ErrInvalidArgument
	}
	boxed := new(T)
	*boxed = *item
	q.items[tid].Store(boxed)
	newRequest := !q.enqueuers[tid].LoadRelaxed()
	q.enqueuers[tid].StoreRelease(newRequest)

	// Bounded to 3 attempts (spec.md §4.E step 2): this, not the CAS
	// retry alone, is what makes Enqueue wait-free bounded rather than
	// merely lock-free — any open request is guaranteed applied by
	// some combiner's successful CAS within this many rounds.
	sw := spin.Wait{}
	for iter := 0; iter < 3; iter++ {
		lp := q.enqPtr.LoadAcquire()
		seq, idx := unpackPtr(lp)
		lstate := &q.enqStates[idx]

		ltail := q.hazard.ProtectPtr(tid, simHPSlot, lstate.tail.Load())
		lnext := lstate.nextNode.Load()
		lnextTail := lstate.nextTail.Load()
		if q.enqPtr.LoadAcquire() != lp {
			sw.Once()
			continue
		}

		if ltail.next.Load() != lnext {
			ltail.next.Store(lnext)
		}

		if lstate.applied[tid].LoadAcquire() == newRequest && q.enqPtr.LoadAcquire() == lp {
			break
		}

		myIdx := 2 * tid
		if idx == myIdx {
			myIdx++
		}
		myState := &q.enqStates[myIdx]

		var first, node *simNode[T]
		numNodes := 0
		for j := 0; j < q.maxThreads; j++ {
			enqj := q.enqueuers[j].LoadAcquire()
			myState.applied[j].StoreRelaxed(enqj)
			if enqj == lstate.applied[j].LoadAcquire() {
				continue
			}
			prev := node
			node = q.pool[tid][numNodes]
			numNodes++
			node.item.Store(q.items[j].Load())
			node.next.Store(nil)
			if first == nil {
				first = node
			} else {
				prev.next.Store(node)
			}
		}

		if q.enqPtr.LoadAcquire() != lp {
			sw.Once()
			continue
		}

		myState.tail.Store(lnextTail)
		myState.nextNode.Store(first)
		myState.nextTail.Store(node)

		newPtr := packPtr(seq+1, myIdx)
		if q.enqPtr.CompareAndSwapAcqRel(lp, newPtr) {
			for k := 0; k < numNodes; k++ {
				q.pool[tid][k] = &simNode[T]{}
			}
			// The next round links this batch behind its tail and
			// then observes the request applied.
			continue
		}
		sw.Once()
	}
	q.hazard.ClearOne(tid, simHPSlot)
	return nil
}

// Dequeue removes and returns the item at the head of the queue.
// Returns (zero-value, false) if the queue was empty when tid's
// request was applied.
//
// Progress: wait-free. Linearises when tid's request is applied into
// a combined generation, whether or not this call is the one that
// installs it.
func (q *SimQueue[T]) Dequeue(tid int) (T, bool) {
	newRequest := !q.dequeuers[tid].LoadRelaxed()
	q.dequeuers[tid].StoreRelease(newRequest)

	// Bounded to 2 attempts (spec.md §4.E step 2): the wait-free bound
	// on Dequeue, matching Enqueue's 3-attempt bound above.
	sw := spin.Wait{}
	for iter := 0; iter < 2; iter++ {
		lp := q.deqPtr.LoadAcquire()
		seq, idx := unpackPtr(lp)
		lstate := &q.deqStates[idx]

		if lstate.applied[tid].LoadAcquire() == newRequest && q.deqPtr.LoadAcquire() == lp {
			break
		}

		newHead := q.hazard.ProtectPtr(tid, simHPSlot, lstate.head.Load())
		if q.deqPtr.LoadAcquire() != lp {
			sw.Once()
			continue
		}

		myIdx := 2 * tid
		if idx == myIdx {
			myIdx++
		}
		myState := &q.deqStates[myIdx]

		stale := false
		for j := 0; j < q.maxThreads; j++ {
			applied := lstate.applied[j].LoadAcquire()
			if q.dequeuers[j].LoadAcquire() == applied {
				myState.items[j].Store(lstate.items[j].Load())
				myState.applied[j].StoreRelaxed(applied)
				continue
			}
			myState.applied[j].StoreRelaxed(!applied)
			next := newHead.next.Load()
			if next == nil {
				myState.items[j].Store(nil)
				continue
			}
			newHead = q.hazard.ProtectPtr(tid, simHPSlot, next)
			if q.deqPtr.LoadAcquire() != lp {
				stale = true
				break
			}
			myState.items[j].Store(newHead.item.Load())
		}
		if stale || q.deqPtr.LoadAcquire() != lp {
			sw.Once()
			continue
		}

		oldHead := lstate.head.Load()
		myState.head.Store(newHead)

		newPtr := packPtr(seq+1, myIdx)
		if q.deqPtr.CompareAndSwapAcqRel(lp, newPtr) {
			for n := oldHead; n != newHead; {
				next := n.next.Load()
				q.hazard.Retire(tid, n)
				n = next
			}
			break
		}
		sw.Once()
	}
	q.hazard.ClearOne(tid, simHPSlot)

	_, finalIdx := unpackPtr(q.deqPtr.LoadAcquire())
	result := q.deqStates[finalIdx].items[tid].Load()
	if result == nil {
		var zero T
		return zero, false
	}
	return *result, true
}
