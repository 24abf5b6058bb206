// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import "code.hybscloud.com/cq/stm"

// stmNode is an STMQueue list node. Its fields are ordinary Go
// pointers accessed exclusively through stm.Load/stm.Store — the
// word-based STM manages the raw memory of an otherwise plain struct,
// the same division of labour the source has between the transactional
// memory runtime and the data structure built on top of it.
type stmNode[T any] struct {
	item *T
	next *stmNode[T]
}

// STMQueue is a multi-producer multi-consumer FIFO queue whose
// structural pointer updates run inside software transactions rather
// than raw CAS loops (§4.G).
//
// Every queue gets its own private [stm.Runtime]; its thread
// namespace is independent of any other queue's or the caller's own
// tid assignment elsewhere, since Enqueue/Dequeue register tid with
// that Runtime lazily on first use.
//
// Unlike MSQ and SimQueue, STMQueue needs no hazard-pointer domain:
// an old head node, once a committed transaction has advanced head
// past it, is simply unreferenced Go memory — the collector reclaims
// it the moment nothing else points to it. The source's "transactionally
// free the old head" step, which needs an explicit transactional
// allocator module in a manually-managed language, has no analogue
// to implement here; a tracing garbage collector already provides the
// same safety for free.
//
// Linearisation point: the transaction's commit (the global-clock
// fetch-add in [stm.Runtime]'s write-back path). Progress: lock-free
// with the default write-back encounter-time-locking design.
type STMQueue[T any] struct {
	rt   *stm.Runtime
	head *stmNode[T]
	tail *stmNode[T]

	maxThreads int
}

// NewSTMQueue creates an empty STMQueue sized for maxThreads threads.
func NewSTMQueue[T any](maxThreads int) *STMQueue[T] {
	if maxThreads < 1 {
		panic("cq: maxThreads must be >= 1")
	}
	q := &STMQueue[T]{
		rt:         stm.New(stm.WithMaxThreads(maxThreads)),
		maxThreads: maxThreads,
	}
	th := q.rt.InitThread(0)
	_ = stm.Atomic(th, stm.Attr{}, func(tok stm.Token) error {
		sentinel := &stmNode[T]{}
		stm.Store(tok, &q.head, sentinel)
		stm.Store(tok, &q.tail, sentinel)
		return nil
	})
	return q
}

// Cap returns the maxThreads the queue was constructed with.
func (q *STMQueue[T]) Cap() int { return q.maxThreads }

// ClassName returns "STMQueue".
func (q *STMQueue[T]) ClassName() string { return "STMQueue" }

// Enqueue adds item to the tail of the queue. Never blocks; returns
// ErrInvalidArgument if item is nil. The new node is allocated
// outside the transaction, matching the source's stated efficiency
// concern — only the pointer splice runs transactionally.
func (q *STMQueue[T]) Enqueue(item *T, tid int) error {
	if item == nil {
		return ErrInvalidArgument
	}
	boxed := new(T)
	*boxed = *item
	node := &stmNode[T]{item: boxed}

	th := q.rt.InitThread(tid)
	return stm.Atomic(th, stm.Attr{}, func(tok stm.Token) error {
		tail := stm.Load(tok, &q.tail)
		stm.Store(tok, &tail.next, node)
		stm.Store(tok, &q.tail, node)
		return nil
	})
}

// Dequeue removes and returns the item at the head of the queue.
// Returns (zero-value, false) if the queue was empty.
func (q *STMQueue[T]) Dequeue(tid int) (T, bool) {
	th := q.rt.InitThread(tid)

	var result *T
	_ = stm.Atomic(th, stm.Attr{}, func(tok stm.Token) error {
		head := stm.Load(tok, &q.head)
		tail := stm.Load(tok, &q.tail)
		if head == tail {
			result = nil
			return nil
		}
		next := stm.Load(tok, &head.next)
		stm.Store(tok, &q.head, next)
		result = stm.Load(tok, &next.item)
		return nil
	})

	if result == nil {
		var zero T
		return zero, false
	}
	return *result, true
}
