// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"sync/atomic"

	"code.hybscloud.com/cq/hp"
	"code.hybscloud.com/spin"
)

// msqNode is a Michael–Scott queue node.
type msqNode[T any] struct {
	item T
	next atomic.Pointer[msqNode[T]]
}

const (
	msqHPTail = 0
	msqHPHead = 1
)

// MSQ is a lock-free multi-producer multi-consumer FIFO queue.
//
// Based on the Michael–Scott queue (§4.D): a singly linked list with
// a sentinel head. Enqueue links a new node onto the observed tail
// and then helps swing tail forward; Dequeue CASes head forward past
// the sentinel. Reclamation uses plain hazard pointers ([hp.Domain]),
// two slots per thread (one to protect tail, one to protect head).
//
// Linearisation points: the successful next-CAS for Enqueue, the
// successful head-CAS for Dequeue. Progress: lock-free for both.
type MSQ[T any] struct {
	_    pad
	head atomic.Pointer[msqNode[T]]
	_    pad
	tail atomic.Pointer[msqNode[T]]
	_    pad

	maxThreads int
	hazard     *hp.Domain[msqNode[T]]
}

// NewMSQ creates an empty MSQ sized for maxThreads threads.
func NewMSQ[T any](maxThreads int) *MSQ[T] {
	if maxThreads < 1 {
		panic("cq: maxThreads must be >= 1")
	}
	sentinel := &msqNode[T]{}
	q := &MSQ[T]{
		maxThreads: maxThreads,
		hazard:     hp.New[msqNode[T]](maxThreads, 2),
	}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Cap returns the maxThreads the queue was constructed with.
func (q *MSQ[T]) Cap() int { return q.maxThreads }

// ClassName returns "MSQ".
func (q *MSQ[T]) ClassName() string { return "MSQ" }

// Enqueue adds item to the tail of the queue. Never blocks; returns
// ErrInvalidArgument if item is nil.
//
// Progress: lock-free. Linearises at the successful next-CAS.
func (q *MSQ[T]) Enqueue(item *T, tid int) error {
	if item == nil {
		return ErrInvalidArgument
	}
	n := &msqNode[T]{item: *item}

	sw := spin.Wait{}
	for {
		t := q.hazard.Protect(tid, msqHPTail, &q.tail)
		next := t.next.Load()
		if next == nil {
			if t.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(t, n)
				q.hazard.Clear(tid)
				return nil
			}
		} else {
			q.tail.CompareAndSwap(t, next)
		}
		sw.Once()
	}
}

// Dequeue removes and returns the item at the head of the queue.
// Returns (zero-value, false) if the queue was empty.
//
// Progress: lock-free. Linearises at the successful head-CAS.
func (q *MSQ[T]) Dequeue(tid int) (T, bool) {
	sw := spin.Wait{}
	for {
		h := q.hazard.Protect(tid, msqHPHead, &q.head)
		t := q.tail.Load()
		next := h.next.Load()

		if h == t {
			if next == nil {
				q.hazard.Clear(tid)
				var zero T
				return zero, false
			}
			q.tail.CompareAndSwap(t, next)
			sw.Once()
			continue
		}

		item := next.item
		if q.head.CompareAndSwap(h, next) {
			q.hazard.Clear(tid)
			q.hazard.Retire(tid, h)
			return item, true
		}
		sw.Once()
	}
}
