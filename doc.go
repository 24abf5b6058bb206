// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cq provides linearizable, unbounded, multi-producer
// multi-consumer FIFO queues with published progress guarantees,
// together with the memory-reclamation and software-transactional-
// memory subsystems they are built on.
//
// # Queue kinds
//
//   - [NewMSQ]: a lock-free Michael–Scott linked-list queue,
//     reclaimed with plain hazard pointers ([code.hybscloud.com/cq/hp]).
//   - [NewSimQueue]: a wait-free bounded (O(threads) per op) combining
//     queue. Producers and consumers publish a request and help apply
//     a batch of outstanding requests through a single CAS.
//   - [NewSTMQueue]: a sentinel-headed linked queue whose Enqueue and
//     Dequeue are each a single atomic block over
//     [code.hybscloud.com/cq/stm].
//
// All three satisfy [Queue].
//
// # Basic usage
//
//	q := cq.NewMSQ[Event](maxThreads)
//
//	// Producer (any of the maxThreads goroutines, identified by tid)
//	ev := Event{ID: 1}
//	if err := q.Enqueue(&ev, tid); err != nil {
//	    // ev was nil
//	}
//
//	// Consumer
//	ev, ok := q.Dequeue(tid)
//	if ok {
//	    process(ev)
//	}
//
// # Thread identity
//
// Every operation takes an explicit tid in [0, maxThreads). Unlike a
// goroutine ID, tid is a dense, caller-assigned index: it addresses
// per-thread hazard-pointer rows, SimQueue announce slots, and (for
// the STM queue) the thread registry. Callers are responsible for
// handing out distinct, stable tids — e.g. one per long-lived worker
// goroutine in a fixed-size pool.
//
// # Choosing a kind
//
// MSQ is the simplest and fastest under low contention; its Dequeue
// is the only place across all three kinds where throughput is
// limited by a single contended CAS. SimQueue trades a higher
// per-operation constant (every thread helps apply every other
// thread's outstanding request) for a wait-free bound: no thread can
// be starved regardless of scheduler behaviour. The STM-backed queue
// exists to exercise [code.hybscloud.com/cq/stm] end-to-end and as a
// base for composing a queue operation with other transactional
// state in the same atomic block — plain FIFO throughput is not its
// purpose.
//
// # Memory reclamation
//
// MSQ and SimQueue reclaim retired nodes through
// [code.hybscloud.com/cq/hp]. SimQueue's reclaimer additionally
// consults an application-level predicate before freeing: a node may
// still be referenced as the tail of the currently installed
// EnqState, which no hazard pointer alone detects (§4.E). The
// STM-backed queue needs no separate reclaimer: node lifetime follows
// STM commit/abort.
//
// # Race detection
//
// As with the teacher this package descends from, Go's race detector
// cannot observe happens-before relationships established purely
// through atomic memory orderings on separate variables. The
// concurrent FIFO-per-producer stress tests for all three queue kinds
// (MSQ's tail-swing CAS, SimQueue's combining-pointer generation
// scheme, the STM queue's lock-word reinterpretation) are gated behind
// [RaceEnabled], matching the convention this package inherited.
package cq
