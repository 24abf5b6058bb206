// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMSQEmptyDequeue(t *testing.T) {
	q := NewMSQ[int](2)
	_, ok := q.Dequeue(0)
	require.False(t, ok)
}

func TestMSQNilEnqueue(t *testing.T) {
	q := NewMSQ[int](2)
	require.ErrorIs(t, q.Enqueue(nil, 0), ErrInvalidArgument)
}

func TestMSQRoundTrip(t *testing.T) {
	q := NewMSQ[string](1)
	v := "hello"
	require.NoError(t, q.Enqueue(&v, 0))
	got, ok := q.Dequeue(0)
	require.True(t, ok)
	require.Equal(t, v, got)

	_, ok = q.Dequeue(0)
	require.False(t, ok)
}

// TestMSQSPSCOrder is seed test #1 from spec.md §8: thread 0 enqueues
// 1..1000, thread 1 dequeues 1000 items; the dequeued sequence must be
// [1..1000].
func TestMSQSPSCOrder(t *testing.T) {
	const n = 1000
	q := NewMSQ[int](2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			v := i
			require.NoError(t, q.Enqueue(&v, 0))
		}
	}()

	got := make([]int, 0, n)
	for len(got) < n {
		if v, ok := q.Dequeue(1); ok {
			got = append(got, v)
		}
	}
	wg.Wait()

	want := make([]int, n)
	for i := range want {
		want[i] = i + 1
	}
	require.Equal(t, want, got)
}

// TestMSQConcurrentFIFOPerProducer exercises the FIFO invariant: each
// producer's own items are dequeued in submission order, and the
// aggregate multiset of dequeued items equals what was enqueued.
func TestMSQConcurrentFIFOPerProducer(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}
	const (
		producers   = 4
		perProducer = 2000
		maxThreads  = producers + 1
	)
	q := NewMSQ[[2]int](maxThreads) // [producerID, sequence]

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := [2]int{tid, i}
				require.NoError(t, q.Enqueue(&v, tid))
			}
		}(p)
	}

	done := make(chan struct{})
	lastSeen := make([]int, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}
	counts := make([]int, producers)
	go func() {
		defer close(done)
		total := producers * perProducer
		seen := 0
		consumerTid := producers
		for seen < total {
			v, ok := q.Dequeue(consumerTid)
			if !ok {
				continue
			}
			require.Greater(t, v[1], lastSeen[v[0]], "FIFO violated for producer %d", v[0])
			lastSeen[v[0]] = v[1]
			counts[v[0]]++
			seen++
		}
	}()

	wg.Wait()
	<-done

	for p := 0; p < producers; p++ {
		require.Equal(t, perProducer, counts[p])
	}
}
