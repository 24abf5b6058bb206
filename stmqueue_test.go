// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSTMQueueEmptyDequeue(t *testing.T) {
	q := NewSTMQueue[int](1)
	_, ok := q.Dequeue(0)
	require.False(t, ok)
}

func TestSTMQueueNilEnqueue(t *testing.T) {
	q := NewSTMQueue[int](1)
	require.ErrorIs(t, q.Enqueue(nil, 0), ErrInvalidArgument)
}

func TestSTMQueueRoundTrip(t *testing.T) {
	q := NewSTMQueue[int](1)
	v := 42
	require.NoError(t, q.Enqueue(&v, 0))
	got, ok := q.Dequeue(0)
	require.True(t, ok)
	require.Equal(t, 42, got)

	_, ok = q.Dequeue(0)
	require.False(t, ok)
}

func TestSTMQueueFIFOOrderSingleThreaded(t *testing.T) {
	const n = 200
	q := NewSTMQueue[int](1)
	for i := 0; i < n; i++ {
		v := i
		require.NoError(t, q.Enqueue(&v, 0))
	}
	for i := 0; i < n; i++ {
		got, ok := q.Dequeue(0)
		require.True(t, ok)
		require.Equal(t, i, got)
	}
	_, ok := q.Dequeue(0)
	require.False(t, ok)
}

func TestSTMQueueClassNameAndCap(t *testing.T) {
	q := NewSTMQueue[int](7)
	require.Equal(t, "STMQueue", q.ClassName())
	require.Equal(t, 7, q.Cap())
}

// TestSTMQueueSPSCOrder is the spec's seed test #1 applied to the
// STM-backed queue: a single producer and single consumer must see
// FIFO order end to end.
func TestSTMQueueSPSCOrder(t *testing.T) {
	const n = 2000
	q := NewSTMQueue[int](2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
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

	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestSTMQueueConcurrentProducersPerProducerFIFO(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if RaceEnabled {
		t.Skip("skip: word-based STM's unsafe.Pointer lock-word reinterpretation uses cross-variable memory ordering")
	}
	const (
		producers  = 4
		perProduce = 2000
		consumers  = 2
		maxThreads = producers + consumers
	)
	q := NewSTMQueue[[2]int](maxThreads)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProduce; i++ {
				v := [2]int{p, i}
				require.NoError(t, q.Enqueue(&v, p))
			}
		}(p)
	}

	var mu sync.Mutex
	lastSeen := make(map[int]int)
	for i := 0; i < producers; i++ {
		lastSeen[i] = -1
	}
	total := producers * perProduce
	done := make(chan struct{})

	var drained sync.WaitGroup
	for c := 0; c < consumers; c++ {
		drained.Add(1)
		go func(tid int) {
			defer drained.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				v, ok := q.Dequeue(producers + tid)
				if !ok {
					continue
				}
				mu.Lock()
				require.Greater(t, v[1], lastSeen[v[0]])
				lastSeen[v[0]] = v[1]
				mu.Unlock()
			}
		}(c)
	}

	wg.Wait()
	for {
		mu.Lock()
		sum := 0
		for i := 0; i < producers; i++ {
			sum += lastSeen[i] + 1
		}
		mu.Unlock()
		if sum == total {
			break
		}
	}
	close(done)
	drained.Wait()
}
