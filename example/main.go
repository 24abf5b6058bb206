// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command example drives each of cq's three queue kinds through a
// small producer/consumer pipeline, then runs a shared-counter STM
// demo with stm.Stats attached, to prove the package API compiles and
// behaves as documented. It is not a benchmark harness.
package main

import (
	"fmt"
	"os"
	"sync"

	"code.hybscloud.com/cq"
	"code.hybscloud.com/cq/stm"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func main() {
	logger := stumpy.L.New(stumpy.L.WithStumpy())

	runQueue(logger, "MSQ", cq.NewMSQ[int](4))
	runQueue(logger, "SimQueue", cq.NewSimQueue[int](4))
	runQueue(logger, "STMQueue", cq.NewSTMQueue[int](4))

	runSTMDemo(logger)
}

// runQueue fans out producers and a single drainer over q, then logs
// the total observed.
func runQueue(logger *logiface.Logger[*stumpy.Event], name string, q cq.Queue[int]) {
	const producers = 3
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			for i := 1; i <= perProducer; i++ {
				v := i
				if err := q.Enqueue(&v, tid); err != nil {
					fmt.Fprintln(os.Stderr, err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	sum, count := 0, 0
	for count < producers*perProducer {
		if v, ok := q.Dequeue(producers); ok {
			sum += v
			count++
		}
	}

	logger.Info().
		Str("queue", name).
		Int64("items", int64(count)).
		Int64("sum", int64(sum)).
		Log("drained queue")
}

// runSTMDemo wires stm.Stats to a Runtime's callback slots and logs
// the resulting commit/abort counters, demonstrating the diagnostics
// path spec.md keeps off the hot path of every other component.
func runSTMDemo(logger *logiface.Logger[*stumpy.Event]) {
	rt := stm.New(stm.WithMaxThreads(4), stm.WithContentionManager(stm.Delay))
	stats := stm.NewStats(rt)

	var balance int64 = 100

	var wg sync.WaitGroup
	for tid := 0; tid < 4; tid++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			th := rt.InitThread(tid)
			for i := 0; i < 50; i++ {
				err := stm.Atomic(th, stm.Attr{}, func(tok stm.Token) error {
					v := stm.Load(tok, &balance)
					stm.Store(tok, &balance, v+1)
					return nil
				})
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
		}(tid)
	}
	wg.Wait()

	logger.Info().
		Int64("balance", balance).
		Int64("commits", int64(stats.Commits())).
		Int64("aborts", int64(stats.TotalAborts())).
		Log("stm demo finished")
}
