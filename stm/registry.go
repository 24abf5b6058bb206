// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "code.hybscloud.com/spin"

// Thread is one registered transactional thread's handle: its
// transaction descriptor and its slot in the Runtime's registry.
// Obtain one with Runtime.InitThread on first transactional use,
// exactly as the source's init_thread does, and release it with
// Runtime.ExitThread when the thread is done transacting.
type Thread struct {
	rt  *Runtime
	tid int
	tx  Tx
}

// InitThread registers tid (a dense index in [0, MaxThreads)) and
// returns its Thread handle, allocating one on first use. Repeated
// calls for the same tid return the same handle — init_thread is
// idempotent per the source.
func (rt *Runtime) InitThread(tid int) *Thread {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if th := rt.threads[tid]; th != nil {
		return th
	}
	th := &Thread{rt: rt, tid: tid}
	th.tx.th = th
	rt.threads[tid] = th
	rt.callbacks.fireThreadInit(th)
	return th
}

// ExitThread unregisters tid. The thread must not be mid-transaction.
func (rt *Runtime) ExitThread(tid int) {
	rt.mu.Lock()
	th := rt.threads[tid]
	rt.threads[tid] = nil
	rt.active[tid] = false
	rt.mu.Unlock()
	if th != nil {
		rt.callbacks.fireThreadExit(th)
	}
}

func (rt *Runtime) setActive(tid int, active bool) {
	rt.mu.Lock()
	rt.active[tid] = active
	rt.mu.Unlock()
	if !active {
		rt.cond.Broadcast()
	}
}

// waitIfQuiescing parks the calling thread while a barrier (§4.H) is
// in effect, the way a newly starting transaction must per the
// source.
func (rt *Runtime) waitIfQuiescing() {
	if rt.quiesce.LoadAcquire() == 0 {
		return
	}
	rt.mu.Lock()
	for rt.quiesce.LoadAcquire() == 2 {
		rt.cond.Wait()
	}
	rt.mu.Unlock()
}

// quiesceBarrier drives every other registered thread to a quiescent
// point, then resets the lock table and clock to zero — the clock
// rollover mechanism of §4.F, and also used to implement serial
// irrevocable mode.
func (rt *Runtime) quiesceBarrier(tid int) {
	rt.mu.Lock()
	rt.quiesce.StoreRelease(2)
	for t := range rt.threads {
		if t == tid || rt.threads[t] == nil {
			continue
		}
		for rt.active[t] {
			rt.cond.Wait()
		}
	}
	for i := range rt.locks {
		rt.locks[i].StoreRelease(0)
	}
	rt.clock.StoreRelease(0)
	rt.quiesce.StoreRelease(0)
	rt.mu.Unlock()
	rt.cond.Broadcast()
}

// acquireIrrevocable blocks until the process-wide single-writer
// flag is free, then takes it; IrrevocabilitySerial additionally
// parks every other active transaction via the quiescence barrier.
func (rt *Runtime) acquireIrrevocable(tx *Tx, level Irrevocability) {
	sw := spin.Wait{}
	for !rt.irrevocable.CompareAndSwapAcqRel(false, true) {
		sw.Once()
	}
	tx.irrevocableHeld = true
	if level == IrrevocabilitySerial {
		rt.quiesceBarrier(tx.th.tid)
	}
}
