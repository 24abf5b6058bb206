// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

type txStatus int64

const (
	statusActive txStatus = iota
	statusCommitted
	statusAborted
)

type readEntry struct {
	addr    unsafe.Pointer
	lockIdx uint64
	version uint64
}

// writeEntry is one transaction's pending write to addr. It is kept
// alive for the lock's entire held duration by tx.writeSet, which is
// what makes it safe for the lock table to carry its address as a
// tagged integer (lock.go) rather than a garbage-collector-visible
// pointer: nothing ever reads that address back out of the lock word
// after the owning entry has become otherwise unreachable.
type writeEntry struct {
	addr    unsafe.Pointer
	value   uint64
	orig    uint64 // pre-transaction value, for WriteThrough's undo
	lockIdx uint64
	saved   uint64 // unlocked word observed just before acquiring
	owner   *Tx
}

// Tx is one thread's transaction descriptor, reused across every
// atomic block that thread runs (the source's per-thread stm_tx_t).
// Reached only via Token, never constructed directly.
type Tx struct {
	th *Thread

	depth int
	attr  Attr

	start uint64
	end   uint64

	readOnly bool
	readSet  []readEntry
	writeSet []*writeEntry

	status atomix.Int64

	irrevocableHeld bool
	seed            uint64
}

// Token is the opaque save-context returned by Start, modelling the
// source's sigsetjmp buffer: the handle a body closure threads
// through every Load/Store/Commit call for its transaction.
type Token struct {
	tx     *Tx
	nested bool
}

// Start begins (or, at depth >= 1, flattens into) a transaction on
// th. Nesting is flat: starting again before committing just bumps a
// depth counter and returns a Token that defers to the outermost
// Commit, per §4.F.
func (th *Thread) Start(attr Attr) Token {
	tx := &th.tx
	if tx.depth > 0 {
		tx.depth++
		return Token{tx: tx, nested: true}
	}

	rt := th.rt
	rt.waitIfQuiescing()

	tx.attr = attr
	tx.readOnly = attr.ReadOnly
	tx.depth = 1
	tx.readSet = tx.readSet[:0]
	tx.writeSet = tx.writeSet[:0]
	tx.irrevocableHeld = false

	tx.start = rt.clock.LoadAcquire()
	if tx.start >= versionMax(rt.cfg.MaxThreads) {
		rt.quiesceBarrier(th.tid)
		tx.start = rt.clock.LoadAcquire()
	}
	tx.end = tx.start

	tx.status.StoreRelease(int64(statusActive))
	rt.setActive(th.tid, true)
	rt.callbacks.fireStart(tx)

	if attr.Irrevocable != IrrevocabilityNone {
		rt.acquireIrrevocable(tx, attr.Irrevocable)
	}
	return Token{tx: tx}
}

// Commit attempts to commit tok's transaction. For a nested Token
// it only decrements the depth counter, per §4.F. For the outermost
// Token it returns a non-nil *AbortError if validation failed; the caller (or
// Atomic) must then call Tx.rollback itself before retrying.
func (tok Token) Commit() error {
	tx := tok.tx
	if tok.nested {
		tx.depth--
		return nil
	}

	if txStatus(tx.status.LoadAcquire()) == statusAborted {
		return &AbortError{Reason: AbortKilled}
	}

	rt := tx.th.rt
	if tx.readOnly || len(tx.writeSet) == 0 {
		tx.status.StoreRelease(int64(statusCommitted))
		rt.callbacks.firePreCommit(tx)
		rt.callbacks.fireCommit(tx)
		tx.releaseIrrevocableIfHeld()
		rt.setActive(tx.th.tid, false)
		tx.depth = 0
		return nil
	}

	var err error
	switch rt.cfg.Design {
	case WriteThrough:
		err = tx.commitWT()
	case WriteBackCTL:
		err = tx.commitWBCTL()
	default:
		err = tx.commitWBETL()
	}
	tx.depth = 0
	if err != nil {
		return err
	}

	tx.status.StoreRelease(int64(statusCommitted))
	rt.callbacks.fireCommit(tx)
	tx.releaseIrrevocableIfHeld()
	rt.setActive(tx.th.tid, false)
	return nil
}

func (tx *Tx) releaseIrrevocableIfHeld() {
	if tx.irrevocableHeld {
		tx.th.rt.irrevocable.StoreRelease(false)
		tx.irrevocableHeld = false
	}
}

// rollback undoes every effect of an aborted transaction: restores
// WriteThrough's pre-transaction memory values, releases every held
// lock (bumping its incarnation, per §4.F, to invalidate anyone who
// read the doomed version), fires the abort callback, and clears the
// active flag so a concurrent quiescence barrier can proceed.
func (tx *Tx) rollback(reason AbortReason) {
	rt := tx.th.rt
	if rt.cfg.Design == WriteThrough {
		// Undo every entry's address unconditionally: a same-stripe
		// entry that merged into an already-owned lock (access.go's
		// store fast path) never itself holds the lock, so the
		// ownership check below would skip it and leave its write in
		// place.
		for _, w := range tx.writeSet {
			*(*uint64)(w.addr) = w.orig
		}
	}
	for _, w := range tx.writeSet {
		word := rt.locks[w.lockIdx].LoadAcquire()
		if !lockIsOwned(word) || lockEntry(word) != w {
			continue // already released, or lock held by a different same-stripe entry
		}
		incarnation := (lockIncarnation(w.saved) + 1) & incarnationMax
		rt.locks[w.lockIdx].StoreRelease(makeUnlockedWord(lockVersion(w.saved), incarnation))
	}
	tx.status.StoreRelease(int64(statusAborted))
	tx.depth = 0
	tx.releaseIrrevocableIfHeld()
	rt.callbacks.fireAbort(tx, reason)
	rt.setActive(tx.th.tid, false)
}

// validateReadSet checks every recorded (lock, version) pair is
// still current, or owned by this transaction itself.
func (tx *Tx) validateReadSet() bool {
	rt := tx.th.rt
	for _, r := range tx.readSet {
		word := rt.locks[r.lockIdx].LoadAcquire()
		if lockIsOwned(word) {
			if lockEntry(word).owner != tx {
				return false
			}
			continue
		}
		if lockVersion(word) != r.version {
			return false
		}
	}
	return true
}

// extend snapshots the clock and re-validates the whole read set,
// widening tx.end on success (§4.F Extension).
func (tx *Tx) extend() bool {
	now := tx.th.rt.clock.LoadAcquire()
	if !tx.validateReadSet() {
		return false
	}
	tx.end = now
	return true
}

// contend runs the configured contention manager when this
// transaction encounters a lock owned by other.
func (tx *Tx) contend(other *Tx, idx uint64) {
	switch tx.th.rt.cfg.CM {
	case Suicide:
		panic(&AbortError{Reason: AbortKilled})
	case Delay:
		tx.spinOnLock(idx)
		if lockIsOwned(tx.th.rt.locks[idx].LoadAcquire()) {
			panic(&AbortError{Reason: AbortKilled})
		}
	case Backoff:
		tx.randomBackoff()
	case Modular:
		if tx.start < other.start {
			other.status.StoreRelease(int64(statusAborted))
			tx.spinOnLock(idx)
		} else {
			panic(&AbortError{Reason: AbortKilled})
		}
	default:
		tx.spinOnLock(idx)
	}
}

// checkKilled panics if another transaction's Modular contention
// manager has marked tx aborted out from under it. Suicide and Delay
// never touch another Tx's status, so this is only ever observable
// under ContentionPolicy.Modular.
func (tx *Tx) checkKilled() {
	if txStatus(tx.status.LoadAcquire()) == statusAborted {
		panic(&AbortError{Reason: AbortKilled})
	}
}

func (tx *Tx) spinOnLock(idx uint64) {
	sw := spin.Wait{}
	for i := 0; i < 64 && lockIsOwned(tx.th.rt.locks[idx].LoadAcquire()); i++ {
		sw.Once()
	}
}

func (tx *Tx) randomBackoff() {
	tx.seed = tx.seed*6364136223846793005 + 1442695040888963407
	n := (tx.seed >> 40) & 0x3FF
	sw := spin.Wait{}
	for i := uint64(0); i < n; i++ {
		sw.Once()
	}
}
