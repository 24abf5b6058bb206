// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "code.hybscloud.com/spin"

// commitWBETL is the default design: values live only in the write
// set until commit, then get applied to memory before the locks are
// released (§4.F Commit, write-back variant).
func (tx *Tx) commitWBETL() error {
	rt := tx.th.rt
	rt.callbacks.firePreCommit(tx)

	t := rt.clock.AddAcqRel(1)
	if tx.start != t-1 {
		if !tx.validateReadSet() {
			return &AbortError{Reason: AbortValidate}
		}
	}

	for _, w := range tx.writeSet {
		*(*uint64)(w.addr) = w.value
	}
	for _, w := range tx.writeSet {
		rt.locks[w.lockIdx].StoreRelease(makeUnlockedWord(t, 0))
	}
	return nil
}

// commitWT finishes write-through: memory was already updated at
// each Store, so commit only needs to validate and bump timestamps.
func (tx *Tx) commitWT() error {
	rt := tx.th.rt
	rt.callbacks.firePreCommit(tx)

	t := rt.clock.AddAcqRel(1)
	if tx.start != t-1 {
		if !tx.validateReadSet() {
			return &AbortError{Reason: AbortValidate}
		}
	}

	for _, w := range tx.writeSet {
		rt.locks[w.lockIdx].StoreRelease(makeUnlockedWord(t, 0))
	}
	return nil
}

// commitWBCTL acquires every write-set lock in reverse order,
// aborting on the first conflict, then validates the read set, then
// applies writes and releases (§4.F Commit, commit-time-locking
// variant).
func (tx *Tx) commitWBCTL() error {
	rt := tx.th.rt
	rt.callbacks.firePreCommit(tx)

	for i := len(tx.writeSet) - 1; i >= 0; i-- {
		w := tx.writeSet[i]
		sw := spin.Wait{}
		for {
			word := rt.locks[w.lockIdx].LoadAcquire()
			if lockIsOwned(word) {
				tx.releaseAcquired(tx.writeSet[i+1:])
				return &AbortError{Reason: AbortValidateWrite}
			}
			if lockVersion(word) > tx.end {
				tx.releaseAcquired(tx.writeSet[i+1:])
				return &AbortError{Reason: AbortValidateWrite}
			}
			w.saved = word
			if rt.locks[w.lockIdx].CompareAndSwapAcqRel(word, makeLockedWord(w)) {
				break
			}
			sw.Once()
		}
	}

	if !tx.validateReadSet() {
		tx.releaseAcquired(tx.writeSet)
		return &AbortError{Reason: AbortValidate}
	}

	t := rt.clock.AddAcqRel(1)
	for _, w := range tx.writeSet {
		*(*uint64)(w.addr) = w.value
		rt.locks[w.lockIdx].StoreRelease(makeUnlockedWord(t, 0))
	}
	return nil
}

func (tx *Tx) releaseAcquired(entries []*writeEntry) {
	for _, w := range entries {
		tx.th.rt.locks[w.lockIdx].StoreRelease(w.saved)
	}
}
