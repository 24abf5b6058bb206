// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"unsafe"

	"code.hybscloud.com/spin"
)

// Load reads the transactional value of *addr within tok's
// transaction (§4.F Load protocol, write-back encounter-time
// locking). V must be at most 8 bytes; this is a word-based STM.
//
// Load panics with *AbortError if the transaction must abort — a
// validation failure reachable only from deep inside the body
// closure, which panic/recover is the idiomatic Go way to unwind back
// to Atomic's retry loop. Direct callers of Start/Load/Commit
// (without Atomic) must recover it themselves.
func Load[V any](tok Token, addr *V) V {
	raw := tok.tx.load(unsafe.Pointer(addr))
	return *(*V)(unsafe.Pointer(&raw))
}

// Store records a transactional write of val to *addr within tok's
// transaction. See Load for the panic-based abort convention.
func Store[V any](tok Token, addr *V, val V) {
	var raw uint64
	*(*V)(unsafe.Pointer(&raw)) = val
	tok.tx.store(unsafe.Pointer(addr), raw)
}

func (tx *Tx) load(addr unsafe.Pointer) uint64 {
	if tx.irrevocableHeld {
		return *(*uint64)(addr)
	}
	tx.checkKilled()
	rt := tx.th.rt

	for _, w := range tx.writeSet {
		if w.addr == addr {
			return w.value
		}
	}

	idx := lockIndex(addr, rt.cfg.LockBits)
	sw := spin.Wait{}
	for {
		word := rt.locks[idx].LoadAcquire()
		if lockIsOwned(word) {
			owner := lockEntry(word).owner
			if owner == tx {
				// addr missed the exact-match scan above, so it is a
				// different address that merely hashes to the same
				// stripe as one this transaction already wrote — not a
				// conflict (§4.F Load protocol step 1: "locked by this
				// transaction ... return"). Nothing else can modify
				// addr while we hold the stripe lock, so the current
				// memory value is the one to return.
				return *(*uint64)(addr)
			}
			tx.contend(owner, idx)
			sw.Once()
			continue
		}

		val := *(*uint64)(addr)

		if rt.locks[idx].LoadAcquire() != word {
			sw.Once()
			continue
		}

		v := lockVersion(word)
		if v > tx.end {
			if tx.attr.NoExtend || !tx.extend() {
				panic(&AbortError{Reason: AbortValidateRead})
			}
		}

		if !tx.readOnly {
			tx.readSet = append(tx.readSet, readEntry{addr: addr, lockIdx: idx, version: v})
		}
		return val
	}
}

func (tx *Tx) store(addr unsafe.Pointer, val uint64) {
	if tx.irrevocableHeld {
		*(*uint64)(addr) = val
		return
	}
	tx.checkKilled()
	if tx.th.rt.cfg.Design == WriteBackCTL {
		tx.storeCTL(addr, val)
		return
	}

	rt := tx.th.rt
	for _, w := range tx.writeSet {
		if w.addr == addr {
			w.value = val
			if rt.cfg.Design == WriteThrough {
				*(*uint64)(addr) = val
			}
			return
		}
	}

	idx := lockIndex(addr, rt.cfg.LockBits)
	sw := spin.Wait{}
	for {
		word := rt.locks[idx].LoadAcquire()
		if lockIsOwned(word) {
			owner := lockEntry(word).owner
			if owner == tx {
				// Same-stripe collision with an address this
				// transaction already wrote (the exact-match scan
				// above missed it, since addr differs). The stripe
				// lock is already ours, so append rather than CAS
				// (§4.F Store protocol step 1: "already owned by this
				// transaction, merge ... or append to the stripe
				// list"). Commit/rollback tolerate more than one
				// writeEntry per lockIdx: only the entry that actually
				// holds saved/the CAS matters for releasing the lock.
				entry := &writeEntry{
					addr:    addr,
					value:   val,
					orig:    *(*uint64)(addr),
					lockIdx: idx,
					owner:   tx,
				}
				tx.writeSet = append(tx.writeSet, entry)
				if rt.cfg.Design == WriteThrough {
					*(*uint64)(addr) = val
				}
				return
			}
			tx.contend(owner, idx)
			sw.Once()
			continue
		}

		v := lockVersion(word)
		if v > tx.end && tx.wasRead(addr) {
			panic(&AbortError{Reason: AbortValidateWrite})
		}

		entry := &writeEntry{
			addr:    addr,
			value:   val,
			orig:    *(*uint64)(addr),
			lockIdx: idx,
			saved:   word,
			owner:   tx,
		}
		if rt.locks[idx].CompareAndSwapAcqRel(word, makeLockedWord(entry)) {
			tx.writeSet = append(tx.writeSet, entry)
			if rt.cfg.Design == WriteThrough {
				*(*uint64)(addr) = val
			}
			return
		}
		sw.Once()
	}
}

// storeCTL implements write-back commit-time locking's Store: just
// buffer the write, take no lock until Commit.
func (tx *Tx) storeCTL(addr unsafe.Pointer, val uint64) {
	for _, w := range tx.writeSet {
		if w.addr == addr {
			w.value = val
			return
		}
	}
	idx := lockIndex(addr, tx.th.rt.cfg.LockBits)
	tx.writeSet = append(tx.writeSet, &writeEntry{addr: addr, value: val, lockIdx: idx, owner: tx})
}

func (tx *Tx) wasRead(addr unsafe.Pointer) bool {
	for _, r := range tx.readSet {
		if r.addr == addr {
			return true
		}
	}
	return false
}

// UnitLoad performs a single-word atomic load outside any
// transaction, using the lock table as a mutex (§4.F Unit
// transactions). The returned timestamp can be used for caller-side
// optimistic-concurrency control.
func UnitLoad[V any](rt *Runtime, addr *V) (V, uint64) {
	p := unsafe.Pointer(addr)
	idx := lockIndex(p, rt.cfg.LockBits)
	sw := spin.Wait{}
	for {
		word := rt.locks[idx].LoadAcquire()
		if lockIsOwned(word) {
			sw.Once()
			continue
		}
		raw := *(*uint64)(p)
		if rt.locks[idx].LoadAcquire() != word {
			sw.Once()
			continue
		}
		return *(*V)(unsafe.Pointer(&raw)), lockVersion(word)
	}
}

// UnitStore performs a single-word atomic store outside any
// transaction, returning the new global-clock timestamp it
// committed under.
func UnitStore[V any](rt *Runtime, addr *V, val V) uint64 {
	p := unsafe.Pointer(addr)
	idx := lockIndex(p, rt.cfg.LockBits)
	var raw uint64
	*(*V)(unsafe.Pointer(&raw)) = val

	sw := spin.Wait{}
	for {
		word := rt.locks[idx].LoadAcquire()
		if lockIsOwned(word) {
			sw.Once()
			continue
		}
		holder := &writeEntry{}
		if !rt.locks[idx].CompareAndSwapAcqRel(word, makeLockedWord(holder)) {
			sw.Once()
			continue
		}
		*(*uint64)(p) = raw
		t := rt.clock.AddAcqRel(1)
		rt.locks[idx].StoreRelease(makeUnlockedWord(t, 0))
		return t
	}
}
