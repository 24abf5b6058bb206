// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stm is a word-based software transactional memory runtime.
//
// It is a transliteration of TinySTM's design into Go idiom: a
// global version clock, a striped lock table covering the whole
// address space by hash, and per-thread transaction descriptors that
// accumulate a read set and a write set between Start and Commit.
// "Word-based" means the unit of transactional access is one machine
// word (at most 8 bytes) — [Load] and [Store] operate on any type
// that fits in one, and callers compose larger transactional records
// out of several such words, exactly as the source does.
//
// A [Runtime] owns the shared lock table, global clock, thread
// registry, and callback slots; callers obtain a [Thread] handle per
// OS thread via [Runtime.InitThread] and run atomic blocks with
// [Atomic]:
//
//	rt := stm.New(stm.WithMaxThreads(8))
//	th := rt.InitThread(tid)
//	err := stm.Atomic(th, stm.Attr{}, func(tok stm.Token) error {
//		v := stm.Load(tok, &counter)
//		stm.Store(tok, &counter, v+1)
//		return nil
//	})
//
// [Atomic] retries the closure until it commits, modelling the
// source's sigsetjmp/siglongjmp abort path as an AbortError carried
// by panic/recover from deep inside [Load]/[Store] back up to the
// retry loop — the closest idiomatic Go equivalent to a non-local
// jump to the top of the atomic block.
package stm
