// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThroughCommitsAndUndoesOnAbort(t *testing.T) {
	rt := New(WithMaxThreads(1), WithDesign(WriteThrough))
	th := rt.InitThread(0)

	var x int64 = 1
	require.NoError(t, Atomic(th, Attr{}, func(tok Token) error {
		Store(tok, &x, 2)
		require.EqualValues(t, 2, x, "write-through applies immediately")
		return nil
	}))
	require.EqualValues(t, 2, x)

	require.Error(t, Atomic(th, Attr{NoRetry: true}, func(tok Token) error {
		Store(tok, &x, 99)
		return errGiveUp
	}))
	require.EqualValues(t, 2, x, "aborted write-through store must be undone")
}

func TestWriteBackCTLCommits(t *testing.T) {
	rt := New(WithMaxThreads(2), WithDesign(WriteBackCTL))
	th := rt.InitThread(0)

	var a, b int64
	require.NoError(t, Atomic(th, Attr{}, func(tok Token) error {
		Store(tok, &a, 10)
		Store(tok, &b, 20)
		return nil
	}))
	require.EqualValues(t, 10, a)
	require.EqualValues(t, 20, b)
}

// TestSameStripeCollisionDoesNotSelfContend forces two distinct
// addresses into the same lock stripe (a single-stripe table) and
// writes both from one transaction. Before the same-stripe fast path
// in access.go's load/store, this deadlocked the Delay contention
// manager against itself and self-aborted under Suicide.
func TestSameStripeCollisionDoesNotSelfContend(t *testing.T) {
	rt := New(WithMaxThreads(1), WithLockBits(0))
	th := rt.InitThread(0)

	var a, b int64 = 1, 2
	require.NoError(t, Atomic(th, Attr{}, func(tok Token) error {
		Store(tok, &a, 10)
		Store(tok, &b, 20)
		require.EqualValues(t, 10, Load(tok, &a))
		require.EqualValues(t, 20, Load(tok, &b))
		return nil
	}))
	require.EqualValues(t, 10, a)
	require.EqualValues(t, 20, b)
}

// TestSameStripeCollisionUndoesWriteThrough exercises the rollback
// path's unconditional WriteThrough undo for a same-stripe entry that
// never itself performed the CAS.
func TestSameStripeCollisionUndoesWriteThrough(t *testing.T) {
	rt := New(WithMaxThreads(1), WithLockBits(0), WithDesign(WriteThrough))
	th := rt.InitThread(0)

	var a, b int64 = 1, 2
	require.Error(t, Atomic(th, Attr{NoRetry: true}, func(tok Token) error {
		Store(tok, &a, 99)
		Store(tok, &b, 99)
		return errGiveUp
	}))
	require.EqualValues(t, 1, a, "first same-stripe write-through store must be undone")
	require.EqualValues(t, 2, b, "second same-stripe write-through store must be undone")
}

func TestIrrevocableBypassesWriteSet(t *testing.T) {
	rt := New(WithMaxThreads(1))
	th := rt.InitThread(0)

	var x int64
	tok := th.Start(Attr{Irrevocable: IrrevocabilityParallel})
	Store(tok, &x, 5)
	require.EqualValues(t, 5, x, "irrevocable stores bypass the write set")
	require.NoError(t, tok.Commit())
}
