// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

// ThreadCallback runs on thread registration or release.
type ThreadCallback func(*Thread)

// TxCallback runs at a transaction lifecycle point.
type TxCallback func(*Tx)

// AbortCallback runs when a transaction aborts, with the reason.
type AbortCallback func(*Tx, AbortReason)

// callbackSet holds the ordered slots described in §4.I. Modules
// (transactional allocation, undo logging, statistics) register into
// these instead of the STM core knowing about them directly.
type callbackSet struct {
	onThreadInit []ThreadCallback
	onThreadExit []ThreadCallback
	onStart      []TxCallback
	onPreCommit  []TxCallback
	onCommit     []TxCallback
	onAbort      []AbortCallback
}

// OnThreadInit registers cb to run whenever InitThread allocates a
// new Thread.
func (rt *Runtime) OnThreadInit(cb ThreadCallback) {
	rt.callbacks.onThreadInit = append(rt.callbacks.onThreadInit, cb)
}

// OnThreadExit registers cb to run whenever ExitThread releases a
// Thread.
func (rt *Runtime) OnThreadExit(cb ThreadCallback) {
	rt.callbacks.onThreadExit = append(rt.callbacks.onThreadExit, cb)
}

// OnStart registers cb to run at the start of every top-level
// transaction.
func (rt *Runtime) OnStart(cb TxCallback) {
	rt.callbacks.onStart = append(rt.callbacks.onStart, cb)
}

// OnPreCommit registers cb to run just before a transaction attempts
// to commit, while its locks (if any) are still held.
func (rt *Runtime) OnPreCommit(cb TxCallback) {
	rt.callbacks.onPreCommit = append(rt.callbacks.onPreCommit, cb)
}

// OnCommit registers cb to run immediately after a transaction
// commits successfully.
func (rt *Runtime) OnCommit(cb TxCallback) {
	rt.callbacks.onCommit = append(rt.callbacks.onCommit, cb)
}

// OnAbort registers cb to run immediately after a transaction aborts.
func (rt *Runtime) OnAbort(cb AbortCallback) {
	rt.callbacks.onAbort = append(rt.callbacks.onAbort, cb)
}

func (c *callbackSet) fireThreadInit(th *Thread) {
	for _, cb := range c.onThreadInit {
		cb(th)
	}
}

func (c *callbackSet) fireThreadExit(th *Thread) {
	for _, cb := range c.onThreadExit {
		cb(th)
	}
}

func (c *callbackSet) fireStart(tx *Tx) {
	for _, cb := range c.onStart {
		cb(tx)
	}
}

func (c *callbackSet) firePreCommit(tx *Tx) {
	for _, cb := range c.onPreCommit {
		cb(tx)
	}
}

func (c *callbackSet) fireCommit(tx *Tx) {
	for _, cb := range c.onCommit {
		cb(tx)
	}
}

func (c *callbackSet) fireAbort(tx *Tx, reason AbortReason) {
	for _, cb := range c.onAbort {
		cb(tx, reason)
	}
}
