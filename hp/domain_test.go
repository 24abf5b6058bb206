// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hp

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type node struct {
	val int
}

func TestProtectTracksSource(t *testing.T) {
	d := New[node](4, 1)
	n := &node{val: 42}
	var src atomic.Pointer[node]
	src.Store(n)

	got := d.Protect(0, 0, &src)
	require.Same(t, n, got)
}

func TestProtectNilSource(t *testing.T) {
	d := New[node](4, 1)
	var src atomic.Pointer[node]
	require.Nil(t, d.Protect(0, 0, &src))
}

func TestClearReleasesSlot(t *testing.T) {
	d := New[node](2, 2)
	n := &node{val: 1}
	d.ProtectPtr(0, 0, n)
	require.True(t, d.isHazardous(n))
	d.ClearOne(0, 0)
	require.False(t, d.isHazardous(n))
}

func TestRetireFreesWhenUnprotected(t *testing.T) {
	d := New[node](2, 1)
	n := &node{val: 1}
	d.Retire(0, n)
	require.Empty(t, d.retired[0])
}

func TestRetireKeepsHazardousNode(t *testing.T) {
	d := New[node](2, 1)
	n := &node{val: 1}
	d.ProtectPtr(1, 0, n)
	d.Retire(0, n)
	require.Len(t, d.retired[0], 1)
	d.ClearOne(1, 0)
	d.Retire(0, &node{val: 2}) // triggers another scan of thread 0's list
	require.Empty(t, d.retired[0])
}

func TestRetireConsultsPredicate(t *testing.T) {
	n := &node{val: 7}
	stillReferenced := true
	d := New[node](2, 1, WithPredicate(func(p *node) bool {
		return p == n && stillReferenced
	}))
	d.Retire(0, n)
	require.Len(t, d.retired[0], 1, "predicate should keep the node alive")

	stillReferenced = false
	d.Retire(0, &node{val: 8})
	require.Empty(t, d.retired[0])
}

func TestRetireThresholdBatches(t *testing.T) {
	d := New[node](1, 1, WithRetireThreshold[node](2))
	d.Retire(0, &node{val: 1})
	require.Len(t, d.retired[0], 1, "below threshold: no scan yet")
	d.Retire(0, &node{val: 2})
	require.Len(t, d.retired[0], 2, "still at threshold: no scan yet")
	d.Retire(0, &node{val: 3})
	require.Empty(t, d.retired[0], "over threshold: scan drops unreferenced nodes")
}
