// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "code.hybscloud.com/atomix"

// Stats aggregates commit and abort-by-reason counts by hooking the
// callback slots (§4.I), the same way the source's mod_stats.c
// module is a consumer of on_commit/on_abort rather than special-
// cased into the core.
type Stats struct {
	commits atomix.Uint64
	aborts  [abortReasonCount]atomix.Uint64
}

// NewStats registers a Stats against rt and returns it.
func NewStats(rt *Runtime) *Stats {
	s := &Stats{}
	rt.OnCommit(func(*Tx) { s.commits.AddAcqRel(1) })
	rt.OnAbort(func(_ *Tx, reason AbortReason) { s.aborts[reason].AddAcqRel(1) })
	return s
}

// Commits returns the total number of committed transactions.
func (s *Stats) Commits() uint64 { return s.commits.LoadAcquire() }

// Aborts returns the number of aborts recorded for reason.
func (s *Stats) Aborts(reason AbortReason) uint64 { return s.aborts[reason].LoadAcquire() }

// TotalAborts returns the number of aborts across every reason.
func (s *Stats) TotalAborts() uint64 {
	var total uint64
	for i := range s.aborts {
		total += s.aborts[i].LoadAcquire()
	}
	return total
}
