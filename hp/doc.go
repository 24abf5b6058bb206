// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hp provides hazard-pointer safe memory reclamation for
// linked, pointer-based data structures.
//
// A [Domain] is a 2-D table of per-thread hazard slots plus a
// per-thread retired list, grounded on the classic Michael hazard
// pointer scheme and its SimQueue-specific variant
// (original_source/common/HazardPointersSimQueue.hpp). The two are
// unified as one type: constructing a Domain with [WithPredicate]
// gives the SimQueue behaviour (a retired node is only freed once no
// hazard slot names it *and* the caller-supplied predicate says it is
// no longer reachable some other way); omitting it gives the plain
// hazard-pointer reclaimer used by the Michael–Scott queue.
package hp
