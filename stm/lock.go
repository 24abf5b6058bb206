// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "unsafe"

// Lock word layout, following the source's stm_internal.h: bit 0 is
// the owned flag. When unlocked, the remaining bits are a 3-bit
// incarnation (bumped on abort to invalidate stale readers of a
// version that never actually committed) followed by a version
// timestamp. When owned, the remaining bits are the owning
// writeEntry's address with its low bit (always 0, since Go's
// allocator aligns heap objects to at least 2 bytes) repurposed as
// the flag itself.
const (
	ownedBit        = uint64(1)
	incarnationBits = 3
	incarnationMax  = uint64(1<<incarnationBits) - 1
	incarnationMask = incarnationMax << 1
	versionShift    = 1 + incarnationBits
)

// versionMax is the highest global-clock value a Runtime will run to
// before forcing a quiescence barrier to roll the clock back to zero,
// reserving one tick of headroom per registered thread the way the
// source does so a burst of concurrent commits can't race past the
// limit unnoticed.
func versionMax(maxThreads int) uint64 {
	return (^uint64(0) >> versionShift) - uint64(maxThreads)
}

func lockIsOwned(word uint64) bool { return word&ownedBit != 0 }

func lockVersion(word uint64) uint64 { return word >> versionShift }

func lockIncarnation(word uint64) uint64 { return (word & incarnationMask) >> 1 }

func makeUnlockedWord(version, incarnation uint64) uint64 {
	return version<<versionShift | incarnation<<1
}

func makeLockedWord(entry *writeEntry) uint64 {
	return uint64(uintptr(unsafe.Pointer(entry))) | ownedBit
}

func lockEntry(word uint64) *writeEntry {
	return (*writeEntry)(unsafe.Pointer(uintptr(word &^ ownedBit)))
}

// lockIndex hashes addr down to a stripe in [0, 1<<bits).
func lockIndex(addr unsafe.Pointer, bits uint) uint64 {
	h := uint64(uintptr(addr))
	h ^= h >> 31
	h *= 0x9E3779B97F4A7C15
	h ^= h >> 29
	return h >> (64 - bits)
}
