// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

// AbortReason classifies why a transaction aborted.
type AbortReason int

const (
	AbortUnknown AbortReason = iota
	// AbortValidateRead is a Load observing a version past tx.end
	// that extension could not repair.
	AbortValidateRead
	// AbortValidateWrite is a Store observing a version past tx.end
	// on an address already in the read set, or a write-back
	// commit-time-locking acquisition conflict.
	AbortValidateWrite
	// AbortValidate is a failed read-set validation at commit.
	AbortValidate
	// AbortKilled is contention-manager-initiated: another
	// transaction, or this one, was chosen as the victim.
	AbortKilled
	// AbortExplicit is a body closure returning a non-nil error
	// without it being one of the STM's own AbortErrors.
	AbortExplicit

	abortReasonCount
)

func (r AbortReason) String() string {
	switch r {
	case AbortValidateRead:
		return "validate-read"
	case AbortValidateWrite:
		return "validate-write"
	case AbortValidate:
		return "validate"
	case AbortKilled:
		return "killed"
	case AbortExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// AbortError is the value Load, Store, and Commit panic with or
// return to signal a transaction must abort. Atomic recovers it from
// a panic raised deep inside a body closure and retries the block;
// direct callers of Start/Commit without Atomic must handle it
// themselves (see Token.Commit).
type AbortError struct {
	Reason AbortReason
}

func (e *AbortError) Error() string {
	return "stm: transaction aborted: " + e.Reason.String()
}
