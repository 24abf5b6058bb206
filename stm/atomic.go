// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

// Atomic runs body inside an atomic block on th, retrying until it
// commits. This is the retry loop spec.md §9 asks for in place of
// the source's sigsetjmp/siglongjmp: body receives a Token for the
// current attempt; if it panics with an *AbortError (raised from deep
// inside Load/Store), or returns one as a plain error, or Commit
// itself reports a validation failure, the attempt is rolled back and
// retried — unless attr.NoRetry is set, in which case the AbortError
// is returned directly. Any other error body returns ends the retry
// loop immediately and is returned unchanged; any other panic value
// propagates past Atomic uncaught.
func Atomic(th *Thread, attr Attr, body func(Token) error) error {
	for {
		tok := th.Start(attr)

		bodyErr, aborted, reason := runBody(tok, body)
		if ae, ok := bodyErr.(*AbortError); ok {
			aborted, reason = true, ae.Reason
		}
		if aborted {
			tok.tx.rollback(reason)
			if attr.NoRetry {
				return &AbortError{Reason: reason}
			}
			tok.tx.backoffAfterAbort()
			continue
		}
		if bodyErr != nil {
			tok.tx.rollback(AbortExplicit)
			return bodyErr
		}

		if err := tok.Commit(); err != nil {
			ae := err.(*AbortError)
			tok.tx.rollback(ae.Reason)
			if attr.NoRetry {
				return ae
			}
			tok.tx.backoffAfterAbort()
			continue
		}
		return nil
	}
}

func runBody(tok Token, body func(Token) error) (bodyErr error, aborted bool, reason AbortReason) {
	defer func() {
		if r := recover(); r != nil {
			ae, ok := r.(*AbortError)
			if !ok {
				panic(r)
			}
			aborted = true
			reason = ae.Reason
		}
	}()
	bodyErr = body(tok)
	return
}

func (tx *Tx) backoffAfterAbort() {
	if tx.th.rt.cfg.CM == Backoff {
		tx.randomBackoff()
	}
}
