// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import "errors"

// ErrInvalidArgument is returned by Enqueue when item is nil.
//
// Unlike the bounded ring-buffer queues this package's ancestor
// offered, none of MSQ, SimQueue, or the STM-backed queue ever reject
// an Enqueue because the queue is full — they are unbounded. The only
// way Enqueue fails is a caller mistake: a nil item. That is not a
// would-block/control-flow signal, so it is a plain sentinel error
// rather than a re-export of an iox semantic-error type.
var ErrInvalidArgument = errors.New("cq: item must not be nil")
