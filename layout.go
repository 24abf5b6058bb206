// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

// pad is cache-line padding to prevent false sharing between hot
// atomic fields, the same idiom the teacher package used for its
// ring-buffer queues' head/tail/threshold fields.
type pad [64]byte
