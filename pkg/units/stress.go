// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package units

import (
	"runtime"
)

const stressFrameSize = 128

// stressStack models transient stack pressure: a bounded recursion
// where every frame pins a fixed-size buffer.  It returns the total
// frame bytes touched so the caller can record a stack usage sample.
// This is a probe, not business logic; nothing of it persists.
func stressStack(depth int) uint64 {
	if depth <= 0 {
		return 0
	}
	var frame [stressFrameSize]byte
	frame[0] = byte(depth)
	used := uint64(len(frame)) + stressStack(depth-1)
	runtime.KeepAlive(&frame)
	return used
}
