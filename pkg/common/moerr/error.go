// Copyright 2021 - 2022 Matrix Origin
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

package moerr

import (
	"fmt"
)

const (
	// 0 - 99 is OK.  They do not contain info, and are special handled
	// using a static instance, no alloc.
	Ok uint16 = 0

	OkMax uint16 = 99

	// Group 1: Internal errors
	ErrStart    uint16 = 20100
	ErrInternal uint16 = 20101

	// Group 3: invalid input
	ErrInvalidInput uint16 = 20301

	// Group 4: unexpected state
	ErrInvalidState uint16 = 20400

	// Group 6: memory accounting
	ErrQuotaExceeded uint16 = 20601
	ErrUnitNotFound  uint16 = 20602
	ErrOOM           uint16 = 20603

	// Group End: max value of error code
	ErrEnd uint16 = 65535
)

var errorMsgRefer = map[uint16]string{
	ErrInternal:      "internal error: %s",
	ErrInvalidInput:  "invalid input: %s",
	ErrInvalidState:  "invalid state: %s",
	ErrQuotaExceeded: "quota exceeded on unit %s: requested %d, used %d of %d",
	ErrUnitNotFound:  "execution unit %d is not registered",
	ErrOOM:           "heap out of memory allocating %d bytes",
}

type Error struct {
	code    uint16
	message string
}

func newError(code uint16, args ...any) *Error {
	format, has := errorMsgRefer[code]
	if !has {
		panic(fmt.Sprintf("not exist error code: %d", code))
	}
	if len(args) == 0 {
		return &Error{code: code, message: format}
	}
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) Succeeded() bool {
	return e.code < OkMax
}

func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}

	me, ok := e.(*Error)
	if !ok {
		// This is not a moerr
		return false
	}
	return me.code == rc
}

func NewInternalError(msg string, args ...any) *Error {
	return newError(ErrInternal, fmt.Sprintf(msg, args...))
}

func NewInvalidInput(msg string, args ...any) *Error {
	return newError(ErrInvalidInput, fmt.Sprintf(msg, args...))
}

func NewInvalidState(msg string, args ...any) *Error {
	return newError(ErrInvalidState, fmt.Sprintf(msg, args...))
}

// NewQuotaExceeded reports a rejected allocation.  used and quota are the
// ledger values observed at rejection time, before any provider call.
func NewQuotaExceeded(unit string, requested, used, quota uint64) *Error {
	return newError(ErrQuotaExceeded, unit, requested, used, quota)
}

func NewUnitNotFound(unit uint32) *Error {
	return newError(ErrUnitNotFound, unit)
}

func NewOOM(size int) *Error {
	return newError(ErrOOM, size)
}
