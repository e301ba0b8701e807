// ABOUTME: Engine status codes shared by every callback and primitive
// ABOUTME: Result implements error so status codes travel through normal Go error returns
package engine

import (
	"errors"
	"fmt"
)

// Result is an engine status code. Zero is success, negative values are failures.
type Result int32

const (
	Success          Result = 0
	Error            Result = -1
	InvalidArgs      Result = -2
	InvalidOperation Result = -3
	OutOfMemory      Result = -4
	OutOfRange       Result = -5
	AccessDenied     Result = -6
	DoesNotExist     Result = -7
	InvalidFile      Result = -10
	AtEnd            Result = -17
	Busy             Result = -19
	IOError          Result = -20
	Unavailable      Result = -22
	BadSeek          Result = -25
	NotImplemented   Result = -29
	NoDataAvailable  Result = -32
	InvalidData      Result = -33
	Timeout          Result = -34
	Cancelled        Result = -51
)

var resultNames = map[Result]string{
	Success:          "success",
	Error:            "generic error",
	InvalidArgs:      "invalid arguments",
	InvalidOperation: "invalid operation",
	OutOfMemory:      "out of memory",
	OutOfRange:       "out of range",
	AccessDenied:     "access denied",
	DoesNotExist:     "does not exist",
	InvalidFile:      "invalid file",
	AtEnd:            "at end",
	Busy:             "busy",
	IOError:          "i/o error",
	Unavailable:      "unavailable",
	BadSeek:          "bad seek",
	NotImplemented:   "not implemented",
	NoDataAvailable:  "no data available",
	InvalidData:      "invalid data",
	Timeout:          "timeout",
	Cancelled:        "cancelled",
}

func (r Result) Error() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("result %d", int32(r))
}

// Err returns nil for Success and the Result itself otherwise
func (r Result) Err() error {
	if r == Success {
		return nil
	}
	return r
}

// ResultOf maps an error back to a status code. A nil error is Success,
// an error wrapping a Result yields that Result and anything else is Error.
func ResultOf(err error) Result {
	if err == nil {
		return Success
	}
	var r Result
	if errors.As(err, &r) {
		if r == Success {
			return Error
		}
		return r
	}
	return Error
}
