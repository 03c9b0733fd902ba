package platform

import (
	"errors"
	"fmt"
)

var (
	ErrPlatform = errors.New("platform error")
	ErrNotFound = errors.New("platform resource not found")
)

// OpError reports a failed platform call with a stable Op for callers/logs.
type OpError struct {
	Op  string
	Err error
}

func (e OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrPlatform)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e OpError) Unwrap() []error { return []error{ErrPlatform, e.Err} }

// Wrap returns nil for a nil err, otherwise an OpError for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return OpError{Op: op, Err: err}
}
