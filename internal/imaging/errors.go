package imaging

import "fmt"

// Error represents a failure to decode or re-encode an image.
type Error struct {
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("imaging %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("imaging %s failed", e.Op)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
