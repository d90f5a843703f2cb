package jobmanifest

import (
	"errors"
	"fmt"
)

// ErrAlreadyFlushed is returned by a second Flush of the same manifest.
var ErrAlreadyFlushed = errors.New("job manifest already flushed")

// PersistError reports an output file that could not be written. It is fatal
// for the run.
type PersistError struct {
	Path    string
	Message string
	Cause   error
}

func (e *PersistError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persist error: %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("persist error: %s: %s", e.Path, e.Message)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}
