package normalize

import "fmt"

// EncodingError reports a document whose declared encoding cannot be decoded.
type EncodingError struct {
	Label string
	Cause error
}

func (e *EncodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("encoding error: cannot decode %q: %v", e.Label, e.Cause)
	}
	return fmt.Sprintf("encoding error: cannot decode %q", e.Label)
}

func (e *EncodingError) Unwrap() error {
	return e.Cause
}
