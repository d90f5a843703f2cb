package mapping

import (
	"errors"
	"fmt"
)

// ErrIntroOutro marks a document that holds no interactions. Such documents
// are intro or outro screens and are skipped rather than reported.
var ErrIntroOutro = errors.New("this is intro or outro content, not an assessment item")

// MappingError reports a document the mappers cannot convert.
type MappingError struct {
	Message string
	Cause   error
}

func (e *MappingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MappingError) Unwrap() error {
	return e.Cause
}
