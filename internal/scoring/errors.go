package scoring

import "fmt"

// InvalidItemError means the document could not be read as an assessmentItem.
type InvalidItemError struct {
	Message string
	Cause   error
}

func (e *InvalidItemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid item: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid item: %s", e.Message)
}

func (e *InvalidItemError) Unwrap() error {
	return e.Cause
}
