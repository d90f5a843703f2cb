package identifier

import "fmt"

// MissingError means no enabled strategy produced a reference for a resource.
// It is a configuration error and aborts the run.
type MissingError struct {
	Href string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("Fatal: Cannot find a valid identifier for %s. Perhaps try a different item-reference-source", e.Href)
}

// SourceError reports an unknown item reference source.
type SourceError struct {
	Source string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("invalid item reference source %q: must be one of %v", e.Source, Sources)
}

// DocumentError reports an item document whose root element cannot be read.
type DocumentError struct {
	Message string
	Cause   error
}

func (e *DocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("item document error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("item document error: %s", e.Message)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}
