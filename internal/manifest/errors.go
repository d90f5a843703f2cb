package manifest

import (
	"errors"
	"fmt"
)

// ErrNoManifest is returned by Find when no imsmanifest.xml exists under the
// input root.
var ErrNoManifest = errors.New("no " + FileName + " found")

// ParseError reports a manifest document that could not be read or parsed.
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("manifest error: %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("manifest error: %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
