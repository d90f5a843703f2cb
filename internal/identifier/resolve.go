// Package identifier decides the item reference for each manifest resource.
package identifier

import "strings"

// Reference sources accepted on the command line.
const (
	SourceItem     = "item"
	SourceMetadata = "metadata"
	SourceResource = "resource"
	SourceFilename = "filename"
)

// Sources lists the accepted reference sources.
var Sources = []string{SourceItem, SourceMetadata, SourceResource, SourceFilename}

// Policy holds the four independent identifier strategies.
type Policy struct {
	UseMetadataIdentifier   bool
	UseResourceIdentifier   bool
	UseFileNameAsIdentifier bool
	UseItemIdentifier       bool
}

// PolicyForSource maps a reference source name to its policy. The metadata
// source also falls back to the item identifier.
func PolicyForSource(source string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case SourceItem:
		return Policy{UseItemIdentifier: true}, nil
	case SourceFilename:
		return Policy{UseFileNameAsIdentifier: true}, nil
	case SourceResource:
		return Policy{UseResourceIdentifier: true}, nil
	case SourceMetadata, "":
		return Policy{UseMetadataIdentifier: true, UseItemIdentifier: true}, nil
	}
	return Policy{}, &SourceError{Source: source}
}

// Resource is the view of a manifest resource the resolver needs.
type Resource interface {
	MetadataIdentifier() string
	Identifier() string
	FileBaseName() string
}

// Resolve runs the enabled strategies in order: metadata, resource attribute,
// file name, then the item's root identifier when nothing else matched. A
// later strategy only replaces the running result when it yields a non-empty
// value. Resolve returns "" when no strategy produced a reference.
func (p Policy) Resolve(res Resource, itemXML string) string {
	var reference string

	if p.UseMetadataIdentifier {
		if v := strings.TrimSpace(res.MetadataIdentifier()); v != "" {
			reference = v
		}
	}
	if p.UseResourceIdentifier {
		if v := strings.TrimSpace(res.Identifier()); v != "" {
			reference = v
		}
	}
	if p.UseFileNameAsIdentifier {
		if v := strings.TrimSpace(res.FileBaseName()); v != "" {
			reference = v
		}
	}
	if p.UseItemIdentifier && reference == "" {
		if v, err := ItemIdentifier(itemXML); err == nil {
			reference = v
		}
	}

	return reference
}
