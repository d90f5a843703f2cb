package types

import (
	"bytes"
	"encoding/json"
)

// ResourceKind is the manifest `type` attribute of a convertible resource.
type ResourceKind string

const (
	ResourceItem2p1 ResourceKind = "imsqti_item_xmlv2p1"
	ResourceItem2p0 ResourceKind = "imsqti_item_xmlv2p0"
	ResourcePassage ResourceKind = "webcontent"
)

// ParseResourceKind maps a manifest type attribute to a known kind.
func ParseResourceKind(s string) (ResourceKind, bool) {
	switch k := ResourceKind(s); k {
	case ResourceItem2p1, ResourceItem2p0, ResourcePassage:
		return k, true
	}
	return "", false
}

// IsItem reports whether k is a QTI assessment item kind.
func (k ResourceKind) IsItem() bool {
	return k == ResourceItem2p1 || k == ResourceItem2p0
}

// ConversionInput is everything the mappers need for one resource.
type ConversionInput struct {
	XML           string
	Kind          ResourceKind
	ItemReference string
	ResourcePath  string
	// Metadata holds scalar values only (organisation_id, point_value).
	Metadata map[string]any
	Tags     map[string][]string
}

// Status is the outcome of converting one resource.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// ConversionResult is the per-resource output. Failed results carry only
// Exception; skipped results are never persisted.
type ConversionResult struct {
	Status      Status
	Item        *Map
	Questions   []*Map
	Features    []*Map
	Messages    []string
	Rubric      *Map
	Assumptions []string

	Exception  string
	SkipReason string

	// RubricItem marks a standalone item split out of another item's scorer rubric.
	RubricItem bool
}

// Failed builds a failed result in the `<href>-<message>` form.
func Failed(href string, err error) *ConversionResult {
	return &ConversionResult{Status: StatusFailed, Exception: href + "-" + err.Error()}
}

// Skipped builds a skipped result.
func Skipped(reason string) *ConversionResult {
	return &ConversionResult{Status: StatusSkipped, SkipReason: reason}
}

// Reference returns the item reference, or "".
func (r *ConversionResult) Reference() string {
	return r.Item.Text("reference")
}

// ScoringType returns item.metadata.scoring_type, or "".
func (r *ConversionResult) ScoringType() string {
	return r.Item.Map("metadata").Text("scoring_type")
}

type failedJSON struct {
	Exception string `json:"exception"`
}

type convertedJSON struct {
	Item        *Map     `json:"item"`
	Questions   []*Map   `json:"questions"`
	Features    []*Map   `json:"features"`
	Manifest    []string `json:"manifest"`
	Rubric      *Map     `json:"rubric,omitempty"`
	Assumptions []string `json:"assumptions"`
}

// MarshalJSON writes failed results as {"exception": ...} and converted
// results with empty lists rather than nulls.
func (r *ConversionResult) MarshalJSON() ([]byte, error) {
	if r.Status == StatusFailed {
		return marshalNoEscape(failedJSON{Exception: r.Exception})
	}
	return marshalNoEscape(convertedJSON{
		Item:        r.Item,
		Questions:   nonNilRecords(r.Questions),
		Features:    nonNilRecords(r.Features),
		Manifest:    nonNilStrings(r.Messages),
		Rubric:      r.Rubric,
		Assumptions: nonNilStrings(r.Assumptions),
	})
}

func nonNilRecords(ms []*Map) []*Map {
	if ms == nil {
		return []*Map{}
	}
	return ms
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DirectoryResults holds the results of one manifest directory keyed by
// `<dirBaseName>/<resourceHref>`, in insertion order.
type DirectoryResults struct {
	keys    []string
	entries map[string]*ConversionResult
}

// NewDirectoryResults returns an empty container.
func NewDirectoryResults() *DirectoryResults {
	return &DirectoryResults{entries: make(map[string]*ConversionResult)}
}

// Add stores r under key. A repeated key replaces the earlier result in place.
func (d *DirectoryResults) Add(key string, r *ConversionResult) {
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = r
}

// Get returns the result stored under key.
func (d *DirectoryResults) Get(key string) (*ConversionResult, bool) {
	r, ok := d.entries[key]
	return r, ok
}

// Keys returns the keys in insertion order.
func (d *DirectoryResults) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of results.
func (d *DirectoryResults) Len() int { return len(d.keys) }

// Each calls fn for every result in insertion order.
func (d *DirectoryResults) Each(fn func(key string, r *ConversionResult)) {
	for _, k := range d.keys {
		fn(k, d.entries[k])
	}
}

// Converted returns a container holding only the converted results.
func (d *DirectoryResults) Converted() *DirectoryResults {
	out := NewDirectoryResults()
	d.Each(func(key string, r *ConversionResult) {
		if r != nil && r.Status == StatusConverted {
			out.Add(key, r)
		}
	})
	return out
}

// MarshalJSON writes {"qtiitems": {key: result, ...}}.
func (d *DirectoryResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"qtiitems":{`)
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		b, err := d.entries[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// ViewCode reads a feature's `view` discriminator, which may be stored as a
// number or a numeric string. Fractional numbers are not view codes.
func ViewCode(feature *Map) (int, bool) {
	return feature.Int("view")
}
