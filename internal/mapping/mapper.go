// Package mapping turns QTI item and passage documents into Learnosity item,
// question and feature records.
package mapping

import (
	"fmt"

	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// Widget kinds carried in the transient widget_type field.
const (
	WidgetResponse = "response"
	WidgetFeature  = "feature"
)

// Output is what a mapper produces for one resource.
type Output struct {
	Item      *types.Map
	Questions []*types.Map
	Features  []*types.Map
	Messages  []string
	Rubric    *types.Map
}

// ItemMapper maps a QTI assessment item.
type ItemMapper interface {
	MapItem(in types.ConversionInput, assumptions *Assumptions) (*Output, error)
}

// PassageMapper maps a shared passage web content resource.
type PassageMapper interface {
	MapPassage(in types.ConversionInput, assumptions *Assumptions) (*Output, error)
}

// Assumptions collects the heuristic decisions made while mapping one
// resource. A fresh value is used for every conversion call.
type Assumptions struct {
	entries []string
}

// Add records one assumption.
func (a *Assumptions) Add(format string, args ...any) {
	a.entries = append(a.entries, fmt.Sprintf(format, args...))
}

// Len returns the number of recorded assumptions.
func (a *Assumptions) Len() int {
	return len(a.entries)
}

// Flush returns the recorded assumptions and empties the accumulator.
func (a *Assumptions) Flush() []string {
	out := a.entries
	a.entries = nil
	return out
}

// newItemRecord builds the fields shared by every mapped item.
func newItemRecord(reference, title string, metadata map[string]any) *types.Map {
	item := types.NewMap().
		SetString("reference", reference).
		SetString("status", types.StatusPublished)
	if title != "" {
		item.SetString("title", title)
	}
	meta, _ := types.FromAny(metadata).AsMap()
	if meta == nil {
		meta = types.NewMap()
	}
	item.Set("metadata", types.Object(meta))
	return item
}

// attachWidgets fills the item's definition and reference lists from the
// mapped questions and features.
func attachWidgets(item *types.Map, questions, features []*types.Map) {
	widgets := make([]*types.Map, 0, len(questions)+len(features))
	questionRefs := make([]*types.Map, 0, len(questions))
	featureRefs := make([]*types.Map, 0, len(features))

	for _, q := range questions {
		ref := q.Text("reference")
		widgets = append(widgets, types.NewMap().SetString("reference", ref))
		questionRefs = append(questionRefs, types.NewMap().
			SetString("reference", ref).
			SetString("type", q.Text("type")))
	}
	for _, f := range features {
		ref := f.Text("reference")
		widgets = append(widgets, types.NewMap().SetString("reference", ref))
		featureRefs = append(featureRefs, types.NewMap().
			SetString("reference", ref).
			SetString("type", f.Text("type")))
	}

	item.Set("definition", types.Object(types.NewMap().
		SetString("template", "dynamic").
		Set("widgets", types.Records(widgets))))
	item.Set("questions", types.Records(questionRefs))
	item.Set("features", types.Records(featureRefs))
}
