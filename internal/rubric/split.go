// Package rubric moves an item's scorer-only rubric feature into a standalone
// item of its own.
package rubric

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// Splitter extracts scorer rubrics from converted results.
type Splitter struct {
	// NewReference names a standalone item when neither the rubric nor the
	// feature carries a reference. Defaults to random UUIDs.
	NewReference func() string
}

// Split removes every scorer-view feature from result and returns a
// standalone rubric item built from the last one, or nil when the result has
// no rubric or no scorer feature. result.Rubric is always cleared.
func (s Splitter) Split(result *types.ConversionResult) *types.ConversionResult {
	if result == nil {
		return nil
	}
	rubric := result.Rubric
	result.Rubric = nil
	if rubric == nil {
		return nil
	}

	// Only referenced scorer features can be matched against item features.
	candidates := make(map[string]bool)
	var last *types.Map
	for _, f := range rubric.Records("features") {
		if isScorer(f) {
			if ref := f.Text("reference"); ref != "" {
				candidates[ref] = true
			}
			last = f
		}
	}

	var extracted *types.Map
	var removed []string
	kept := make([]*types.Map, 0, len(result.Features))
	for _, f := range result.Features {
		ref := f.Text("reference")
		if candidates[ref] || isScorer(f) {
			extracted = f
			removed = append(removed, ref)
			continue
		}
		kept = append(kept, f)
	}
	result.Features = kept

	if extracted == nil && last != nil {
		extracted = last.Clone()
	}
	if extracted == nil {
		return nil
	}

	for _, ref := range removed[:max(len(removed)-1, 0)] {
		result.Messages = append(result.Messages,
			fmt.Sprintf("Scorer rubric feature %s dropped; only the last scorer rubric of an item is kept", ref))
	}
	dropReferences(result.Item, removed)

	return s.standalone(rubric, extracted)
}

func (s Splitter) standalone(rubric, feature *types.Map) *types.ConversionResult {
	featureRef := feature.Text("reference")
	reference := rubric.Text("reference")
	if reference == "" {
		reference = featureRef
	}
	if reference == "" {
		if s.NewReference != nil {
			reference = s.NewReference()
		} else {
			reference = uuid.NewString()
		}
	}

	item := types.NewMap().
		SetString("reference", reference).
		SetString("status", types.StatusPublished).
		Set("questions", types.List()).
		Set("definition", types.Object(types.NewMap().
			SetString("template", "dynamic").
			Set("widgets", types.Records([]*types.Map{types.NewMap().SetString("reference", featureRef)})))).
		Set("features", types.Records([]*types.Map{types.NewMap().SetString("reference", featureRef)}))

	return &types.ConversionResult{
		Status:     types.StatusConverted,
		Item:       item,
		Features:   []*types.Map{feature},
		Questions:  []*types.Map{},
		RubricItem: true,
	}
}

func isScorer(feature *types.Map) bool {
	view, ok := types.ViewCode(feature)
	return ok && view == types.ViewScorer
}

// dropReferences removes widget and feature entries of item that point at
// any of refs.
func dropReferences(item *types.Map, refs []string) {
	if item == nil || len(refs) == 0 {
		return
	}
	drop := make(map[string]bool, len(refs))
	for _, r := range refs {
		drop[r] = true
	}
	filter := func(records []*types.Map) types.Value {
		out := make([]*types.Map, 0, len(records))
		for _, r := range records {
			if !drop[r.Text("reference")] {
				out = append(out, r)
			}
		}
		return types.Records(out)
	}

	if def := item.Map("definition"); def != nil && def.Has("widgets") {
		def.Set("widgets", filter(def.Records("widgets")))
	}
	if item.Has("features") {
		item.Set("features", filter(item.Records("features")))
	}
}
