package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseResourceKind(t *testing.T) {
	tests := []struct {
		input  string
		want   ResourceKind
		wantOK bool
		isItem bool
	}{
		{"imsqti_item_xmlv2p1", ResourceItem2p1, true, true},
		{"imsqti_item_xmlv2p0", ResourceItem2p0, true, true},
		{"webcontent", ResourcePassage, true, false},
		{"imsqti_test_xmlv2p1", "", false, false},
		{"", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseResourceKind(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.isItem, got.IsItem())
		})
	}
}

func TestFailed(t *testing.T) {
	r := Failed("items/q1.xml", errors.New("unsupported interaction <drawingInteraction>"))

	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "items/q1.xml-unsupported interaction <drawingInteraction>", r.Exception)

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"exception": "items/q1.xml-unsupported interaction <drawingInteraction>"}`, string(data))
}

func TestConversionResult_MarshalConverted(t *testing.T) {
	item := NewMap().
		SetString("reference", "Q1").
		Set("metadata", Object(NewMap().SetString("scoring_type", "per-question")))
	r := &ConversionResult{
		Status:    StatusConverted,
		Item:      item,
		Questions: []*Map{NewMap().SetString("type", "mcq")},
	}

	assert.Equal(t, "Q1", r.Reference())
	assert.Equal(t, "per-question", r.ScoringType())

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "Q1", gjson.GetBytes(data, "item.reference").String())
	assert.Equal(t, "[]", gjson.GetBytes(data, "features").Raw)
	assert.Equal(t, "[]", gjson.GetBytes(data, "manifest").Raw)
	assert.Equal(t, "[]", gjson.GetBytes(data, "assumptions").Raw)
	assert.False(t, gjson.GetBytes(data, "rubric").Exists(), "nil rubric is omitted")
}

func TestConversionResult_EmptyAccessors(t *testing.T) {
	r := Skipped("passage conversion is disabled")

	assert.Equal(t, StatusSkipped, r.Status)
	assert.Equal(t, "passage conversion is disabled", r.SkipReason)
	assert.Equal(t, "", r.Reference())
	assert.Equal(t, "", r.ScoringType())
}

func TestDirectoryResults(t *testing.T) {
	d := NewDirectoryResults()
	first := &ConversionResult{Status: StatusConverted, Item: NewMap().SetString("reference", "A")}
	d.Add("pkg/b.xml", first)
	d.Add("pkg/a.xml", Failed("a.xml", errors.New("boom")))
	d.Add("pkg/b.xml", &ConversionResult{Status: StatusConverted, Item: NewMap().SetString("reference", "B")})

	assert.Equal(t, []string{"pkg/b.xml", "pkg/a.xml"}, d.Keys(), "repeated keys keep their position")
	assert.Equal(t, 2, d.Len())

	got, ok := d.Get("pkg/b.xml")
	require.True(t, ok)
	assert.Equal(t, "B", got.Reference())

	converted := d.Converted()
	assert.Equal(t, []string{"pkg/b.xml"}, converted.Keys())

	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "B", gjson.GetBytes(data, `qtiitems.pkg/b\.xml.item.reference`).String())
	assert.Equal(t, "a.xml-boom", gjson.GetBytes(data, `qtiitems.pkg/a\.xml.exception`).String())

	var seen []string
	d.Each(func(key string, _ *ConversionResult) { seen = append(seen, key) })
	assert.Equal(t, d.Keys(), seen)
}

func TestViewCode(t *testing.T) {
	tests := []struct {
		name    string
		feature *Map
		want    int
		wantOK  bool
	}{
		{"number", NewMap().Set("view", Int(ViewScorer)), 3, true},
		{"string", NewMap().SetString("view", " 3 "), 3, true},
		{"garbage", NewMap().SetString("view", "scorer"), 0, false},
		{"fraction", NewMap().Set("view", Number(3.5)), 3, false},
		{"missing", NewMap(), 0, false},
		{"nil feature", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ViewCode(tt.feature)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
