package mapping

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

func sequentialRefs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

const choiceItem = `<?xml version="1.0" encoding="UTF-8"?>
<assessmentItem xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1" identifier="Q1" title="Capitals" adaptive="false" timeDependent="false">
  <responseDeclaration identifier="RESPONSE" cardinality="single" baseType="identifier">
    <correctResponse><value>B</value></correctResponse>
  </responseDeclaration>
  <outcomeDeclaration identifier="SCORE" cardinality="single" baseType="float"/>
  <itemBody>
    <rubricBlock view="scorer"><p>Award 1 point for Paris.</p></rubricBlock>
    <rubricBlock view="candidate"><p>Read carefully.</p></rubricBlock>
    <choiceInteraction responseIdentifier="RESPONSE" shuffle="false" maxChoices="1">
      <prompt>Capital of France?</prompt>
      <simpleChoice identifier="A">Lyon</simpleChoice>
      <simpleChoice identifier="B">Paris</simpleChoice>
    </choiceInteraction>
  </itemBody>
  <responseProcessing template="http://www.imsglobal.org/question/qti_v2p1/rptemplates/match_correct"/>
</assessmentItem>`

func TestQTIMapper_ChoiceItem(t *testing.T) {
	m := &QTIMapper{NewReference: sequentialRefs("w")}
	var assumptions Assumptions

	out, err := m.MapItem(types.ConversionInput{
		XML:           choiceItem,
		Kind:          types.ResourceItem2p1,
		ItemReference: "REF-1",
		Metadata:      map[string]any{"organisation_id": 9, "point_value": 2},
	}, &assumptions)
	require.NoError(t, err)

	require.Len(t, out.Questions, 1)
	q := out.Questions[0]
	assert.Equal(t, "w-1", q.Text("reference"))
	assert.Equal(t, QuestionMCQ, q.Text("type"))
	assert.Equal(t, WidgetResponse, q.Text(types.FieldWidgetType))
	assert.Equal(t, "REF-1", q.Text(types.FieldItemReference))
	assert.Contains(t, q.Text(types.FieldContent), "choiceInteraction")

	qJSON, err := q.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "Capital of France?", gjson.GetBytes(qJSON, "data.stimulus").String())
	assert.Equal(t, "Paris", gjson.GetBytes(qJSON, "data.options.1.label").String())
	assert.Equal(t, int64(2), gjson.GetBytes(qJSON, "data.validation.valid_response.score").Int())
	assert.Equal(t, "B", gjson.GetBytes(qJSON, "data.validation.valid_response.value.0").String())
	assert.False(t, gjson.GetBytes(qJSON, "data.multiple_responses").Bool())

	require.Len(t, out.Features, 2)
	scorer, _ := types.ViewCode(out.Features[0])
	candidate, _ := types.ViewCode(out.Features[1])
	assert.Equal(t, types.ViewScorer, scorer)
	assert.Equal(t, types.ViewCandidate, candidate)

	item := out.Item
	assert.Equal(t, "REF-1", item.Text("reference"))
	assert.Equal(t, types.StatusPublished, item.Text("status"))
	assert.Equal(t, "Capitals", item.Text("title"))
	assert.Equal(t, "REF-1_rubric", item.Map("metadata").Text(types.FieldRubricReference))

	var widgetRefs []string
	for _, w := range item.Map("definition").Records("widgets") {
		widgetRefs = append(widgetRefs, w.Text("reference"))
	}
	assert.Empty(t, cmp.Diff([]string{"w-1", "w-2", "w-3"}, widgetRefs))

	require.NotNil(t, out.Rubric)
	assert.Equal(t, "REF-1_rubric", out.Rubric.Text("reference"))
	rubricFeatures := out.Rubric.Records("features")
	require.Len(t, rubricFeatures, 1)
	assert.Equal(t, "w-2", rubricFeatures[0].Text("reference"))

	assert.Zero(t, assumptions.Len())
}

func TestQTIMapper_InteractionTypes(t *testing.T) {
	doc := `<assessmentItem identifier="MIX">
  <responseDeclaration identifier="R1"><correctResponse><value>blue</value><value>Blue</value></correctResponse></responseDeclaration>
  <responseDeclaration identifier="R3"><correctResponse><value>C2</value><value>C1</value></correctResponse></responseDeclaration>
  <itemBody>
    <p>Sky is <textEntryInteraction responseIdentifier="R1" expectedLength="10"/>.</p>
    <extendedTextInteraction responseIdentifier="R2"><prompt>Explain.</prompt></extendedTextInteraction>
    <orderInteraction responseIdentifier="R3">
      <simpleChoice identifier="C1">first</simpleChoice>
      <simpleChoice identifier="C2">second</simpleChoice>
    </orderInteraction>
  </itemBody>
</assessmentItem>`

	var assumptions Assumptions
	out, err := NewQTIMapper().MapItem(types.ConversionInput{XML: doc, Kind: types.ResourceItem2p1}, &assumptions)
	require.NoError(t, err)

	var kinds []string
	for _, q := range out.Questions {
		kinds = append(kinds, q.Text("type"))
	}
	assert.Equal(t, []string{QuestionShortText, QuestionLongText, QuestionOrderList}, kinds)
	assert.Equal(t, "MIX", out.Item.Text("reference"), "falls back to the item identifier")
	assert.Nil(t, out.Rubric)

	order, err := out.Questions[2].MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[1,0]", gjson.GetBytes(order, "data.validation.valid_response.value").Raw)

	flushed := assumptions.Flush()
	assert.Len(t, flushed, 3, "multiple text entry values, manual longtext scoring, missing R2 declaration")
	assert.Zero(t, assumptions.Len())
}

func TestQTIMapper_Errors(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		introOK bool
	}{
		{name: "not an item", xml: `<assessmentTest identifier="T"/>`},
		{name: "malformed", xml: `<assessmentItem identifier="X"><itemBody></assessmentItem>`},
		{name: "no body", xml: `<assessmentItem identifier="X"/>`},
		{name: "unsupported interaction", xml: `<assessmentItem identifier="X"><itemBody><hotspotInteraction responseIdentifier="R"/></itemBody></assessmentItem>`},
		{name: "intro", xml: `<assessmentItem identifier="X"><itemBody><p>Welcome</p></itemBody></assessmentItem>`, introOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQTIMapper().MapItem(types.ConversionInput{XML: tt.xml}, &Assumptions{})
			require.Error(t, err)
			if tt.introOK {
				assert.ErrorIs(t, err, ErrIntroOutro)
				return
			}
			var mappingErr *MappingError
			assert.ErrorAs(t, err, &mappingErr)
		})
	}
}

func TestHTMLPassageMapper(t *testing.T) {
	html := `<html><head><title>The River</title></head><body><p>Once upon a time.</p><script>alert(1)</script></body></html>`
	m := &HTMLPassageMapper{NewReference: sequentialRefs("p")}
	var assumptions Assumptions

	out, err := m.MapPassage(types.ConversionInput{
		XML:           html,
		Kind:          types.ResourcePassage,
		ItemReference: "passage1",
		Metadata:      map[string]any{"organisation_id": 1},
	}, &assumptions)
	require.NoError(t, err)

	assert.Empty(t, out.Questions)
	require.Len(t, out.Features, 1)
	f := out.Features[0]
	assert.Equal(t, "p-1", f.Text("reference"))
	assert.Equal(t, FeatureSharedPassage, f.Text("type"))
	assert.Equal(t, "The River", f.Map("data").Text("heading"))
	assert.Equal(t, "<p>Once upon a time.</p>", f.Map("data").Text("content"))
	assert.Equal(t, "The River", out.Item.Text("title"))
	assert.Zero(t, assumptions.Len())
}

func TestHTMLPassageMapper_Errors(t *testing.T) {
	m := NewHTMLPassageMapper()

	_, err := m.MapPassage(types.ConversionInput{XML: "<p>x</p>"}, &Assumptions{})
	assert.Error(t, err, "reference required")

	_, err = m.MapPassage(types.ConversionInput{XML: "<html><body>  </body></html>", ItemReference: "p"}, &Assumptions{})
	var mappingErr *MappingError
	assert.ErrorAs(t, err, &mappingErr)
}
