package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalschemas "github.com/elearning-innovation/learnosity-qti/internal/schemas"
	"github.com/elearning-innovation/learnosity-qti/schemas"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, name := range schemas.Names() {
		t.Run(name, func(t *testing.T) {
			data, err := schemas.Read(name)
			require.NoError(t, err, "should be able to read schema file")

			var schemaObj map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &schemaObj), "schema file should be valid JSON: %s", name)

			_, hasSchema := schemaObj["$schema"]
			_, hasType := schemaObj["type"]
			assert.True(t, hasSchema && hasType, "schema should declare $schema and type")
		})
	}
}

func TestJobLogSchema_AcceptsMinimalLog(t *testing.T) {
	schema, err := schemas.Read(schemas.JobLog)
	require.NoError(t, err)

	doc := `{
		"info": {"question_types": [], "item_scoring_types_counts": {"none": 0}, "rubric_count": 0, "item_count": 0},
		"imported_rubrics": [], "imported_items": [], "ignored_items": [], "warnings": {}
	}`
	assert.NoError(t, internalschemas.ValidateJSONString(string(schema), doc))
}

func TestRawResultsSchema_RejectsTransientFields(t *testing.T) {
	schema, err := schemas.Read(schemas.RawResults)
	require.NoError(t, err)

	doc := `{"qtiitems": {"pkg/a.xml": {
		"item": {"reference": "A", "status": "published"},
		"questions": [{"reference": "q1", "widget_type": "response"}],
		"features": [], "manifest": [], "assumptions": []
	}}}`
	err = internalschemas.ValidateJSONString(string(schema), doc)
	require.Error(t, err)

	var validationErr *internalschemas.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestRawResultsSchema_ScoringTypeIsOpen(t *testing.T) {
	schema, err := schemas.Read(schemas.RawResults)
	require.NoError(t, err)

	doc := func(scoringType string) string {
		return `{"qtiitems": {"pkg/a.xml": {
			"item": {"reference": "A", "status": "published", "metadata": {"scoring_type": "` + scoringType + `"}},
			"questions": [], "features": [], "manifest": [], "assumptions": []
		}}}`
	}

	for _, scoringType := range []string{"exactMatch", "partialMatch", "per-question"} {
		assert.NoError(t, internalschemas.ValidateJSONString(string(schema), doc(scoringType)), scoringType)
	}
	assert.Error(t, internalschemas.ValidateJSONString(string(schema), doc("")))
}
