package normalize

import "github.com/elearning-innovation/learnosity-qti/internal/types"

var transientRecordFields = []string{
	types.FieldWidgetType,
	types.FieldItemReference,
	types.FieldContent,
}

// RemoveUnusedData drops the mapping-only fields from a result's questions and
// features and the rubric back-reference from its item metadata. It is
// idempotent.
func RemoveUnusedData(result *types.ConversionResult) {
	if result == nil {
		return
	}
	for _, q := range result.Questions {
		removeFields(q)
	}
	for _, f := range result.Features {
		removeFields(f)
	}
	result.Item.Map("metadata").Delete(types.FieldRubricReference)
}

func removeFields(record *types.Map) {
	for _, field := range transientRecordFields {
		record.Delete(field)
	}
}
