package types

// Transient fields shepherd data between mapping stages and must never be
// persisted.
const (
	FieldWidgetType      = "widget_type"
	FieldItemReference   = "item_reference"
	FieldContent         = "content"
	FieldRubricReference = "rubric_reference"
)

// Learnosity view codes carried by features.
const (
	ViewCandidate       = 1
	ViewAuthor          = 2
	ViewScorer          = 3
	ViewProctor         = 4
	ViewTestConstructor = 5
	ViewTutor           = 6
)

// StatusPublished is the status given to every converted item.
const StatusPublished = "published"
