// Package scoring infers an item's Learnosity scoring type from its QTI
// response processing rules.
package scoring

import (
	"fmt"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/elearning-innovation/learnosity-qti/internal/qtixml"
)

// Type is a Learnosity item scoring type.
type Type string

const (
	ExactMatch   Type = "exactMatch"
	PartialMatch Type = "partialMatch"
	// None leaves item.metadata.scoring_type unset.
	None Type = ""
)

// NoneLabel is the count key used for items without an inferred type.
const NoneLabel = "none"

// Verdict is the result of classifying one item.
type Verdict struct {
	Type     Type
	Messages []string
}

// Classifier infers a scoring type from item XML. Implementations may return
// types beyond ExactMatch and PartialMatch; any non-empty type is written to
// item metadata as is.
type Classifier interface {
	Classify(itemXML string) (Verdict, error)
}

// RuleClassifier recognises the standard QTI response processing templates
// and the common inline rule shapes. It is stateless.
type RuleClassifier struct{}

var templateTypes = map[string]Type{
	"match_correct":      ExactMatch,
	"map_response":       PartialMatch,
	"map_response_point": PartialMatch,
}

// Classify returns the scoring type of itemXML. Only a document that is not an
// assessmentItem is an error; unrecognised rules classify as None with a
// message.
func (RuleClassifier) Classify(itemXML string) (Verdict, error) {
	doc, err := qtixml.Parse(itemXML)
	if err != nil {
		return Verdict{}, &InvalidItemError{Message: "cannot parse item XML", Cause: err}
	}
	root := qtixml.Root(doc)
	if root.Data != "assessmentItem" {
		return Verdict{}, &InvalidItemError{Message: "XML is not a valid <assessmentItem> document"}
	}
	id := qtixml.Attr(root, "identifier")

	rp := qtixml.Child(root, "responseProcessing")
	if rp == nil {
		return none("Item %s has no responseProcessing; scoring type not set", id), nil
	}

	if template := firstNonEmpty(qtixml.Attr(rp, "template"), qtixml.Attr(rp, "templateLocation")); template != "" {
		name := strings.TrimSuffix(path.Base(template), path.Ext(template))
		if t, ok := templateTypes[name]; ok {
			return Verdict{Type: t}, nil
		}
		return none("Item %s uses unrecognised response processing template %s; scoring type not set", id, template), nil
	}

	return classifyRules(id, rp), nil
}

func classifyRules(id string, rp *xmlquery.Node) Verdict {
	if len(qtixml.Descendants(rp, "mapResponse")) > 0 || len(qtixml.Descendants(rp, "mapResponsePoint")) > 0 {
		return Verdict{Type: PartialMatch}
	}

	correctMatches := 0
	for _, m := range qtixml.Descendants(rp, "match") {
		if qtixml.Child(m, "correct") != nil {
			correctMatches++
		}
	}
	summed := false
	for _, set := range qtixml.Descendants(rp, "setOutcomeValue") {
		if qtixml.Attr(set, "identifier") == "SCORE" && len(qtixml.Descendants(set, "sum")) > 0 {
			summed = true
			break
		}
	}

	switch {
	case correctMatches == 1:
		return Verdict{Type: ExactMatch}
	case correctMatches > 1 && summed:
		return Verdict{
			Type:     PartialMatch,
			Messages: []string{fmt.Sprintf("Item %s adds to SCORE for each of %d correct responses; assumed partialMatch", id, correctMatches)},
		}
	case correctMatches > 1:
		return Verdict{
			Type:     ExactMatch,
			Messages: []string{fmt.Sprintf("Item %s requires %d correct responses for SCORE; assumed exactMatch", id, correctMatches)},
		}
	}
	return none("Item %s has unrecognised response processing rules; scoring type not set", id)
}

func none(format string, args ...any) Verdict {
	return Verdict{Type: None, Messages: []string{fmt.Sprintf(format, args...)}}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
