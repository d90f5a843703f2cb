package mapping

import (
	"fmt"
	"strconv"

	"github.com/antchfx/xmlquery"

	"github.com/elearning-innovation/learnosity-qti/internal/qtixml"
	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// Learnosity question types produced by the default mapper.
const (
	QuestionMCQ       = "mcq"
	QuestionShortText = "shorttext"
	QuestionLongText  = "longtextV2"
	QuestionOrderList = "orderlist"
)

type interactionMapper func(node, decl *xmlquery.Node, score int, assumptions *Assumptions) (*types.Map, error)

var interactionMappers = map[string]interactionMapper{
	"choiceInteraction":       mapChoice,
	"textEntryInteraction":    mapTextEntry,
	"extendedTextInteraction": mapExtendedText,
	"orderInteraction":        mapOrder,
}

func mapInteraction(node, decl *xmlquery.Node, metadata map[string]any, assumptions *Assumptions) (*types.Map, error) {
	fn, ok := interactionMappers[node.Data]
	if !ok {
		return nil, &MappingError{Message: fmt.Sprintf("unsupported interaction <%s>", node.Data)}
	}
	if decl == nil {
		assumptions.Add("no responseDeclaration for %s %q; validation omitted", node.Data, qtixml.Attr(node, "responseIdentifier"))
	}
	return fn(node, decl, itemScore(metadata), assumptions)
}

// itemScore is the point value from the manifest metadata, or 1.
func itemScore(metadata map[string]any) int {
	if v, ok := metadata["point_value"].(int); ok && v > 0 {
		return v
	}
	return 1
}

func validation(score int, value types.Value) types.Value {
	return types.Object(types.NewMap().
		SetString("scoring_type", "exactMatch").
		Set("valid_response", types.Object(types.NewMap().
			Set("score", types.Int(score)).
			Set("value", value))))
}

func prompt(node *xmlquery.Node) string {
	return qtixml.InnerXML(qtixml.Child(node, "prompt"))
}

func mapChoice(node, decl *xmlquery.Node, score int, _ *Assumptions) (*types.Map, error) {
	choices := qtixml.Children(node, "simpleChoice")
	if len(choices) == 0 {
		return nil, &MappingError{Message: "choiceInteraction has no simpleChoice"}
	}

	options := make([]*types.Map, 0, len(choices))
	for _, c := range choices {
		options = append(options, types.NewMap().
			SetString("label", qtixml.InnerXML(c)).
			SetString("value", qtixml.Attr(c, "identifier")))
	}

	maxChoices, err := intAttr(node, "maxChoices", 1)
	if err != nil {
		return nil, err
	}

	data := types.NewMap().
		SetString("type", QuestionMCQ).
		SetString("stimulus", prompt(node)).
		Set("options", types.Records(options)).
		Set("multiple_responses", types.Bool(maxChoices != 1))
	if values := correctValues(decl); len(values) > 0 {
		data.Set("validation", validation(score, types.Strings(values)))
	}
	return data, nil
}

func mapTextEntry(node, decl *xmlquery.Node, score int, assumptions *Assumptions) (*types.Map, error) {
	data := types.NewMap().
		SetString("type", QuestionShortText).
		SetString("stimulus", "")
	if n, err := intAttr(node, "expectedLength", 0); err == nil && n > 0 {
		data.Set("max_length", types.Int(n))
	}

	values := correctValues(decl)
	if len(values) > 0 {
		data.Set("validation", validation(score, types.String(values[0])))
	}
	if len(values) > 1 {
		assumptions.Add("textEntryInteraction %q has %d correct values; kept the first", qtixml.Attr(node, "responseIdentifier"), len(values))
	}
	return data, nil
}

func mapExtendedText(node, _ *xmlquery.Node, _ int, assumptions *Assumptions) (*types.Map, error) {
	data := types.NewMap().
		SetString("type", QuestionLongText).
		SetString("stimulus", prompt(node))
	if n, err := intAttr(node, "expectedLength", 0); err == nil && n > 0 {
		data.Set("max_length", types.Int(n))
	}
	assumptions.Add("extendedTextInteraction %q mapped to %s with manual scoring", qtixml.Attr(node, "responseIdentifier"), QuestionLongText)
	return data, nil
}

func mapOrder(node, decl *xmlquery.Node, score int, _ *Assumptions) (*types.Map, error) {
	choices := qtixml.Children(node, "simpleChoice")
	if len(choices) == 0 {
		return nil, &MappingError{Message: "orderInteraction has no simpleChoice"}
	}

	positions := make(map[string]int, len(choices))
	list := make([]string, 0, len(choices))
	for i, c := range choices {
		positions[qtixml.Attr(c, "identifier")] = i
		list = append(list, qtixml.InnerXML(c))
	}

	data := types.NewMap().
		SetString("type", QuestionOrderList).
		SetString("stimulus", prompt(node)).
		Set("list", types.Strings(list))

	values := correctValues(decl)
	if len(values) == 0 {
		return data, nil
	}
	order := make([]types.Value, 0, len(values))
	for _, id := range values {
		pos, ok := positions[id]
		if !ok {
			return nil, &MappingError{Message: fmt.Sprintf("orderInteraction correct response references unknown choice %q", id)}
		}
		order = append(order, types.Int(pos))
	}
	data.Set("validation", validation(score, types.List(order...)))
	return data, nil
}

func intAttr(node *xmlquery.Node, name string, fallback int) (int, error) {
	raw := qtixml.Attr(node, name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &MappingError{Message: fmt.Sprintf("%s on <%s> is not an integer", name, node.Data), Cause: err}
	}
	return n, nil
}
