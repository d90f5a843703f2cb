package mapping

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"

	"github.com/elearning-innovation/learnosity-qti/internal/qtixml"
	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// RubricReferenceSuffix is appended to an item reference to name its scorer
// rubric.
const RubricReferenceSuffix = "_rubric"

// viewCodes maps QTI rubricBlock views to Learnosity view codes.
var viewCodes = map[string]int{
	"candidate":       types.ViewCandidate,
	"author":          types.ViewAuthor,
	"scorer":          types.ViewScorer,
	"proctor":         types.ViewProctor,
	"testConstructor": types.ViewTestConstructor,
	"tutor":           types.ViewTutor,
}

// QTIMapper is the default ItemMapper.
type QTIMapper struct {
	// NewReference generates widget references. Defaults to random UUIDs.
	NewReference func() string
}

// NewQTIMapper returns a mapper that names widgets with random UUIDs.
func NewQTIMapper() *QTIMapper {
	return &QTIMapper{NewReference: uuid.NewString}
}

// MapItem maps one assessmentItem document.
func (m *QTIMapper) MapItem(in types.ConversionInput, assumptions *Assumptions) (*Output, error) {
	doc, err := qtixml.Parse(in.XML)
	if err != nil {
		return nil, &MappingError{Message: "cannot parse item XML", Cause: err}
	}
	root := qtixml.Root(doc)
	if root.Data != "assessmentItem" {
		return nil, &MappingError{Message: "XML is not a valid <assessmentItem> document"}
	}

	reference := in.ItemReference
	if reference == "" {
		reference = qtixml.Attr(root, "identifier")
	}
	if reference == "" {
		return nil, &MappingError{Message: "assessmentItem has no identifier"}
	}

	body := qtixml.Child(root, "itemBody")
	if body == nil {
		return nil, &MappingError{Message: "assessmentItem has no itemBody"}
	}

	interactions := findInteractions(body)
	if len(interactions) == 0 {
		return nil, ErrIntroOutro
	}

	declarations := responseDeclarations(root)
	questions := make([]*types.Map, 0, len(interactions))
	for _, node := range interactions {
		data, err := mapInteraction(node, declarations[qtixml.Attr(node, "responseIdentifier")], in.Metadata, assumptions)
		if err != nil {
			return nil, err
		}
		questions = append(questions, types.NewMap().
			SetString("reference", m.newReference()).
			SetString("type", data.Text("type")).
			SetString(types.FieldWidgetType, WidgetResponse).
			SetString(types.FieldItemReference, reference).
			SetString(types.FieldContent, node.OutputXML(true)).
			Set("data", types.Object(data)))
	}

	var features, scorerFeatures []*types.Map
	for _, block := range qtixml.Descendants(root, "rubricBlock") {
		feature := m.mapRubricBlock(block, reference, assumptions)
		features = append(features, feature)
		if view, _ := types.ViewCode(feature); view == types.ViewScorer {
			scorerFeatures = append(scorerFeatures, feature)
		}
	}

	item := newItemRecord(reference, qtixml.Attr(root, "title"), in.Metadata)
	attachWidgets(item, questions, features)

	out := &Output{Item: item, Questions: questions, Features: features}
	if len(scorerFeatures) > 0 {
		rubricRef := reference + RubricReferenceSuffix
		clones := make([]*types.Map, 0, len(scorerFeatures))
		for _, f := range scorerFeatures {
			clones = append(clones, f.Clone())
		}
		out.Rubric = types.NewMap().
			SetString("reference", rubricRef).
			Set("features", types.Records(clones))
		item.Map("metadata").SetString(types.FieldRubricReference, rubricRef)
	}
	return out, nil
}

func (m *QTIMapper) newReference() string {
	if m.NewReference == nil {
		return uuid.NewString()
	}
	return m.NewReference()
}

func (m *QTIMapper) mapRubricBlock(block *xmlquery.Node, itemReference string, assumptions *Assumptions) *types.Map {
	view := types.ViewCandidate
	views := strings.Fields(qtixml.Attr(block, "view"))
	matched := false
	for _, v := range views {
		code, ok := viewCodes[v]
		if !ok {
			continue
		}
		if !matched || code == types.ViewScorer {
			view = code
			matched = true
		}
	}
	if !matched {
		assumptions.Add("rubricBlock in %s has no recognised view %q; assumed candidate view", itemReference, qtixml.Attr(block, "view"))
	}

	content := qtixml.InnerXML(block)
	return types.NewMap().
		SetString("reference", m.newReference()).
		SetString("type", "sharedpassage").
		SetString(types.FieldWidgetType, WidgetFeature).
		SetString(types.FieldItemReference, itemReference).
		SetString(types.FieldContent, block.OutputXML(true)).
		Set("view", types.Int(view)).
		Set("data", types.Object(types.NewMap().
			SetString("type", "sharedpassage").
			SetString("content", content)))
}

// findInteractions returns the interaction elements of an item body in
// document order, not descending into interactions.
func findInteractions(body *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for _, c := range qtixml.Children(n, "") {
			if strings.HasSuffix(c.Data, "Interaction") {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(body)
	return out
}

func responseDeclarations(root *xmlquery.Node) map[string]*xmlquery.Node {
	out := make(map[string]*xmlquery.Node)
	for _, d := range qtixml.Children(root, "responseDeclaration") {
		out[qtixml.Attr(d, "identifier")] = d
	}
	return out
}

// correctValues returns the correctResponse values of a declaration.
func correctValues(decl *xmlquery.Node) []string {
	var values []string
	for _, v := range qtixml.Children(qtixml.Child(decl, "correctResponse"), "value") {
		values = append(values, qtixml.Text(v))
	}
	return values
}
