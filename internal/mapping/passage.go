package mapping

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// FeatureSharedPassage is the Learnosity feature type for passages.
const FeatureSharedPassage = "sharedpassage"

// HTMLPassageMapper is the default PassageMapper. It turns a web content
// document into an item holding one shared passage feature.
type HTMLPassageMapper struct {
	NewReference func() string
}

// NewHTMLPassageMapper returns a passage mapper using random UUIDs.
func NewHTMLPassageMapper() *HTMLPassageMapper {
	return &HTMLPassageMapper{NewReference: uuid.NewString}
}

// MapPassage maps one HTML passage document.
func (m *HTMLPassageMapper) MapPassage(in types.ConversionInput, assumptions *Assumptions) (*Output, error) {
	if in.ItemReference == "" {
		return nil, &MappingError{Message: "passage has no reference"}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.XML))
	if err != nil {
		return nil, &MappingError{Message: "cannot parse passage HTML", Cause: err}
	}

	doc.Find("script").Remove()
	body := doc.Find("body")
	content, err := body.Html()
	if err != nil {
		return nil, &MappingError{Message: "cannot render passage HTML", Cause: err}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &MappingError{Message: "passage has no content"}
	}

	heading := strings.TrimSpace(doc.Find("head > title").First().Text())
	if heading == "" {
		heading = strings.TrimSpace(body.Find("h1,h2,h3").First().Text())
		if heading != "" {
			assumptions.Add("passage %s has no <title>; used its first heading", in.ItemReference)
		}
	}

	data := types.NewMap().
		SetString("type", FeatureSharedPassage).
		SetString("content", content)
	if heading != "" {
		data.SetString("heading", heading)
	}

	newReference := m.NewReference
	if newReference == nil {
		newReference = uuid.NewString
	}
	feature := types.NewMap().
		SetString("reference", newReference()).
		SetString("type", FeatureSharedPassage).
		SetString(types.FieldWidgetType, WidgetFeature).
		SetString(types.FieldItemReference, in.ItemReference).
		SetString(types.FieldContent, content).
		Set("data", types.Object(data))

	item := newItemRecord(in.ItemReference, heading, in.Metadata)
	features := []*types.Map{feature}
	attachWidgets(item, nil, features)

	return &Output{Item: item, Features: features}, nil
}
