package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/elearning-innovation/learnosity-qti/internal/assets"
	"github.com/elearning-innovation/learnosity-qti/internal/mapping"
	"github.com/elearning-innovation/learnosity-qti/internal/normalize"
	"github.com/elearning-innovation/learnosity-qti/internal/scoring"
	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// Converter turns one resource into a conversion result. It holds no per-call
// state and is safe for concurrent use when its collaborators are.
type Converter struct {
	Items    mapping.ItemMapper
	Passages mapping.PassageMapper
	// Scoring infers item scoring types. Nil disables inference.
	Scoring scoring.Classifier
	Assets  *assets.Fixer

	OrganisationID  int
	ConvertPassages bool
}

// NewConverter returns a converter wired with the default mappers, the rule
// classifier and an asset fixer for assetsBaseURL.
func NewConverter(organisationID int, assetsBaseURL string) *Converter {
	return &Converter{
		Items:          mapping.NewQTIMapper(),
		Passages:       mapping.NewHTMLPassageMapper(),
		Scoring:        scoring.RuleClassifier{},
		Assets:         assets.NewFixer(assetsBaseURL),
		OrganisationID: organisationID,
	}
}

// Convert maps in and post-processes the mapped records. Errors never escape:
// a broken resource yields a failed result labelled with href, and an item
// without interactions yields a skipped result. The returned result may still
// carry a rubric for the splitter.
func (c *Converter) Convert(in types.ConversionInput, href string) (result *types.ConversionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = types.Failed(href, fmt.Errorf("unexpected error: %v", r))
		}
	}()

	assumptions := &mapping.Assumptions{}

	xml, err := normalize.PreProcess(in.XML)
	if err != nil {
		return types.Failed(href, err)
	}
	in.XML = xml

	var out *mapping.Output
	switch {
	case in.Kind.IsItem():
		out, err = c.Items.MapItem(in, assumptions)
	case in.Kind == types.ResourcePassage:
		if !c.ConvertPassages {
			return types.Skipped("passage conversion is disabled")
		}
		out, err = c.Passages.MapPassage(in, assumptions)
	default:
		err = fmt.Errorf("unsupported resource kind %q", in.Kind)
	}
	if errors.Is(err, mapping.ErrIntroOutro) {
		return types.Skipped(err.Error())
	}
	if err != nil {
		return types.Failed(href, err)
	}

	result = &types.ConversionResult{
		Status:    types.StatusConverted,
		Item:      out.Item,
		Questions: out.Questions,
		Features:  out.Features,
		Messages:  out.Messages,
		Rubric:    out.Rubric,
	}

	if c.Assets != nil {
		records := make([]*types.Map, 0, len(result.Questions)+len(result.Features))
		records = append(records, result.Questions...)
		records = append(records, result.Features...)
		records = append(records, result.Rubric.Records("features")...)
		_, fixed := c.Assets.Fix(records, c.OrganisationID, filepath.Dir(in.ResourcePath))
		for _, a := range fixed {
			if a.Missing {
				result.Messages = append(result.Messages, fmt.Sprintf("Asset %s is referenced but missing from the package", a.Source))
			}
		}
	}

	normalize.RemoveUnusedData(result)

	if c.Scoring != nil && in.Kind.IsItem() {
		verdict, err := c.Scoring.Classify(in.XML)
		if err != nil {
			return types.Failed(href, err)
		}
		if verdict.Type != scoring.None {
			result.Item.EnsureMap("metadata").SetString("scoring_type", string(verdict.Type))
		}
		result.Messages = append(result.Messages, verdict.Messages...)
	}

	tags := in.Tags
	if tags == nil {
		tags = map[string][]string{}
	}
	result.Item.Set("tags", types.FromAny(tags))

	result.Assumptions = assumptions.Flush()
	return result
}
