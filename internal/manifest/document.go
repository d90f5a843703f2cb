package manifest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/elearning-innovation/learnosity-qti/internal/qtixml"
	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

const (
	metadataIdentifierPath = ".//qti:metadata/lom:lom/lom:general/lom:identifier"
	pointValuePath         = "./qti:metadata/lom:lom/lom:classification/lom:taxonPath/lom:source/lom:string[normalize-space(text()) = 'cf$Point Value']/../../lom:taxon/lom:entry"

	// PointValueSource is the taxonPath source naming an item's point value.
	PointValueSource = "cf$Point Value"
)

// Document is a parsed manifest together with the query context used for
// every lookup against it.
type Document struct {
	Path  string
	Dir   string
	root  *xmlquery.Node
	query *qtixml.Query
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Message: "failed to read manifest", Cause: err}
	}
	return Parse(path, string(data))
}

// Parse parses manifest content previously read from path.
func Parse(path, content string) (*Document, error) {
	doc, err := qtixml.Parse(content)
	if err != nil {
		return nil, &ParseError{Path: path, Message: "malformed manifest XML", Cause: err}
	}
	return &Document{
		Path:  path,
		Dir:   filepath.Dir(path),
		root:  doc,
		query: qtixml.NewQuery(qtixml.PackageNamespaces),
	}, nil
}

// Resources extracts every resource of a recognised kind in document order.
// Extracted resources are detached from the manifest tree, so a second call
// only sees what the first one left behind.
func (d *Document) Resources() []*Resource {
	var resources []*Resource
	for _, node := range qtixml.Descendants(d.root, "resource") {
		kind, ok := types.ParseResourceKind(qtixml.Attr(node, "type"))
		if !ok {
			continue
		}
		xmlquery.RemoveFromTree(node)
		resources = append(resources, &Resource{
			Kind:  kind,
			Href:  resourceHref(node),
			node:  node,
			query: d.query,
			dir:   d.Dir,
		})
	}
	return resources
}

func resourceHref(node *xmlquery.Node) string {
	if href := qtixml.Attr(node, "href"); href != "" {
		return href
	}
	if file := qtixml.Child(node, "file"); file != nil {
		return qtixml.Attr(file, "href")
	}
	return ""
}

// Resource is one convertible entry of a manifest.
type Resource struct {
	Href string
	Kind types.ResourceKind

	node  *xmlquery.Node
	query *qtixml.Query
	dir   string
}

// Path returns the resource file path, resolved against the manifest directory.
func (r *Resource) Path() string {
	return filepath.Join(r.dir, filepath.FromSlash(r.Href))
}

// Identifier returns the resource's own identifier attribute.
func (r *Resource) Identifier() string {
	return qtixml.Attr(r.node, "identifier")
}

// FileBaseName returns the href's file name without its extension.
func (r *Resource) FileBaseName() string {
	base := filepath.Base(filepath.FromSlash(r.Href))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// MetadataIdentifier returns the LOM general identifier entry, or "".
func (r *Resource) MetadataIdentifier() string {
	identifier, err := r.query.First(r.node, metadataIdentifierPath)
	if err != nil || identifier == nil {
		return ""
	}
	entry, err := r.query.First(identifier, "./lom:entry")
	if err != nil {
		return ""
	}
	return qtixml.Text(entry)
}

// Tags returns the LOM taxonomy tags: taxonPath source mapped to the
// comma-separated values of its taxon entry. Blank values are dropped.
func (r *Resource) Tags() map[string][]string {
	paths, err := r.query.All(r.node, ".//lom:taxonPath")
	if err != nil {
		return nil
	}

	tags := make(map[string][]string)
	for _, path := range paths {
		source, _ := r.query.First(path, ".//lom:source/lom:string")
		entry, _ := r.query.First(path, ".//lom:taxon/lom:entry/lom:string")
		name := qtixml.Text(source)
		if name == "" || entry == nil {
			continue
		}

		var values []string
		for _, v := range strings.Split(qtixml.Text(entry), ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			tags[name] = values
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// PointValue returns the integer point value recorded in the resource's
// classification metadata.
func (r *Resource) PointValue() (int, bool) {
	entry, err := r.query.First(r.node, pointValuePath)
	if err != nil || entry == nil {
		return 0, false
	}
	n, err := strconv.Atoi(qtixml.Text(entry))
	if err != nil {
		return 0, false
	}
	return n, true
}
