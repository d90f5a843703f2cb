package identifier

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/elearning-innovation/learnosity-qti/internal/normalize"
)

var identifierAttrPattern = regexp.MustCompile(`(\sidentifier\s*=\s*)("[^"]*"|'[^']*')`)

// ItemIdentifier returns the identifier attribute of the document's root
// element.
func ItemIdentifier(itemXML string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(itemXML))
	dec.CharsetReader = normalize.CharsetReader

	start, _, _, err := rootElement(dec)
	if err != nil {
		return "", err
	}
	for _, a := range start.Attr {
		if a.Name.Local == "identifier" && a.Name.Space == "" {
			return strings.TrimSpace(a.Value), nil
		}
	}
	return "", nil
}

// EnsureItemIdentifier returns itemXML with the root identifier set to
// reference when it is missing or empty. Everything outside the root start
// tag is left byte for byte. itemXML must be UTF-8.
func EnsureItemIdentifier(itemXML, reference string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(itemXML))

	start, from, to, err := rootElement(dec)
	if err != nil {
		return "", err
	}
	for _, a := range start.Attr {
		if a.Name.Local == "identifier" && a.Name.Space == "" && strings.TrimSpace(a.Value) != "" {
			return itemXML, nil
		}
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(reference)); err != nil {
		return "", &DocumentError{Message: "cannot escape reference", Cause: err}
	}

	tag := itemXML[from:to]
	if loc := identifierAttrPattern.FindStringSubmatchIndex(tag); loc != nil {
		tag = tag[:loc[3]] + `"` + escaped.String() + `"` + tag[loc[5]:]
	} else {
		name := start.Name.Local
		if start.Name.Space != "" {
			name = start.Name.Space + ":" + name
		}
		insertAt := len("<") + len(name)
		tag = tag[:insertAt] + ` identifier="` + escaped.String() + `"` + tag[insertAt:]
	}

	return itemXML[:from] + tag + itemXML[to:], nil
}

// rootElement reads up to the first start element and returns it with the
// byte range of its start tag.
func rootElement(dec *xml.Decoder) (xml.StartElement, int, int, error) {
	for {
		from := int(dec.InputOffset())
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, 0, 0, &DocumentError{Message: "document has no root element"}
			}
			return xml.StartElement{}, 0, 0, &DocumentError{Message: "cannot parse item XML", Cause: err}
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, from, int(dec.InputOffset()), nil
		}
	}
}
