// Package normalize prepares source XML for mapping and strips mapping-only
// fields from converted records.
package normalize

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	declEncodingPattern = regexp.MustCompile(`^(<\?xml[^>]*?encoding\s*=\s*["'])([^"']+)(["'][^>]*\?>)`)
	entityPattern       = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*);`)
)

// htmlEntities lists HTML named entities that commonly leak into QTI content
// but are not predefined in XML.
var htmlEntities = map[string]string{
	"nbsp":   "&#160;",
	"ndash":  "&#8211;",
	"mdash":  "&#8212;",
	"lsquo":  "&#8216;",
	"rsquo":  "&#8217;",
	"ldquo":  "&#8220;",
	"rdquo":  "&#8221;",
	"hellip": "&#8230;",
	"copy":   "&#169;",
	"reg":    "&#174;",
	"trade":  "&#8482;",
	"times":  "&#215;",
	"divide": "&#247;",
	"deg":    "&#176;",
	"plusmn": "&#177;",
	"minus":  "&#8722;",
	"frac12": "&#189;",
}

// PreProcess returns a UTF-8, NFC-normalised copy of an XML document with LF
// line endings, no leading whitespace or BOM, and HTML-only entities replaced
// by numeric character references.
func PreProcess(xmlString string) (string, error) {
	s, err := toUTF8(xmlString)
	if err != nil {
		return "", err
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimLeft(s, " \t\r\n")

	s = entityPattern.ReplaceAllStringFunc(s, func(entity string) string {
		name := entity[1 : len(entity)-1]
		if ref, ok := htmlEntities[name]; ok {
			return ref
		}
		return entity
	})

	return norm.NFC.String(s), nil
}

// toUTF8 transcodes documents that carry a BOM or declare a non UTF-8 encoding
// and rewrites the declaration to match.
func toUTF8(s string) (string, error) {
	b := []byte(s)
	switch {
	case bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}):
		s = string(b[3:])
	case bytes.HasPrefix(b, []byte{0xFF, 0xFE}), bytes.HasPrefix(b, []byte{0xFE, 0xFF}):
		decoded, _, err := transform.String(unicode.BOMOverride(unicode.UTF8.NewDecoder()), s)
		if err != nil {
			return "", &EncodingError{Label: "utf-16", Cause: err}
		}
		s = decoded
	}

	trimmed := strings.TrimLeft(s, " \t\r\n")
	m := declEncodingPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return s, nil
	}
	label := strings.ToLower(strings.TrimSpace(m[2]))
	if label == "utf-8" || label == "utf8" {
		return s, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", &EncodingError{Label: label, Cause: err}
	}
	name, _ := htmlindex.Name(enc)
	if name != "utf-8" && !strings.HasPrefix(name, "utf-16") {
		decoded, err := enc.NewDecoder().String(trimmed)
		if err != nil {
			return "", &EncodingError{Label: label, Cause: err}
		}
		trimmed = decoded
	}
	return declEncodingPattern.ReplaceAllString(trimmed, "${1}UTF-8${3}"), nil
}

// CharsetReader adapts x/text encodings for encoding/xml decoders reading
// documents that declare a non UTF-8 charset.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.ToLower(strings.TrimSpace(label)))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
