// Package assets rewrites media references in mapped records so they point
// at the organisation's asset store.
package assets

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// DefaultBaseURL is the asset host used when none is configured.
const DefaultBaseURL = "https://assets.learnosity.com"

var attrPattern = regexp.MustCompile(`(\s(?:src|data|href)\s*=\s*)("[^"]*"|'[^']*')`)

// mediaKeys are record fields whose string value is an asset path.
var mediaKeys = map[string]bool{
	"src":   true,
	"image": true,
	"audio": true,
	"video": true,
}

// mediaExtensions backs up mime.TypeByExtension, whose built-in table lacks
// most audio and video types.
var mediaExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// Asset is one rewritten reference.
type Asset struct {
	Source  string
	URL     string
	MIME    string
	Missing bool
}

// Fixer rewrites relative asset references.
type Fixer struct {
	BaseURL string
}

// NewFixer returns a fixer for baseURL, or DefaultBaseURL when empty.
func NewFixer(baseURL string) *Fixer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fixer{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Fix rewrites, in place, every relative src or data attribute, every href
// attribute naming a media file and every media-valued field of records.
// resourceDir locates the referenced files for MIME detection. It returns
// records together with the assets that were rewritten.
func (f *Fixer) Fix(records []*types.Map, orgID int, resourceDir string) ([]*types.Map, []Asset) {
	fx := fixing{fixer: f, orgID: orgID, dir: resourceDir, seen: make(map[string]int)}
	for _, r := range records {
		fx.fixMap(r)
	}
	return records, fx.assets
}

type fixing struct {
	fixer  *Fixer
	orgID  int
	dir    string
	assets []Asset
	seen   map[string]int
}

func (fx *fixing) fixMap(m *types.Map) {
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		if s, ok := v.AsString(); ok && mediaKeys[key] {
			if rewritten, ok := fx.rewrite(s, false); ok {
				m.SetString(key, rewritten)
			}
			continue
		}
		m.Set(key, fx.fixValue(v))
	}
}

func (fx *fixing) fixValue(v types.Value) types.Value {
	switch v.Kind() {
	case types.KindString:
		s, _ := v.AsString()
		return types.String(fx.fixHTML(s))
	case types.KindList:
		list, _ := v.AsList()
		out := make([]types.Value, len(list))
		for i, e := range list {
			out[i] = fx.fixValue(e)
		}
		return types.List(out...)
	case types.KindMap:
		m, _ := v.AsMap()
		fx.fixMap(m)
		return v
	}
	return v
}

func (fx *fixing) fixHTML(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	return attrPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := attrPattern.FindStringSubmatch(match)
		prefix, quoted := parts[1], parts[2]
		quote := quoted[:1]
		value := quoted[1 : len(quoted)-1]

		mediaOnly := strings.Contains(strings.ToLower(prefix), "href")
		rewritten, ok := fx.rewrite(value, mediaOnly)
		if !ok {
			return match
		}
		return prefix + quote + rewritten + quote
	})
}

// rewrite maps a relative reference to its asset URL. When mediaOnly is set
// only image, audio, video and PDF files are rewritten.
func (fx *fixing) rewrite(ref string, mediaOnly bool) (string, bool) {
	local, rel, ok := relativePath(ref)
	if !ok {
		return "", false
	}

	if i, ok := fx.seen[local]; ok {
		return fx.assets[i].URL, true
	}

	asset := Asset{Source: rel}
	file := filepath.Join(fx.dir, filepath.FromSlash(local))
	if _, err := os.Stat(file); err == nil {
		if detected, err := mimetype.DetectFile(file); err == nil {
			asset.MIME = detected.String()
		}
	} else {
		asset.Missing = true
	}
	if asset.MIME == "" || asset.MIME == "application/octet-stream" || strings.HasPrefix(asset.MIME, "text/plain") {
		ext := strings.ToLower(path.Ext(rel))
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			asset.MIME = byExt
		} else if media, ok := mediaExtensions[ext]; ok {
			asset.MIME = media
		}
	}
	if mediaOnly && !isMedia(asset.MIME) {
		return "", false
	}

	asset.URL = fmt.Sprintf("%s/organisations/%d/%s", fx.fixer.BaseURL, fx.orgID, rel)
	fx.seen[local] = len(fx.assets)
	fx.assets = append(fx.assets, asset)
	return asset.URL, true
}

// relativePath cleans a relative file reference. local keeps leading ".."
// segments and locates the file from the resource directory; rel drops them
// and names the file in the asset store. Absolute URLs, data URIs, fragments
// and rooted paths are left alone.
func relativePath(ref string) (local, rel string, ok bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "/") {
		return "", "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", "", false
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil {
		p = u.Path
	}
	local = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	rel = local
	for strings.HasPrefix(rel, "../") {
		rel = strings.TrimPrefix(rel, "../")
	}
	if rel == "." || rel == ".." || rel == "" {
		return "", "", false
	}
	return local, rel, true
}

func isMedia(mimeType string) bool {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	switch {
	case strings.HasPrefix(mimeType, "image/"),
		strings.HasPrefix(mimeType, "audio/"),
		strings.HasPrefix(mimeType, "video/"),
		mimeType == "application/pdf":
		return true
	}
	return false
}
