// Package layout turns raw per-directory conversion files into the final
// import layout of flat item, question and feature lists.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// File describes one written final file.
type File struct {
	Path      string
	Items     int
	Questions int
	Features  int
}

// Execute reads every raw/*.json file in rawDir and writes finalDir/<name>.json
// holding {"items": [...], "questions": [...], "features": [...]}. Entries
// without an item are skipped.
func Execute(rawDir, finalDir string) ([]File, error) {
	matches, err := filepath.Glob(filepath.Join(rawDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list raw files: %w", err)
	}
	sort.Strings(matches)

	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create final directory: %w", err)
	}

	files := make([]File, 0, len(matches))
	for _, rawPath := range matches {
		f, err := convertFile(rawPath, filepath.Join(finalDir, filepath.Base(rawPath)))
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

func convertFile(rawPath, finalPath string) (File, error) {
	data, err := os.ReadFile(rawPath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", rawPath, err)
	}

	var raw types.Map
	if err := raw.UnmarshalJSON(data); err != nil {
		return File{}, fmt.Errorf("failed to parse %s: %w", rawPath, err)
	}
	entries := raw.Map("qtiitems")

	var items, questions, features []*types.Map
	for _, key := range entries.Keys() {
		entry := entries.Map(key)
		item := entry.Map("item")
		if item == nil {
			continue
		}
		items = append(items, item)
		questions = append(questions, entry.Records("questions")...)
		features = append(features, entry.Records("features")...)
	}

	out := types.NewMap().
		Set("items", types.Records(items)).
		Set("questions", types.Records(questions)).
		Set("features", types.Records(features))
	encoded, err := out.MarshalJSON()
	if err != nil {
		return File{}, fmt.Errorf("failed to encode %s: %w", finalPath, err)
	}
	if err := os.WriteFile(finalPath, encoded, 0o644); err != nil {
		return File{}, fmt.Errorf("failed to write %s: %w", finalPath, err)
	}

	return File{
		Path:      finalPath,
		Items:     len(items),
		Questions: len(questions),
		Features:  len(features),
	}, nil
}
