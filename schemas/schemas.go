// Package schemas embeds the JSON Schemas describing the converter's output
// files.
package schemas

import "embed"

// Schema file names.
const (
	JobLog     = "job_log.schema.json"
	RawResults = "raw_results.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Read returns the content of an embedded schema.
func Read(name string) ([]byte, error) {
	return files.ReadFile(name)
}

// Names lists the embedded schemas.
func Names() []string {
	return []string{JobLog, RawResults}
}
