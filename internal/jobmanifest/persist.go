package jobmanifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// LogFileName is the base name of the job log.
const LogFileName = "convert-to-learnosity.log"

// appendSuffixLayout formats the timestamp suffix of append-mode logs
// (month-day-year-hourminutesecond).
const appendSuffixLayout = "01-02-06-150405"

// Validator checks encoded output before it is written.
type Validator func(data []byte) error

// FlushOptions controls where and whether the job log is written.
type FlushOptions struct {
	// Dir is the log directory.
	Dir string
	// Append gives the log a timestamp suffix instead of overwriting.
	Append bool
	// DryRun finalizes the log without writing it.
	DryRun   bool
	Now      func() time.Time
	Validate Validator
}

// LogPath returns the job log path for opts.
func (o FlushOptions) LogPath() string {
	name := LogFileName
	if o.Append {
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		name += "_" + now().Format(appendSuffixLayout)
	}
	return filepath.Join(o.Dir, name+".json")
}

// Flush finalizes the manifest and writes the job log. It succeeds once per
// manifest; later calls return ErrAlreadyFlushed. The returned path is empty
// in dry-run mode.
func (m *Manifest) Flush(opts FlushOptions) (*Log, string, error) {
	m.mu.Lock()
	if m.flushed {
		m.mu.Unlock()
		return nil, "", ErrAlreadyFlushed
	}
	m.flushed = true
	m.mu.Unlock()

	log := m.Finalize()
	if opts.DryRun {
		return log, "", nil
	}

	path := opts.LogPath()
	data, err := encode(log)
	if err != nil {
		return nil, "", &PersistError{Path: path, Message: "cannot encode job log", Cause: err}
	}
	if err := write(path, data, opts.Validate); err != nil {
		return nil, "", err
	}
	return log, path, nil
}

// Persist writes one directory's converted results to `<path>.json` and
// returns the written file path. Failed and skipped results are left out;
// failures are reported through the job log instead.
func Persist(results *types.DirectoryResults, path string, validate Validator) (string, error) {
	file := path + ".json"
	data, err := results.Converted().MarshalJSON()
	if err != nil {
		return "", &PersistError{Path: file, Message: "cannot encode results", Cause: err}
	}
	if err := write(file, data, validate); err != nil {
		return "", err
	}
	return file, nil
}

func write(path string, data []byte, validate Validator) error {
	if validate != nil {
		if err := validate(data); err != nil {
			return &PersistError{Path: path, Message: "output failed schema validation", Cause: err}
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &PersistError{Path: path, Message: "cannot create directory", Cause: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &PersistError{Path: path, Message: "cannot write file", Cause: err}
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
