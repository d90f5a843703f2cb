// Package pipeline provides the high-level orchestration for a conversion job.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elearning-innovation/learnosity-qti/internal/identifier"
	"github.com/elearning-innovation/learnosity-qti/internal/jobmanifest"
	"github.com/elearning-innovation/learnosity-qti/internal/layout"
	"github.com/elearning-innovation/learnosity-qti/internal/logging"
	"github.com/elearning-innovation/learnosity-qti/internal/manifest"
	"github.com/elearning-innovation/learnosity-qti/internal/normalize"
	"github.com/elearning-innovation/learnosity-qti/internal/rubric"
	"github.com/elearning-innovation/learnosity-qti/internal/schemas"
	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// Output subdirectories.
const (
	RawDir   = "raw"
	FinalDir = "final"
	LogDir   = "log"
)

// Progress steps.
const (
	StepManifest = "manifest"
	StepPersist  = "persist"
	StepJobLog   = "job_log"
	StepLayout   = "layout"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Input  string
	Output string
	Policy identifier.Policy

	SingleItem     bool
	DryRun         bool
	AppendLogs     bool
	ValidateOutput bool
	Workers        int

	Converter  *Converter // Required
	Splitter   rubric.Splitter
	Logger     *zap.SugaredLogger
	Now        func() time.Time
	OnProgress ProgressCallback
}

// Summary describes a finished run.
type Summary struct {
	Manifests       int
	RawFiles        []string
	FailedManifests []string
	Log             *jobmanifest.Log
	LogPath         string
	FinalFiles      []layout.File
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, step, message, path string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Step:    step,
			Message: message,
			Path:    path,
			Content: content,
		})
	}
}

// Preflight checks the options that must hold before any output is written.
func Preflight(opts RunOptions) []string {
	var messages []string
	if opts.Converter == nil {
		messages = append(messages, "No converter configured")
	}
	if opts.Output == "" {
		messages = append(messages, "The output path is required")
	}
	if opts.Input == "" {
		return append(messages, "The input path is required")
	}

	info, err := os.Stat(opts.Input)
	switch {
	case err != nil:
		messages = append(messages, fmt.Sprintf("The input path %q does not exist", opts.Input))
	case opts.SingleItem:
		if info.IsDir() {
			messages = append(messages, fmt.Sprintf("The input path %q must be an item file in single-item mode", opts.Input))
		}
	case !manifest.Exists(opts.Input):
		messages = append(messages, fmt.Sprintf("No %s found in %s", manifest.FileName, opts.Input))
	}
	return messages
}

// RunPipeline converts every manifest under opts.Input, or the single item
// opts.Input names, and flushes the job log once at the end. Per-resource
// failures are recorded in the job log; only pre-flight problems, unresolved
// identifiers and write failures end the run with an error. Results already
// written stay on disk when a later directory fails.
func RunPipeline(ctx context.Context, opts RunOptions) (*Summary, error) {
	if messages := Preflight(opts); len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}

	r := newRunner(opts)
	if !opts.DryRun {
		for _, dir := range []string{r.rawDir, r.finalDir, r.logDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
			}
		}
	}

	var err error
	if opts.SingleItem {
		err = r.convertSingle(ctx)
	} else {
		err = r.convertTree(ctx)
	}
	if err != nil {
		return r.summary, err
	}

	r.logger.Infow("Writing manifest", logging.FieldDir, r.logDir)
	log, logPath, err := r.manifest.Flush(jobmanifest.FlushOptions{
		Dir:      r.logDir,
		Append:   opts.AppendLogs,
		DryRun:   opts.DryRun,
		Now:      opts.Now,
		Validate: r.validator(schemas.ValidateJobLog),
	})
	if err != nil {
		return r.summary, fmt.Errorf("failed to write job log: %w", err)
	}
	r.summary.Log = log
	r.summary.LogPath = logPath
	emitProgress(&r.opts, StepJobLog, "Wrote job log", logPath, log)

	if !opts.DryRun {
		files, err := layout.Execute(r.rawDir, r.finalDir)
		if err != nil {
			return r.summary, fmt.Errorf("layout normalisation failed: %w", err)
		}
		r.summary.FinalFiles = files
		emitProgress(&r.opts, StepLayout, fmt.Sprintf("Wrote %d final files", len(files)), r.finalDir, nil)
	}

	sort.Strings(r.summary.RawFiles)
	sort.Strings(r.summary.FailedManifests)
	return r.summary, nil
}

// runner carries the state of one run.
type runner struct {
	opts     RunOptions
	logger   *zap.SugaredLogger
	manifest *jobmanifest.Manifest

	rawDir   string
	finalDir string
	logDir   string

	mu      sync.Mutex // guards summary
	summary *Summary
}

func newRunner(opts RunOptions) *runner {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Logger
	}
	return &runner{
		opts:     opts,
		logger:   logger,
		manifest: jobmanifest.New(),
		rawDir:   filepath.Join(opts.Output, RawDir),
		finalDir: filepath.Join(opts.Output, FinalDir),
		logDir:   filepath.Join(opts.Output, LogDir),
		summary:  &Summary{},
	}
}

func (r *runner) validator(fn jobmanifest.Validator) jobmanifest.Validator {
	if !r.opts.ValidateOutput {
		return nil
	}
	return fn
}

// convertTree processes manifest directories, up to opts.Workers at a time.
func (r *runner) convertTree(ctx context.Context) error {
	locations, err := manifest.Find(r.opts.Input)
	if err != nil {
		return fmt.Errorf("failed to find manifests: %w", err)
	}
	names := rawNames(locations)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.opts.Workers, 1))
	for i, loc := range locations {
		g.Go(func() error {
			return r.processDirectory(gCtx, loc, names[i])
		})
	}
	return g.Wait()
}

// rawNames picks the raw file name of each location: the directory's base
// name, or its flattened relative path when two directories share a base name.
func rawNames(locations []manifest.Location) []string {
	counts := make(map[string]int, len(locations))
	for _, loc := range locations {
		counts[filepath.Base(loc.Dir)]++
	}
	names := make([]string, len(locations))
	for i, loc := range locations {
		base := filepath.Base(loc.Dir)
		if counts[base] > 1 && loc.RelativePath != "." {
			base = strings.ReplaceAll(filepath.ToSlash(loc.RelativePath), "/", "_")
		}
		names[i] = base
	}
	return names
}

func (r *runner) processDirectory(ctx context.Context, loc manifest.Location, name string) error {
	path := loc.ManifestPath()
	r.logger.Infow("Processing manifest file", logging.FieldManifest, path)
	emitProgress(&r.opts, StepManifest, "Processing manifest file", path, nil)

	doc, err := manifest.Load(path)
	if err != nil {
		r.logger.Errorw("Failed to load manifest", logging.FieldManifest, path, logging.FieldError, err)
		r.mu.Lock()
		r.summary.FailedManifests = append(r.summary.FailedManifests, path)
		r.mu.Unlock()
		return nil
	}

	dirBase := filepath.Base(loc.Dir)
	results := types.NewDirectoryResults()
	for _, res := range doc.Resources() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if res.Kind == types.ResourcePassage && !r.opts.Converter.ConvertPassages {
			r.logger.Debugw("Skipping passage", logging.FieldHref, res.Href)
			continue
		}
		result, err := r.convertResource(res, res.Href, res.Kind, r.opts.Policy)
		if err != nil {
			return err
		}
		r.collect(results, dirBase, res.Href, result)
	}

	return r.finishDirectory(results, name)
}

// convertSingle converts the one item file named by opts.Input. Its
// reference is the item identifier, falling back to the file name.
func (r *runner) convertSingle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := singleItem{path: r.opts.Input}
	href := filepath.Base(src.path)
	dirBase := filepath.Base(filepath.Dir(src.path))

	r.logger.Infow("Processing single item", logging.FieldPath, src.path)
	result, err := r.convertResource(src, href, types.ResourceItem2p1, identifier.Policy{UseItemIdentifier: true})
	if err != nil {
		return err
	}

	results := types.NewDirectoryResults()
	r.collect(results, dirBase, href, result)
	return r.finishDirectory(results, dirBase)
}

// source is what convertResource reads from a manifest resource or a lone
// item file.
type source interface {
	identifier.Resource
	Path() string
	Tags() map[string][]string
	PointValue() (int, bool)
}

type singleItem struct {
	path string
}

func (s singleItem) Path() string               { return s.path }
func (s singleItem) MetadataIdentifier() string { return "" }
func (s singleItem) Identifier() string         { return "" }
func (s singleItem) Tags() map[string][]string  { return nil }
func (s singleItem) PointValue() (int, bool)    { return 0, false }

func (s singleItem) FileBaseName() string {
	base := filepath.Base(s.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// convertResource resolves the reference of src and converts it. The only
// error it returns is an unresolved item identifier, which ends the run;
// everything else becomes a failed result.
func (r *runner) convertResource(src source, href string, kind types.ResourceKind, policy identifier.Policy) (*types.ConversionResult, error) {
	data, err := os.ReadFile(src.Path())
	if err != nil {
		return types.Failed(href, fmt.Errorf("failed to read resource: %w", err)), nil
	}
	xml, err := normalize.PreProcess(string(data))
	if err != nil {
		return types.Failed(href, err), nil
	}

	reference := policy.Resolve(src, xml)
	if reference == "" && (kind == types.ResourcePassage || r.opts.SingleItem) {
		reference = src.FileBaseName()
	}
	if reference == "" {
		return nil, &identifier.MissingError{Href: href}
	}

	if kind.IsItem() {
		xml, err = identifier.EnsureItemIdentifier(xml, reference)
		if err != nil {
			return types.Failed(href, err), nil
		}
	}

	metadata := map[string]any{"organisation_id": r.opts.Converter.OrganisationID}
	if points, ok := src.PointValue(); ok {
		metadata["point_value"] = points
	}

	r.logger.Infow("Converting assessment item", logging.FieldHref, href, logging.FieldItemReference, reference)
	return r.opts.Converter.Convert(types.ConversionInput{
		XML:           xml,
		Kind:          kind,
		ItemReference: reference,
		ResourcePath:  src.Path(),
		Metadata:      metadata,
		Tags:          src.Tags(),
	}, href), nil
}

// collect files result under `<dirBase>/<href>` and any rubric split out of it
// under `<dirBase>/<rubric reference>`. Skipped results are dropped.
func (r *runner) collect(results *types.DirectoryResults, dirBase, href string, result *types.ConversionResult) {
	switch result.Status {
	case types.StatusSkipped:
		r.logger.Debugw("Skipping resource", logging.FieldHref, href, "reason", result.SkipReason)
		return
	case types.StatusFailed:
		r.logger.Errorw("Failed to convert resource", logging.FieldHref, href, logging.FieldError, result.Exception)
	}

	standalone := r.opts.Splitter.Split(result)
	results.Add(dirBase+"/"+href, result)
	if standalone != nil {
		normalize.RemoveUnusedData(standalone)
		results.Add(dirBase+"/"+standalone.Reference(), standalone)
	}
}

// finishDirectory writes the directory's raw file and folds its results into
// the job manifest.
func (r *runner) finishDirectory(results *types.DirectoryResults, name string) error {
	if !r.opts.DryRun {
		target := filepath.Join(r.rawDir, name)
		r.logger.Infow("Writing conversion results", logging.FieldPath, target+".json", logging.FieldCount, results.Len())
		file, err := jobmanifest.Persist(results, target, r.validator(schemas.ValidateRawResults))
		if err != nil {
			return err
		}
		emitProgress(&r.opts, StepPersist, "Wrote conversion results", file, nil)
		r.mu.Lock()
		r.summary.RawFiles = append(r.summary.RawFiles, file)
		r.mu.Unlock()
	}

	r.manifest.Update(results)
	r.mu.Lock()
	r.summary.Manifests++
	r.mu.Unlock()
	return nil
}
