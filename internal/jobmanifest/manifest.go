// Package jobmanifest aggregates per-directory conversion results into the
// run-wide job log and writes the per-directory raw result files.
package jobmanifest

import (
	"sync"

	"github.com/elearning-innovation/learnosity-qti/internal/scoring"
	"github.com/elearning-innovation/learnosity-qti/internal/types"
)

// Info is the summary block of the job log.
type Info struct {
	QuestionTypes          []string       `json:"question_types"`
	ItemScoringTypesCounts map[string]int `json:"item_scoring_types_counts"`
	RubricCount            int            `json:"rubric_count"`
	ItemCount              int            `json:"item_count"`
}

// Log is the finalized job log written once per run.
type Log struct {
	Info            Info                `json:"info"`
	ImportedRubrics []string            `json:"imported_rubrics"`
	ImportedItems   []string            `json:"imported_items"`
	IgnoredItems    []string            `json:"ignored_items"`
	Warnings        map[string][]string `json:"warnings"`
}

// Manifest accumulates results across directories. It is safe for concurrent
// use.
type Manifest struct {
	mu sync.Mutex

	questionTypes   []string
	scoringCounts   map[string]int
	importedItems   []string
	importedRubrics []string
	ignoredItems    []string
	warnings        map[string][]string

	flushed bool
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		scoringCounts: make(map[string]int),
		warnings:      make(map[string][]string),
	}
}

// Update folds one directory's results into the manifest. Failed results are
// ignored items; standalone rubric items count as imported rubrics.
func (m *Manifest) Update(results *types.DirectoryResults) {
	if results == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	results.Each(func(_ string, r *types.ConversionResult) {
		if r == nil || r.Status == types.StatusSkipped {
			return
		}
		if r.Status == types.StatusFailed || r.Item == nil {
			m.ignoredItems = append(m.ignoredItems, r.Exception)
			return
		}

		reference := r.Reference()
		if r.RubricItem {
			m.importedRubrics = append(m.importedRubrics, reference)
			return
		}
		m.importedItems = append(m.importedItems, reference)

		if st := r.ScoringType(); st != "" {
			m.scoringCounts[st]++
		}
		for _, q := range r.Questions {
			if qt := q.Text("type"); qt != "" {
				m.questionTypes = append(m.questionTypes, qt)
			}
		}
		if len(r.Assumptions) > 0 {
			m.warnings[reference] = unique(r.Assumptions)
		}
	})
}

// Finalize computes the derived counts. The residual "none" scoring count is
// the item count minus every explicit count. Ignored items are not deduped:
// there is one entry per failed result.
func (m *Manifest) Finalize() *Log {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := &Log{
		ImportedRubrics: unique(m.importedRubrics),
		ImportedItems:   unique(m.importedItems),
		IgnoredItems:    append(make([]string, 0, len(m.ignoredItems)), m.ignoredItems...),
		Warnings:        make(map[string][]string, len(m.warnings)),
	}
	for ref, w := range m.warnings {
		log.Warnings[ref] = append([]string(nil), w...)
	}

	counts := make(map[string]int, len(m.scoringCounts)+1)
	explicit := 0
	for t, n := range m.scoringCounts {
		counts[t] = n
		explicit += n
	}

	log.Info = Info{
		QuestionTypes:          unique(m.questionTypes),
		ItemScoringTypesCounts: counts,
		RubricCount:            len(log.ImportedRubrics),
		ItemCount:              len(log.ImportedItems),
	}
	// Repeated references count once as items but once per result as scoring types.
	counts[scoring.NoneLabel] = max(log.Info.ItemCount-explicit, 0)
	return log
}

// unique returns values without duplicates, keeping first occurrences, and
// never nil.
func unique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
