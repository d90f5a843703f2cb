// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/elearning-innovation/learnosity-qti/internal/jobmanifest"
	"github.com/elearning-innovation/learnosity-qti/internal/layout"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList writes up to maxItemsToShow entries and a trailing count of the rest.
func writeList(sb *strings.Builder, entries []string) {
	count := min(len(entries), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", entries[i]))
	}
	if len(entries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(entries)-maxItemsToShow))
	}
}

// PrintJobLog outputs the counts of a finished conversion job.
func (p *Printer) PrintJobLog(log *jobmanifest.Log) {
	if log == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Items:     %d\n", log.Info.ItemCount))
	sb.WriteString(fmt.Sprintf("Rubrics:   %d\n", log.Info.RubricCount))
	sb.WriteString(fmt.Sprintf("Ignored:   %d\n", len(log.IgnoredItems)))
	sb.WriteString(fmt.Sprintf("Warnings:  %d items\n", len(log.Warnings)))

	if len(log.Info.QuestionTypes) > 0 {
		sb.WriteString(fmt.Sprintf("\nQuestion types: %s\n", strings.Join(log.Info.QuestionTypes, ", ")))
	}

	if len(log.Info.ItemScoringTypesCounts) > 0 {
		sb.WriteString("\nScoring types:\n")
		types := make([]string, 0, len(log.Info.ItemScoringTypesCounts))
		for t := range log.Info.ItemScoringTypesCounts {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			sb.WriteString(fmt.Sprintf("  %-14s %d\n", t, log.Info.ItemScoringTypesCounts[t]))
		}
	}

	p.printBox("CONVERSION SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIgnoredItems outputs the resources that failed to convert.
func (p *Printer) PrintIgnoredItems(log *jobmanifest.Log) {
	if log == nil || len(log.IgnoredItems) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d resources failed to convert:\n\n", len(log.IgnoredItems)))
	writeList(&sb, log.IgnoredItems)

	p.printBox("IGNORED ITEMS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintWarnings outputs the assumptions recorded per item reference.
func (p *Printer) PrintWarnings(log *jobmanifest.Log) {
	if log == nil || len(log.Warnings) == 0 {
		return
	}

	refs := make([]string, 0, len(log.Warnings))
	for ref := range log.Warnings {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	var sb strings.Builder
	count := min(len(refs), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("%s\n", refs[i]))
		writeList(&sb, log.Warnings[refs[i]])
	}
	if len(refs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more items", len(refs)-maxItemsToShow))
	}

	p.printBox("ASSUMPTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFinalFiles outputs the files written by layout normalisation.
func (p *Printer) PrintFinalFiles(files []layout.File) {
	if len(files) == 0 {
		return
	}

	var sb strings.Builder
	entries := make([]string, 0, len(files))
	for _, f := range files {
		entries = append(entries, fmt.Sprintf("%s (%d/%d/%d)", baseName(f.Path), f.Items, f.Questions, f.Features))
	}
	sb.WriteString("file (items/questions/features)\n\n")
	writeList(&sb, entries)

	p.printBox("FINAL FILES", strings.TrimSuffix(sb.String(), "\n"))
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
