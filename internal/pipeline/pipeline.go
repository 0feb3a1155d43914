package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/filewalker"
	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/worker"
)

// Options controls a pipeline run.
type Options struct {
	Workers int
	Chunker chunker.Config
	// OnFile is called after each file is extracted, from worker goroutines.
	OnFile func()
}

// Passage is one passage with everything the pipeline derived from it.
type Passage struct {
	parser.Passage
	Elements []parser.Element
	Issues   []parser.BlockIssue
	Chunks   []chunker.Chunk
}

// SkippedFile is a source file left out of the run.
type SkippedFile struct {
	Path string
	Err  error
}

// Result is the outcome of a pipeline run.
type Result struct {
	Passages []Passage
	Names    parser.ClosableNames
	Skipped  []SkippedFile
}

// Elements returns the element lists of all passages, in passage order.
func (r *Result) Elements() [][]parser.Element {
	out := make([][]parser.Element, len(r.Passages))
	for i := range r.Passages {
		out[i] = r.Passages[i].Elements
	}
	return out
}

// Chunks returns all chunks of the run.
func (r *Result) Chunks() []chunker.Chunk {
	var out []chunker.Chunk
	for _, p := range r.Passages {
		out = append(out, p.Chunks...)
	}
	return out
}

// Issues returns all block pairing issues of the run.
func (r *Result) Issues() []parser.BlockIssue {
	var out []parser.BlockIssue
	for _, p := range r.Passages {
		out = append(out, p.Issues...)
	}
	return out
}

// Run processes the given source files in four phases: passages and elements
// are extracted in parallel, closable names are inferred once all files are
// done, then blocks are resolved and chunks built per passage.
func Run(ctx context.Context, files []filewalker.FileEntry, opts Options) (*Result, error) {
	passages, skipped, err := Extract(ctx, files, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{Skipped: skipped}
	if len(passages) == 0 {
		log.Warn().Int("files", len(files)).Int("skipped", len(skipped)).Msg("No passages found")
		result.Names = parser.InferClosableNames()
		return result, nil
	}

	result.Passages = passages
	result.Names = parser.InferClosableNames(result.Elements()...)
	log.Info().
		Int("macros", len(result.Names.Macros)).
		Int("tags", len(result.Names.Tags)).
		Msg("Inferred closable names")

	Resolve(result.Passages, result.Names, opts.Chunker)

	logStats(result)
	return result, nil
}

// Extract splits every file into passages and every passage into elements.
// Files that fail to read or split are skipped and reported.
func Extract(ctx context.Context, files []filewalker.FileEntry, opts Options) ([]Passage, []SkippedFile, error) {
	pool := worker.NewPool(opts.Workers, extractFile)
	if opts.OnFile != nil {
		pool.OnProgress(opts.OnFile)
	}
	tasks := pool.Execute(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("extract passages: %w", err)
	}

	var passages []Passage
	var skipped []SkippedFile
	for _, task := range tasks {
		if task.Err != nil {
			event := log.Warn()
			if !errors.Is(task.Err, parser.ErrMalformedFile) {
				event = log.Error()
			}
			event.Err(task.Err).Str("file", task.Input.Rel).Msg("Skipping file")
			skipped = append(skipped, SkippedFile{Path: task.Input.Rel, Err: task.Err})
			continue
		}
		passages = append(passages, task.Result...)
	}

	log.Info().
		Int("files", len(files)-len(skipped)).
		Int("passages", len(passages)).
		Msg("Extracted passages")
	return passages, skipped, nil
}

func extractFile(_ context.Context, entry filewalker.FileEntry) ([]Passage, error) {
	content, err := filewalker.ReadSource(entry.Path)
	if err != nil {
		return nil, err
	}
	split, err := parser.SplitPassages(entry.Rel, content)
	if err != nil {
		return nil, fmt.Errorf("split passages: %w", err)
	}

	passages := make([]Passage, len(split))
	for i, p := range split {
		passages[i] = Passage{Passage: p, Elements: parser.ExtractElements(p)}
	}
	return passages, nil
}

// Resolve annotates blocks and builds chunks for every passage in place.
// Names must be inferred from the whole corpus beforehand.
func Resolve(passages []Passage, names parser.ClosableNames, cfg chunker.Config) {
	for i := range passages {
		p := &passages[i]
		p.Issues = parser.ResolveBlocks(p.Elements, names)
		p.Chunks = chunker.Split(p.Passage, p.Elements, cfg)
	}
}
