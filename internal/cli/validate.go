package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sugarcube-l10n/internal/config"
	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/pipeline"
	"sugarcube-l10n/internal/script"
	"sugarcube-l10n/internal/store"
)

var (
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	okColor   = color.New(color.FgGreen, color.Bold)
)

// errValidation is returned when the report contains failures, so the process
// exits non-zero.
var errValidation = errors.New("validation failed")

func validateCmd() *cobra.Command {
	var checkScripts bool
	cmd := &cobra.Command{
		Use:   "validate [root]",
		Short: "Check passages for ordering, round-trip, nesting and script problems",
		Long: `Reviews every passage: elements must cover the body in order, concatenate
back to it, and start and end at the top level. Unpaired block macros and tags
are reported as warnings. Without root the passages saved by the last extract
are reviewed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			return runValidate(root, checkScripts)
		},
	}

	cmd.Flags().BoolVar(&checkScripts, "check-scripts", false, "Syntax-check JavaScript elements")

	return cmd
}

// runValidate handles the `validate` command.
func runValidate(root string, checkScripts bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var passages []pipeline.Passage
	if root != "" {
		result, err := runPipeline(ctx, cfg, root)
		if err != nil {
			return err
		}
		passages = result.Passages
	} else {
		passages, err = loadPassages(ctx, cfg)
		if err != nil {
			return err
		}
	}

	r := newReport(os.Stdout)
	for _, p := range passages {
		for _, issue := range parser.Review(p.Passage, p.Elements) {
			r.fail(issue.Filepath, issue.String())
		}
		for _, issue := range p.Issues {
			r.warn(issue.Filepath, issue.String())
		}
	}

	if checkScripts {
		findings, err := script.NewChecker(cfg.WorkerCount).Check(ctx, scriptElements(elementLists(passages)))
		if err != nil {
			return fmt.Errorf("check scripts: %w", err)
		}
		for _, f := range findings {
			r.fail(f.Filepath, fmt.Sprintf("%s [script] line %d column %d: %s", f.Passage, f.Line, f.Column, f.Message))
		}
	}

	return r.summary(len(passages))
}

// loadPassages reads the passages of the last run from the store. Elements
// are the stored ones; block issues are found again by re-resolving the
// stored bodies, since unpaired elements were saved already demoted.
func loadPassages(ctx context.Context, cfg *config.Config) ([]pipeline.Passage, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("no root given and the store is disabled")
	}
	defer s.Close()

	stored, err := s.Passages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}

	passages := make([]pipeline.Passage, len(stored))
	fresh := make([]pipeline.Passage, len(stored))
	for i, p := range stored {
		elements, err := s.Elements(ctx, p.Filepath, p.Title)
		if err != nil {
			return nil, fmt.Errorf("load elements of %s: %w", p.Ref(), err)
		}
		passages[i] = pipeline.Passage{Passage: p, Elements: elements}
		fresh[i] = pipeline.Passage{Passage: p, Elements: parser.ExtractElements(p)}
	}

	names := parser.InferClosableNames(elementLists(fresh)...)
	pipeline.Resolve(fresh, names, cfg.Chunker())
	for i := range passages {
		passages[i].Issues = fresh[i].Issues
	}
	return passages, nil
}

func elementLists(passages []pipeline.Passage) [][]parser.Element {
	out := make([][]parser.Element, len(passages))
	for i, p := range passages {
		out[i] = p.Elements
	}
	return out
}

// report prints validation results, one line per problem.
type report struct {
	out      io.Writer
	failures int
	warnings int
}

func newReport(out io.Writer) *report {
	return &report{out: out}
}

func (r *report) fail(file, msg string) {
	r.failures++
	failColor.Fprint(r.out, "FAIL ")
	fmt.Fprintf(r.out, "%s: %s\n", file, msg)
}

func (r *report) warn(file, msg string) {
	r.warnings++
	warnColor.Fprint(r.out, "WARN ")
	fmt.Fprintf(r.out, "%s: %s\n", file, msg)
}

// summary prints the totals and returns errValidation if anything failed.
func (r *report) summary(passages int) error {
	if r.failures > 0 {
		failColor.Fprintf(r.out, "%d failures", r.failures)
		fmt.Fprintf(r.out, ", %d warnings in %d passages\n", r.warnings, passages)
		return fmt.Errorf("%w: %d failures", errValidation, r.failures)
	}
	okColor.Fprint(r.out, "OK ")
	fmt.Fprintf(r.out, "%d passages, %d warnings\n", passages, r.warnings)
	return nil
}
