package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sugarcube-l10n/internal/config"
	"sugarcube-l10n/internal/graph"
	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/pipeline"
	"sugarcube-l10n/internal/script"
	"sugarcube-l10n/internal/store"
)

type extractOptions struct {
	graph        bool
	resetGraph   bool
	checkScripts bool
}

func extractCmd() *cobra.Command {
	var opts extractOptions
	cmd := &cobra.Command{
		Use:   "extract <root>",
		Short: "Parse a story, resolve blocks and chunks, and store the result",
		Long: `Parses every source file under root and saves passages, elements and chunks
to the configured store, replacing the previous run. With --graph the block
hierarchy is also written to Neo4j.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.graph, "graph", false, "Write the block hierarchy to Neo4j")
	cmd.Flags().BoolVar(&opts.resetGraph, "reset-graph", false, "Delete existing graph nodes before writing")
	cmd.Flags().BoolVar(&opts.checkScripts, "check-scripts", false, "Syntax-check JavaScript elements")

	return cmd
}

// runExtract handles the `extract` command.
func runExtract(root string, opts extractOptions) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := runPipeline(ctx, cfg, root)
	if err != nil {
		return err
	}

	if opts.checkScripts {
		if _, err := script.NewChecker(cfg.WorkerCount).Check(ctx, scriptElements(result.Elements())); err != nil {
			return fmt.Errorf("check scripts: %w", err)
		}
	}

	if err := saveRun(ctx, cfg, result); err != nil {
		return err
	}

	if opts.graph {
		if err := buildGraph(ctx, cfg, result.Passages, opts.resetGraph); err != nil {
			return err
		}
	}

	stats := result.Stats()
	log.Info().
		Int("passages", stats.Passages).
		Int("blocks", stats.Blocks).
		Int("chunks", stats.Chunks).
		Int("skipped_files", stats.Skipped).
		Msg("Extraction complete")
	return nil
}

func saveRun(ctx context.Context, cfg *config.Config, result *pipeline.Result) error {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if s == nil {
		log.Info().Msg("Store disabled, nothing saved")
		return nil
	}
	defer s.Close()

	if err := s.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if err := store.SaveResult(ctx, s, result); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func buildGraph(ctx context.Context, cfg *config.Config, passages []pipeline.Passage, reset bool) error {
	driver, err := openGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	builder := graph.NewBuilder(driver)
	if err := builder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	if reset {
		if err := builder.Reset(ctx); err != nil {
			return err
		}
	}
	if err := builder.Build(ctx, passages); err != nil {
		return fmt.Errorf("build block graph: %w", err)
	}
	return nil
}

// scriptElements returns the JavaScript elements of all passages.
func scriptElements(passages [][]parser.Element) []parser.Element {
	var out []parser.Element
	for _, elements := range passages {
		for _, e := range elements {
			if e.Type == parser.ElementJavaScript {
				out = append(out, e)
			}
		}
	}
	return out
}
