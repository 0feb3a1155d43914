package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/config"
	"sugarcube-l10n/internal/export"
	"sugarcube-l10n/internal/store"
)

func chunksCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "chunks [root] <output-dir>",
		Short: "Export translation chunks as Paratranz JSON files",
		Long: `Parses the story under root and writes one JSON file of translation units per
source file, mirroring the source tree under output-dir. Without root the chunks
saved by the last extract are exported.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runChunks("", args[0], all)
			}
			return runChunks(args[0], args[1], all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also export chunks without any letters")

	return cmd
}

// runChunks handles the `chunks` command.
func runChunks(root, outputDir string, all bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var chunks []chunker.Chunk
	if root != "" {
		result, err := runPipeline(ctx, cfg, root)
		if err != nil {
			return err
		}
		chunks = result.Chunks()
	} else {
		chunks, err = loadChunks(ctx, cfg)
		if err != nil {
			return err
		}
	}

	w := export.NewWriter(outputDir, cfg.WorkerCount)
	w.All = all
	files, err := w.Write(ctx, chunks)
	if err != nil {
		return fmt.Errorf("export chunks: %w", err)
	}

	log.Info().
		Int("files", files).
		Str("output", outputDir).
		Msg("Chunk export complete")
	return nil
}

// loadChunks reads the chunks of the last run from the store.
func loadChunks(ctx context.Context, cfg *config.Config) ([]chunker.Chunk, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("no root given and the store is disabled")
	}
	defer s.Close()

	chunks, err := s.Chunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	return chunks, nil
}
