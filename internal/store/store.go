package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/config"
	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/pipeline"
)

// Store persists passages, elements and chunks of a run.
type Store interface {
	// Reset removes everything saved by earlier runs.
	Reset(ctx context.Context) error
	SavePassages(ctx context.Context, passages []parser.Passage) error
	SaveElements(ctx context.Context, elements []parser.Element) error
	SaveChunks(ctx context.Context, chunks []chunker.Chunk) error

	// Passages returns the saved passages in the order they were saved.
	Passages(ctx context.Context) ([]parser.Passage, error)
	// Elements returns the saved elements of the passage titled passage in
	// filepath, in body order.
	Elements(ctx context.Context, filepath, passage string) ([]parser.Element, error)
	// Chunks returns the saved chunks without their elements.
	Chunks(ctx context.Context) ([]chunker.Chunk, error)

	Close() error
}

// Open opens the backend selected in cfg. It returns a nil Store for the
// "none" backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL)
	case config.BackendBolt:
		return NewBolt(cfg.BoltPath)
	case config.BackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// SaveResult writes a whole pipeline run.
func SaveResult(ctx context.Context, s Store, result *pipeline.Result) error {
	passages := make([]parser.Passage, len(result.Passages))
	var elements []parser.Element
	for i, p := range result.Passages {
		passages[i] = p.Passage
		elements = append(elements, p.Elements...)
	}
	chunks := result.Chunks()

	if err := s.SavePassages(ctx, passages); err != nil {
		return err
	}
	if err := s.SaveElements(ctx, elements); err != nil {
		return err
	}
	if err := s.SaveChunks(ctx, chunks); err != nil {
		return err
	}

	log.Info().
		Int("passages", len(passages)).
		Int("elements", len(elements)).
		Int("chunks", len(chunks)).
		Msg("Saved run")
	return nil
}
