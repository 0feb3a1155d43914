package store

import (
	"context"
	"encoding/json"
	"fmt"

	"fortio.org/safecast"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/worker"
)

const schema = `
CREATE TABLE IF NOT EXISTS passage (
	seq          INTEGER NOT NULL,
	filepath     TEXT    NOT NULL,
	title        TEXT    NOT NULL,
	tag          TEXT    NOT NULL DEFAULT '',
	metadata     TEXT    NOT NULL DEFAULT '',
	body         TEXT    NOT NULL,
	length       INTEGER NOT NULL,
	widgets_json JSONB
);
CREATE INDEX IF NOT EXISTS passage_title_idx ON passage (filepath, title);

CREATE TABLE IF NOT EXISTS element (
	filepath           TEXT    NOT NULL,
	passage            TEXT    NOT NULL,
	widget             TEXT    NOT NULL DEFAULT '',
	block              TEXT    NOT NULL DEFAULT '',
	block_name         TEXT    NOT NULL DEFAULT '',
	block_semantic_key TEXT    NOT NULL DEFAULT '',
	type               TEXT    NOT NULL,
	body               TEXT    NOT NULL,
	pos_start          INTEGER NOT NULL,
	pos_end            INTEGER NOT NULL,
	length             INTEGER NOT NULL,
	level              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS element_passage_idx ON element (filepath, passage, pos_start);

CREATE TABLE IF NOT EXISTS chunk (
	id        TEXT PRIMARY KEY,
	seq       INTEGER NOT NULL,
	hash      TEXT    NOT NULL,
	filepath  TEXT    NOT NULL,
	passage   TEXT    NOT NULL,
	key       TEXT    NOT NULL,
	idx       INTEGER NOT NULL,
	pos_start INTEGER NOT NULL,
	pos_end   INTEGER NOT NULL,
	text      TEXT    NOT NULL,
	length    INTEGER NOT NULL,
	lines     INTEGER NOT NULL
);
`

// chunkBatchSize bounds the number of upserts sent in one round trip.
const chunkBatchSize = 500

// Postgres stores runs in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and creates the tables if needed.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE passage, element, chunk"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

func (s *Postgres) SavePassages(ctx context.Context, passages []parser.Passage) error {
	var start int
	if err := s.pool.QueryRow(ctx, "SELECT COALESCE(MAX(seq) + 1, 0) FROM passage").Scan(&start); err != nil {
		return fmt.Errorf("query passage sequence: %w", err)
	}

	rows := make([][]any, 0, len(passages))
	for i, p := range passages {
		ints, err := int4s(start+i, p.Length)
		if err != nil {
			return fmt.Errorf("passage %s: %w", p.Title, err)
		}
		var widgets []byte
		if len(p.Widgets) > 0 {
			if widgets, err = json.Marshal(p.Widgets); err != nil {
				return fmt.Errorf("encode widgets of %s: %w", p.Title, err)
			}
		}
		rows = append(rows, []any{ints[0], p.Filepath, p.Title, p.Tag, p.Metadata, p.Body, ints[1], widgets})
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"passage"},
		[]string{"seq", "filepath", "title", "tag", "metadata", "body", "length", "widgets_json"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy passages: %w", err)
	}
	log.Debug().Int64("rows", n).Msg("Copied passages")
	return nil
}

func (s *Postgres) SaveElements(ctx context.Context, elements []parser.Element) error {
	rows := make([][]any, 0, len(elements))
	for _, e := range elements {
		ints, err := int4s(e.PosStart, e.PosEnd, e.Length, e.Level)
		if err != nil {
			return fmt.Errorf("element of %s at %d: %w", e.Passage, e.PosStart, err)
		}
		rows = append(rows, []any{
			e.Filepath, e.Passage, e.Widget, string(e.Block), e.BlockName, e.BlockSemanticKey,
			string(e.Type), e.Body, ints[0], ints[1], ints[2], ints[3],
		})
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"element"},
		[]string{"filepath", "passage", "widget", "block", "block_name", "block_semantic_key",
			"type", "body", "pos_start", "pos_end", "length", "level"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy elements: %w", err)
	}
	log.Debug().Int64("rows", n).Msg("Copied elements")
	return nil
}

const upsertChunk = `
INSERT INTO chunk (id, seq, hash, filepath, passage, key, idx, pos_start, pos_end, text, length, lines)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
	seq = EXCLUDED.seq, hash = EXCLUDED.hash, filepath = EXCLUDED.filepath,
	passage = EXCLUDED.passage, key = EXCLUDED.key, idx = EXCLUDED.idx,
	pos_start = EXCLUDED.pos_start, pos_end = EXCLUDED.pos_end,
	text = EXCLUDED.text, length = EXCLUDED.length, lines = EXCLUDED.lines`

// SaveChunks upserts chunks by id so that re-running a passage replaces them.
func (s *Postgres) SaveChunks(ctx context.Context, chunks []chunker.Chunk) error {
	seq := 0
	for _, group := range worker.Batch(chunks, chunkBatchSize) {
		batch := &pgx.Batch{}
		for _, c := range group {
			ints, err := int4s(seq, c.Index, c.PosStart, c.PosEnd, c.Length, c.Lines)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", c.ID(), err)
			}
			seq++
			batch.Queue(upsertChunk, c.ID(), ints[0], c.Hash(), c.Filepath, c.Passage, c.Key,
				ints[1], ints[2], ints[3], c.Text, ints[4], ints[5])
		}

		br := s.pool.SendBatch(ctx, batch)
		for range group {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("upsert chunk: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close chunk batch: %w", err)
		}
	}
	log.Debug().Int("rows", len(chunks)).Msg("Upserted chunks")
	return nil
}

func (s *Postgres) Passages(ctx context.Context) ([]parser.Passage, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT filepath, title, tag, metadata, body, length, widgets_json FROM passage ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var passages []parser.Passage
	for rows.Next() {
		var p parser.Passage
		var length int32
		var widgets []byte
		if err := rows.Scan(&p.Filepath, &p.Title, &p.Tag, &p.Metadata, &p.Body, &length, &widgets); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		p.Length = int(length)
		if len(widgets) > 0 {
			if err := json.Unmarshal(widgets, &p.Widgets); err != nil {
				return nil, fmt.Errorf("decode widgets of %s: %w", p.Title, err)
			}
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

func (s *Postgres) Elements(ctx context.Context, filepath, passage string) ([]parser.Element, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT filepath, passage, widget, block, block_name, block_semantic_key,
		       type, body, pos_start, pos_end, length, level
		FROM element WHERE filepath = $1 AND passage = $2 ORDER BY pos_start`, filepath, passage)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	var elements []parser.Element
	for rows.Next() {
		var e parser.Element
		var block, typ string
		var start, end, length, level int32
		if err := rows.Scan(&e.Filepath, &e.Passage, &e.Widget, &block, &e.BlockName, &e.BlockSemanticKey,
			&typ, &e.Body, &start, &end, &length, &level); err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		e.Block = parser.BlockRole(block)
		e.Type = parser.ElementType(typ)
		e.PosStart, e.PosEnd, e.Length, e.Level = int(start), int(end), int(length), int(level)
		elements = append(elements, e)
	}
	return elements, rows.Err()
}

func (s *Postgres) Chunks(ctx context.Context) ([]chunker.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT filepath, passage, key, idx, pos_start, pos_end, text, length, lines
		FROM chunk ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []chunker.Chunk
	for rows.Next() {
		var c chunker.Chunk
		var idx, start, end, length, lines int32
		if err := rows.Scan(&c.Filepath, &c.Passage, &c.Key, &idx, &start, &end, &c.Text, &length, &lines); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Index, c.PosStart, c.PosEnd, c.Length, c.Lines = int(idx), int(start), int(end), int(length), int(lines)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// int4s converts values for INTEGER columns, failing on overflow.
func int4s(values ...int) ([]int32, error) {
	out := make([]int32, len(values))
	for i, v := range values {
		n, err := safecast.Conv[int32](v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
