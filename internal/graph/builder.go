package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"

	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/pipeline"
)

// Builder writes the block hierarchy of a corpus to Neo4j:
// (:Passage)-[:CONTAINS]->(:Block)-[:CONTAINS]->(:Block) and
// (:Widget)-[:DEFINED_IN]->(:Passage).
type Builder struct {
	driver neo4j.DriverWithContext
}

// NewBuilder creates a new graph builder.
func NewBuilder(driver neo4j.DriverWithContext) *Builder {
	return &Builder{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (b *Builder) EnsureSchema(ctx context.Context) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Passage) REQUIRE p.ref IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (b:Block) REQUIRE b.key IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (w:Widget) REQUIRE w.name IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// Reset deletes every passage, block and widget node.
func (b *Builder) Reset(ctx context.Context) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, "MATCH (n) WHERE n:Passage OR n:Block OR n:Widget DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("reset graph: %w", err)
	}
	return nil
}

// blockQueries upsert the blocks of one passage, then link nested blocks to
// their parent and top-level blocks to the passage.
var blockQueries = []string{
	`UNWIND $blocks AS row
	MERGE (blk:Block {key: row.key})
	SET blk.passage = $title,
	    blk.filepath = $filepath,
	    blk.semantic_key = row.semantic_key,
	    blk.type = row.type,
	    blk.name = row.name,
	    blk.args = row.args,
	    blk.level = row.level,
	    blk.pos_start = row.pos_start,
	    blk.pos_end = row.pos_end`,
	`UNWIND $blocks AS row
	WITH row WHERE row.parent <> ''
	MATCH (parent:Block {key: row.parent})
	MATCH (blk:Block {key: row.key})
	MERGE (parent)-[:CONTAINS]->(blk)`,
	`MATCH (p:Passage {ref: $ref})
	UNWIND $blocks AS row
	WITH p, row WHERE row.parent = ''
	MATCH (blk:Block {key: row.key})
	MERGE (p)-[:CONTAINS]->(blk)`,
}

// Build upserts all passages with their blocks and widgets.
func (b *Builder) Build(ctx context.Context, passages []pipeline.Passage) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	blocks := 0
	for _, p := range passages {
		_, err := session.Run(ctx, `
			MERGE (p:Passage {ref: $ref})
			SET p.title = $title,
			    p.filepath = $filepath,
			    p.tags = $tags,
			    p.length = $length
		`, map[string]any{
			"ref":      p.Ref(),
			"title":    p.Title,
			"filepath": p.Filepath,
			"tags":     p.Tags(),
			"length":   p.Length,
		})
		if err != nil {
			return fmt.Errorf("upsert passage %s: %w", p.Title, err)
		}

		rows := blockRows(p.Elements)
		if len(rows) > 0 {
			params := map[string]any{"ref": p.Ref(), "title": p.Title, "filepath": p.Filepath, "blocks": rows}
			for _, query := range blockQueries {
				if _, err := session.Run(ctx, query, params); err != nil {
					return fmt.Errorf("upsert blocks of %s: %w", p.Title, err)
				}
			}
			blocks += len(rows)
		}

		for _, w := range p.Widgets {
			_, err := session.Run(ctx, `
				MATCH (p:Passage {ref: $ref})
				MERGE (w:Widget {name: $name})
				SET w.length = $length
				MERGE (w)-[:DEFINED_IN]->(p)
			`, map[string]any{
				"ref":    p.Ref(),
				"name":   w.Name,
				"length": w.Length,
			})
			if err != nil {
				log.Warn().Err(err).Str("widget", w.Name).Str("passage", p.Title).Msg("Failed to upsert widget")
			}
		}
	}

	log.Info().Int("passages", len(passages)).Int("blocks", blocks).Msg("Built block graph")
	return nil
}

// blockRows turns the resolved blocks of a passage into UNWIND parameters.
// Parents always precede their children. Node keys carry the file path since
// semantic keys start with the passage title, which may repeat across files.
func blockRows(elements []parser.Element) []map[string]any {
	spans := parser.Blocks(elements)
	prefix := ""
	if len(elements) > 0 {
		prefix = elements[0].Filepath + "|"
	}
	rows := make([]map[string]any, 0, len(spans))
	for _, s := range spans {
		head, err := parser.Describe(elements[s.Head])
		if err != nil {
			log.Debug().Err(err).Str("block", s.Key).Msg("Cannot describe block head")
		}
		rows = append(rows, map[string]any{
			"key":          prefix + s.Key,
			"semantic_key": s.Key,
			"parent":       parentKey(prefix, s.ParentKey),
			"type":         string(s.Type),
			"name":         s.Name,
			"args":         head.Args,
			"level":        s.Level,
			"pos_start":    s.PosStart,
			"pos_end":      s.PosEnd,
		})
	}
	return rows
}

func parentKey(prefix, key string) string {
	if key == "" {
		return ""
	}
	return prefix + key
}
