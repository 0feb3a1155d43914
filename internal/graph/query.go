package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// BlockNode is a block read back from the graph.
type BlockNode struct {
	Filepath string
	// Key is the semantic key of the block.
	Key      string
	Type     string
	Name     string
	Level    int64
	Depth    int64
}

// Querier reads the block graph.
type Querier struct {
	driver neo4j.DriverWithContext
}

// NewQuerier creates a new graph querier.
func NewQuerier(driver neo4j.DriverWithContext) *Querier {
	return &Querier{driver: driver}
}

// Tree returns every block under the passages titled passage, parents before
// children. Depth is the number of CONTAINS hops from the passage.
func (q *Querier) Tree(ctx context.Context, passage string) ([]BlockNode, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH path = (p:Passage {title: $title})-[:CONTAINS*]->(b:Block)
		RETURN p.filepath AS filepath, b.semantic_key AS key, b.type AS type, b.name AS name,
		       b.level AS level, length(path) AS depth
		ORDER BY filepath, b.pos_start, depth
	`, map[string]any{"title": passage})
	if err != nil {
		return nil, fmt.Errorf("query block tree: %w", err)
	}

	var nodes []BlockNode
	for result.Next(ctx) {
		record := result.Record()
		filepath, _ := record.Get("filepath")
		key, _ := record.Get("key")
		typ, _ := record.Get("type")
		name, _ := record.Get("name")
		level, _ := record.Get("level")
		depth, _ := record.Get("depth")

		node := BlockNode{
			Filepath: fmt.Sprintf("%v", filepath),
			Key:      fmt.Sprintf("%v", key),
			Type:     fmt.Sprintf("%v", typ),
			Name:     fmt.Sprintf("%v", name),
		}
		node.Level, _ = level.(int64)
		node.Depth, _ = depth.(int64)
		nodes = append(nodes, node)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read block tree: %w", err)
	}

	log.Debug().Str("passage", passage).Int("blocks", len(nodes)).Msg("Graph query complete")
	return nodes, nil
}

// Counts returns the number of passage, block and widget nodes.
func (q *Querier) Counts(ctx context.Context) (map[string]int64, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	counts := make(map[string]int64)
	for _, label := range []string{"Passage", "Block", "Widget"} {
		result, err := session.Run(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS n", label), nil)
		if err != nil {
			return nil, fmt.Errorf("count %s nodes: %w", label, err)
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s nodes: %w", label, err)
		}
		n, _ := record.Get("n")
		counts[label], _ = n.(int64)
	}
	return counts, nil
}
