package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sugarcube-l10n/internal/graph"
)

func blocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocks [passage]",
		Short: "Show the block tree of a passage from the Neo4j graph",
		Long: `Prints the nested blocks of a passage as written by extract --graph.
Without a passage, prints node counts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passage := ""
			if len(args) == 1 {
				passage = args[0]
			}
			return runBlocks(passage)
		},
	}
}

// runBlocks handles the `blocks` command.
func runBlocks(passage string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	driver, err := openGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	q := graph.NewQuerier(driver)
	if passage == "" {
		counts, err := q.Counts(ctx)
		if err != nil {
			return err
		}
		for _, label := range []string{"Passage", "Block", "Widget"} {
			fmt.Printf("%-8s %d\n", label, counts[label])
		}
		return nil
	}

	nodes, err := q.Tree(ctx, passage)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		fmt.Printf("%s has no blocks\n", passage)
		return nil
	}
	printTree(os.Stdout, nodes)
	return nil
}

// printTree writes one line per block, indented by depth.
func printTree(w io.Writer, nodes []graph.BlockNode) {
	for _, n := range nodes {
		depth := int(n.Depth) - 1
		if depth < 0 {
			depth = 0
		}
		fmt.Fprintf(w, "%s%s::%s  %s\n", strings.Repeat("  ", depth), n.Type, n.Name, n.Key)
	}
}
