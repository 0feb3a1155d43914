package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/textutil"
)

// Unit is one translation-platform entry in the Paratranz JSON layout.
type Unit struct {
	Key         string `json:"key"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Context     string `json:"context"`
}

// Writer writes chunks as one JSON file per source file, mirroring the source
// tree under a directory.
type Writer struct {
	dir   string
	limit int
	// All keeps chunks without any letters, which are pure markup.
	All bool
}

// NewWriter creates a writer rooted at dir writing at most limit files at once.
func NewWriter(dir string, limit int) *Writer {
	if limit < 1 {
		limit = 1
	}
	return &Writer{dir: dir, limit: limit}
}

// Units converts chunks into translation units.
func (w *Writer) Units(chunks []chunker.Chunk) []Unit {
	units := make([]Unit, 0, len(chunks))
	for _, c := range chunks {
		if !w.All && !textutil.HasLetters(c.Text) {
			continue
		}
		where := fmt.Sprintf("%s | %s | %d-%d", c.Filepath, c.Passage, c.PosStart, c.PosEnd)
		if c.IsBlock() {
			where += " | block"
		}
		units = append(units, Unit{
			Key:      c.ID(),
			Original: c.Text,
			Context:  where,
		})
	}
	return units
}

// Write groups chunks by source file and writes each group. It returns the
// number of files written.
func (w *Writer) Write(ctx context.Context, chunks []chunker.Chunk) (int, error) {
	groups := make(map[string][]chunker.Chunk)
	var order []string
	for _, c := range chunks {
		if _, ok := groups[c.Filepath]; !ok {
			order = append(order, c.Filepath)
		}
		groups[c.Filepath] = append(groups[c.Filepath], c)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.limit)
	written := 0
	for _, source := range order {
		units := w.Units(groups[source])
		if len(units) == 0 {
			continue
		}
		written++
		target := filepath.Join(w.dir, filepath.FromSlash(OutputPath(source)))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeUnits(target, units)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	log.Info().Str("dir", w.dir).Int("files", written).Int("chunks", len(chunks)).Msg("Exported translation units")
	return written, nil
}

// OutputPath maps a slash separated source path to its export path.
func OutputPath(source string) string {
	return strings.TrimSuffix(source, path.Ext(source)) + ".json"
}

func writeUnits(target string, units []Unit) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(units); err != nil {
		return fmt.Errorf("encode %s: %w", target, err)
	}
	return nil
}
