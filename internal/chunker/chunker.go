package chunker

import (
	"strconv"

	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/textutil"
)

// Config bounds the size of a chunk. A zero bound is disabled.
type Config struct {
	MaxLength int
	MaxLines  int
}

// DefaultConfig returns the budgets used when none are configured.
func DefaultConfig() Config {
	return Config{MaxLength: 10000, MaxLines: 50}
}

func (c Config) fits(text string) bool {
	if c.MaxLength > 0 && len(text) > c.MaxLength {
		return false
	}
	if c.MaxLines > 0 && textutil.Lines(text) > c.MaxLines {
		return false
	}
	return true
}

// Chunk is a contiguous group of elements that becomes one translation unit.
type Chunk struct {
	Filepath string `json:"filepath"`
	Passage  string `json:"passage"`
	// Key is the semantic key of the block the chunk holds, or `<passage>||`
	// for whole passages and filler between blocks.
	Key      string           `json:"key"`
	Index    int              `json:"index"`
	Elements []parser.Element `json:"-"`
	PosStart int              `json:"pos_start"`
	PosEnd   int              `json:"pos_end"`
	Text     string           `json:"text"`
	Length   int              `json:"length"`
	Lines    int              `json:"lines"`
}

// ID identifies the chunk within the corpus: `<filepath>|<key>#<index>`.
func (c Chunk) ID() string {
	return c.Filepath + "|" + c.Key + "#" + strconv.Itoa(c.Index)
}

// Hash is a short stable digest of ID.
func (c Chunk) Hash() string {
	return textutil.ShortHash(c.ID())
}

// IsBlock reports whether the chunk holds exactly one whole block. Only block
// chunks carry a key other than the passage key.
func (c Chunk) IsBlock() bool {
	return c.Key != c.Passage+"||"
}

// Split groups the resolved elements of a passage into chunks.
//
// A passage within budget is one chunk. Otherwise a block whose head to tail
// span is within budget is kept whole. A block over budget is demoted: its
// head is grouped with the surrounding content and the walk continues inside
// it, so nested blocks may still be kept whole. Everything else is grouped
// greedily, element by element. A single element over budget is a chunk on its
// own.
func Split(p parser.Passage, elements []parser.Element, cfg Config) []Chunk {
	if len(elements) == 0 {
		return nil
	}
	rootKey := p.Title + "||"

	b := builder{passage: p, elements: elements}
	if cfg.fits(p.Body) {
		b.emit(rootKey, 0, len(elements))
		return b.chunks
	}

	tails := parser.TailIndex(elements)
	start := -1
	flush := func(end int) {
		if start >= 0 {
			b.emit(rootKey, start, end)
			start = -1
		}
	}

	for i := 0; i < len(elements); {
		if tail, ok := tails[i]; ok && cfg.fits(b.text(i, tail+1)) {
			flush(i)
			b.emit(elements[i].BlockSemanticKey, i, tail+1)
			i = tail + 1
			continue
		}

		if start >= 0 && !cfg.fits(b.text(start, i+1)) {
			flush(i)
		}
		if start < 0 {
			start = i
		}
		i++
	}
	flush(len(elements))
	return b.chunks
}

type builder struct {
	passage  parser.Passage
	elements []parser.Element
	chunks   []Chunk
}

// text returns the body covered by elements[from:to].
func (b *builder) text(from, to int) string {
	return b.passage.Body[b.elements[from].PosStart:b.elements[to-1].PosEnd]
}

func (b *builder) emit(key string, from, to int) {
	text := b.text(from, to)
	b.chunks = append(b.chunks, Chunk{
		Filepath: b.passage.Filepath,
		Passage:  b.passage.Title,
		Key:      key,
		Index:    len(b.chunks),
		Elements: b.elements[from:to],
		PosStart: b.elements[from].PosStart,
		PosEnd:   b.elements[to-1].PosEnd,
		Text:     text,
		Length:   len(text),
		Lines:    textutil.Lines(text),
	})
}
