package chunker

import (
	"strings"
	"testing"

	"sugarcube-l10n/internal/parser"
)

func resolved(t *testing.T, body string) (parser.Passage, []parser.Element) {
	t.Helper()
	passages, err := parser.SplitPassages("test.twee", ":: P\n"+body)
	if err != nil {
		t.Fatalf("SplitPassages: %v", err)
	}
	p := passages[0]
	elements := parser.ExtractElements(p)
	parser.ResolveBlocks(elements, parser.InferClosableNames(elements))
	return p, elements
}

// checkCover verifies that chunks are contiguous, rebuild the body and have
// unique ids.
func checkCover(t *testing.T, p parser.Passage, chunks []Chunk) {
	t.Helper()
	var b strings.Builder
	ids := make(map[string]bool)
	cursor := 0
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.PosStart != cursor {
			t.Errorf("chunk %d starts at %d, want %d", i, c.PosStart, cursor)
		}
		if c.Length != len(c.Text) || c.Text != p.Body[c.PosStart:c.PosEnd] {
			t.Errorf("chunk %d text does not match its span", i)
		}
		if ids[c.ID()] {
			t.Errorf("duplicate chunk id %q", c.ID())
		}
		ids[c.ID()] = true
		b.WriteString(c.Text)
		cursor = c.PosEnd
	}
	if b.String() != p.Body {
		t.Errorf("chunks rebuild %q, want %q", b.String(), p.Body)
	}
}

func keys(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Key
	}
	return out
}

func TestSplit_SmallPassageIsOneChunk(t *testing.T) {
	p, elements := resolved(t, "Hello <<if $x>>World<</if>> Bye")
	chunks := Split(p, elements, DefaultConfig())

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Key != "P||" || chunks[0].ID() != "test.twee|P||#0" {
		t.Errorf("key = %q, id = %q", chunks[0].Key, chunks[0].ID())
	}
	if len(chunks[0].Elements) != len(elements) {
		t.Errorf("chunk holds %d of %d elements", len(chunks[0].Elements), len(elements))
	}
	checkCover(t, p, chunks)
}

func TestSplit_BlockWithinBudget(t *testing.T) {
	p, elements := resolved(t, "intro text <<if $x>>inside<</if>> outro")
	chunks := Split(p, elements, Config{MaxLength: 25})

	want := []string{"P||", "P||Macro::if[0]", "P||"}
	if strings.Join(keys(chunks), ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %q, want %q", keys(chunks), want)
	}
	if !chunks[1].IsBlock() || chunks[1].Text != "<<if $x>>inside<</if>>" {
		t.Errorf("block chunk = %q", chunks[1].Text)
	}
	if chunks[0].IsBlock() || chunks[2].IsBlock() {
		t.Errorf("filler chunk reported as block")
	}
	checkCover(t, p, chunks)
}

func TestSplit_OversizedBlockIsDemoted(t *testing.T) {
	body := "<<if $a>>" + strings.Repeat("x", 30) + "<<if $b>>y<</if>><</if>>"
	p, elements := resolved(t, body)
	chunks := Split(p, elements, Config{MaxLength: 25})

	want := []string{"P||", "P||", "P||Macro::if[0]-Macro::if[0]", "P||"}
	if strings.Join(keys(chunks), ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %q, want %q", keys(chunks), want)
	}
	if chunks[1].Text != strings.Repeat("x", 30) {
		t.Errorf("oversized element chunk = %q", chunks[1].Text)
	}
	if !chunks[2].IsBlock() || chunks[2].Text != "<<if $b>>y<</if>>" {
		t.Errorf("nested block chunk = %q", chunks[2].Text)
	}
	checkCover(t, p, chunks)
}

func TestSplit_LineBudget(t *testing.T) {
	p, elements := resolved(t, "one\n<<if $x>>two<</if>>\nthree\nfour\nfive")
	chunks := Split(p, elements, Config{MaxLines: 3})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), keys(chunks))
	}
	if !chunks[1].IsBlock() || chunks[1].Lines != 1 {
		t.Errorf("block chunk = %+v", chunks[1])
	}
	checkCover(t, p, chunks)
}

func TestSplit_GreedyFiller(t *testing.T) {
	body := strings.Repeat("<br>word ", 20)
	p, elements := resolved(t, body)
	chunks := Split(p, elements, Config{MaxLength: 40})

	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Length > 40 {
			t.Errorf("chunk %d is %d bytes", i, c.Length)
		}
	}
	checkCover(t, p, chunks)
}

func TestSplit_Empty(t *testing.T) {
	if chunks := Split(parser.Passage{Title: "E"}, nil, DefaultConfig()); chunks != nil {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkHash(t *testing.T) {
	a := Chunk{Key: "P||", Index: 0}
	b := Chunk{Key: "P||", Index: 1}
	if a.Hash() == b.Hash() || len(a.Hash()) != 16 {
		t.Errorf("hashes %q %q", a.Hash(), b.Hash())
	}
}
