package graph

import (
	"testing"

	"sugarcube-l10n/internal/parser"
)

func TestBlockRows(t *testing.T) {
	p := parser.Passage{Filepath: "a.twee", Title: "P", Body: "<<if $a>><span>x</span><</if>><<if $b>><</if>>"}
	p.Length = len(p.Body)
	elements := parser.ExtractElements(p)
	parser.ResolveBlocks(elements, parser.InferClosableNames(elements))

	rows := blockRows(elements)
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}

	want := []struct {
		key, parent string
		level       int
	}{
		{"a.twee|P||Macro::if[0]", "", 1},
		{"a.twee|P||Macro::if[0]-Tag::span[0]", "a.twee|P||Macro::if[0]", 2},
		{"a.twee|P||Macro::if[1]", "", 1},
	}
	for i, w := range want {
		if rows[i]["key"] != w.key || rows[i]["parent"] != w.parent || rows[i]["level"] != w.level {
			t.Errorf("row %d = %v, want %+v", i, rows[i], w)
		}
	}
	if rows[1]["semantic_key"] != "P||Macro::if[0]-Tag::span[0]" {
		t.Errorf("semantic key = %v", rows[1]["semantic_key"])
	}
	if rows[0]["args"] != "$a" || rows[1]["args"] != "" {
		t.Errorf("args = %q, %q", rows[0]["args"], rows[1]["args"])
	}
	if rows[0]["pos_start"] != 0 || rows[0]["pos_end"] != len("<<if $a>><span>x</span><</if>>") {
		t.Errorf("row 0 span = %v..%v", rows[0]["pos_start"], rows[0]["pos_end"])
	}
}

func TestBlockRows_NoBlocks(t *testing.T) {
	p := parser.Passage{Title: "P", Body: "plain"}
	p.Length = len(p.Body)
	elements := parser.ExtractElements(p)
	parser.ResolveBlocks(elements, parser.InferClosableNames(elements))
	if rows := blockRows(elements); len(rows) != 0 {
		t.Errorf("got %d rows", len(rows))
	}
}
