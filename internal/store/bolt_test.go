package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/config"
	"sugarcube-l10n/internal/filewalker"
	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/pipeline"
)

func runCorpus(t *testing.T) *pipeline.Result {
	t.Helper()
	root := t.TempDir()
	content := ":: Start\nHello <<if $x>>World<</if>> Bye\n" +
		":: Widgets [widget]\n<<widget \"w\">><span>x</span><</widget>>\n"
	if err := os.WriteFile(filepath.Join(root, "a.twee"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	files, err := filewalker.NewWalker(".twee", nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	result, err := pipeline.Run(context.Background(), files, pipeline.Options{Workers: 1, Chunker: chunker.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func openBolt(t *testing.T) *Bolt {
	t.Helper()
	s, err := NewBolt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewBolt: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBolt_SaveResult(t *testing.T) {
	ctx := context.Background()
	result := runCorpus(t)
	s := openBolt(t)

	if err := SaveResult(ctx, s, result); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	passages, err := s.Passages(ctx)
	if err != nil {
		t.Fatalf("Passages: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("got %d passages", len(passages))
	}
	for i, p := range passages {
		if !reflect.DeepEqual(p, result.Passages[i].Passage) {
			t.Errorf("passage %d = %+v, want %+v", i, p, result.Passages[i].Passage)
		}
	}
	if len(passages[1].Widgets) != 1 || passages[1].Widgets[0].Name != "w" {
		t.Errorf("widgets = %+v", passages[1].Widgets)
	}

	elements, err := s.Elements(ctx, "a.twee", "Start")
	if err != nil {
		t.Fatalf("Elements: %v", err)
	}
	if !reflect.DeepEqual(elements, result.Passages[0].Elements) {
		t.Errorf("elements differ after round trip")
	}
	if elements[1].BlockSemanticKey != "Start||Macro::if[0]" || elements[1].Block != parser.MacroBlockHead {
		t.Errorf("head = %+v", elements[1])
	}
	if missing, err := s.Elements(ctx, "a.twee", "Nowhere"); err != nil || missing != nil {
		t.Errorf("missing passage gave %v, %v", missing, err)
	}

	chunks, err := s.Chunks(ctx)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	want := result.Chunks()
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range chunks {
		if chunks[i].ID() != want[i].ID() || chunks[i].Text != want[i].Text {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i].ID(), want[i].ID())
		}
	}
}

func TestBolt_Reset(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t)
	if err := SaveResult(ctx, s, runCorpus(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	passages, _ := s.Passages(ctx)
	chunks, _ := s.Chunks(ctx)
	elements, _ := s.Elements(ctx, "a.twee", "Start")
	if len(passages)+len(chunks)+len(elements) != 0 {
		t.Errorf("store not empty after reset: %d %d %d", len(passages), len(chunks), len(elements))
	}
}

func TestBolt_DuplicateTitles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	for name, content := range map[string]string{
		"a.twee": ":: Start\nabc\n",
		"b.twee": ":: Start\n<<if $x>>twenty bytes<</if>>\n",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := filewalker.NewWalker(".twee", nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	result, err := pipeline.Run(ctx, files, pipeline.Options{Workers: 1, Chunker: chunker.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}

	s := openBolt(t)
	if err := SaveResult(ctx, s, result); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	passages, err := s.Passages(ctx)
	if err != nil || len(passages) != 2 {
		t.Fatalf("Passages = %d, %v", len(passages), err)
	}
	for _, p := range passages {
		elements, err := s.Elements(ctx, p.Filepath, p.Title)
		if err != nil {
			t.Fatalf("Elements: %v", err)
		}
		for _, e := range elements {
			if e.Filepath != p.Filepath {
				t.Errorf("%s holds an element of %s", p.Ref(), e.Filepath)
			}
		}
		if issues := parser.Review(p, elements); len(issues) != 0 {
			t.Errorf("%s: %v", p.Ref(), issues)
		}
	}

	chunks, err := s.Chunks(ctx)
	if err != nil || len(chunks) != 2 || chunks[0].ID() == chunks[1].ID() {
		t.Errorf("chunks = %+v, %v", chunks, err)
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = config.BackendNone
	s, err := Open(context.Background(), cfg)
	if err != nil || s != nil {
		t.Errorf("none backend gave %v, %v", s, err)
	}

	cfg.StoreBackend = config.BackendBolt
	cfg.BoltPath = filepath.Join(t.TempDir(), "open.db")
	s, err = Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*Bolt); !ok {
		t.Errorf("got %T", s)
	}
	s.Close()

	cfg.StoreBackend = "sqlite"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}
