package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/filewalker"
	"sugarcube-l10n/internal/parser"
)

func writeCorpus(t *testing.T, files map[string]string) []filewalker.FileEntry {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := filewalker.NewWalker(".twee", nil).Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return entries
}

func TestRun(t *testing.T) {
	files := writeCorpus(t, map[string]string{
		"a.twee":       ":: Start\nHello <<if $x>>World<</if>> Bye\n:: Widgets [widget]\n<<widget \"w\">><span>x</span><</widget>>\n",
		"story/b.twee": ":: Lonely\n<em>never closed here\n",
		"story/c.twee": ":: Closer\n</em>\n",
		"bad.twee":     ":: Bad\nbin\x00ary\n",
		"empty.twee":   "",
	})

	var progressed atomic.Int32
	result, err := Run(context.Background(), files, Options{
		Workers: 2,
		Chunker: chunker.DefaultConfig(),
		OnFile:  func() { progressed.Add(1) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if int(progressed.Load()) != len(files) {
		t.Errorf("progress called %d times for %d files", progressed.Load(), len(files))
	}

	var titles []string
	for _, p := range result.Passages {
		titles = append(titles, p.Title)
	}
	want := []string{"Start", "Widgets", "Lonely", "Closer"}
	if len(titles) != len(want) {
		t.Fatalf("passages = %q, want %q", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("passage %d = %q, want %q", i, titles[i], want[i])
		}
	}

	if len(result.Skipped) != 1 || result.Skipped[0].Path != "bad.twee" {
		t.Fatalf("skipped = %+v", result.Skipped)
	}
	if !errors.Is(result.Skipped[0].Err, parser.ErrMalformedFile) {
		t.Errorf("skip reason = %v", result.Skipped[0].Err)
	}

	for _, name := range []string{"if", "widget"} {
		if !result.Names.HasMacro(name) {
			t.Errorf("macro %q not closable", name)
		}
	}
	if !result.Names.HasTag("span") || !result.Names.HasTag("em") {
		t.Errorf("tags = %v", result.Names.Tags)
	}

	start := result.Passages[0]
	if start.Filepath != "a.twee" {
		t.Errorf("filepath = %q", start.Filepath)
	}
	if start.Elements[1].BlockSemanticKey != "Start||Macro::if[0]" {
		t.Errorf("head key = %q", start.Elements[1].BlockSemanticKey)
	}
	if len(start.Chunks) != 1 || start.Chunks[0].Text != start.Body {
		t.Errorf("chunks = %+v", start.Chunks)
	}

	// <em> is only known to be closable from another file.
	issues := result.Issues()
	if len(issues) != 2 {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Passage != "Lonely" || issues[0].Kind != parser.IssueUnclosed {
		t.Errorf("first issue = %v", issues[0])
	}
	if issues[1].Passage != "Closer" || issues[1].Kind != parser.IssueUnopened {
		t.Errorf("second issue = %v", issues[1])
	}

	if got := len(result.Chunks()); got != 4 {
		t.Errorf("got %d chunks", got)
	}
}

func TestRun_DuplicateTitles(t *testing.T) {
	files := writeCorpus(t, map[string]string{
		"a.twee": ":: Start\nabc\n",
		"b.twee": ":: Start\n<<if $x>>twenty bytes<</if>>\n",
	})
	result, err := Run(context.Background(), files, Options{Workers: 2, Chunker: chunker.DefaultConfig()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Passages) != 2 || result.Passages[0].Ref() == result.Passages[1].Ref() {
		t.Fatalf("passages = %+v", result.Passages)
	}

	ids := make(map[string]bool)
	for _, c := range result.Chunks() {
		if ids[c.ID()] {
			t.Errorf("duplicate chunk id %q", c.ID())
		}
		ids[c.ID()] = true
	}
	if !ids["a.twee|Start||#0"] || !ids["b.twee|Start||#0"] {
		t.Errorf("chunk ids = %v", ids)
	}
}

func TestRun_NoPassages(t *testing.T) {
	files := writeCorpus(t, map[string]string{"empty.twee": "", "notes.twee": "no heads\n"})
	result, err := Run(context.Background(), files, Options{Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Passages) != 0 || len(result.Chunks()) != 0 {
		t.Errorf("expected an empty result, got %d passages", len(result.Passages))
	}
	if result.Names.HasMacro("if") {
		t.Errorf("names should be empty")
	}
}

func TestRun_Cancelled(t *testing.T) {
	files := writeCorpus(t, map[string]string{"a.twee": ":: A\nx\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, files, Options{Workers: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResolve_Isolated(t *testing.T) {
	p := parser.Passage{Filepath: "x.twee", Title: "X", Body: "<<nobr>>a<</nobr>>"}
	p.Length = len(p.Body)
	passages := []Passage{{Passage: p, Elements: parser.ExtractElements(p)}}

	Resolve(passages, parser.InferClosableNames(), chunker.DefaultConfig())
	if passages[0].Elements[0].Block != parser.BlockNone {
		t.Errorf("resolved without closable names")
	}

	names := parser.InferClosableNames(passages[0].Elements)
	Resolve(passages, names, chunker.DefaultConfig())
	if passages[0].Elements[0].Block != parser.MacroBlockHead {
		t.Errorf("not resolved with names")
	}
	if len(passages[0].Chunks) != 1 {
		t.Errorf("chunks = %d", len(passages[0].Chunks))
	}
}

func TestStats(t *testing.T) {
	files := writeCorpus(t, map[string]string{
		"a.twee": ":: Short\nx\n:: Long\n<<if $x>>longer body<</if>>\n:: W [widget]\n<<widget \"big\">>0123456789<</widget>><<widget \"small\">>0<</widget>>\n",
	})
	result, err := Run(context.Background(), files, Options{Workers: 1, Chunker: chunker.DefaultConfig()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := result.Stats()
	if s.Passages != 3 || s.Blocks != 3 || s.Widgets != 2 {
		t.Errorf("stats = %+v", s)
	}
	if s.Shortest.Title != "Short" || s.Longest.Title != "W" {
		t.Errorf("extremes = %q, %q", s.Shortest.Title, s.Longest.Title)
	}
	if s.LongestWidget.Name != "big" || s.ShortestWidget.Name != "small" {
		t.Errorf("widget extremes = %q, %q", s.LongestWidget.Name, s.ShortestWidget.Name)
	}
}
