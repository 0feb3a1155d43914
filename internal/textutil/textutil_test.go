package textutil

import (
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestHasLetters(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"   \n", false},
		{"<<>> 123 !?", false},
		{"Hello", true},
		{"你好", true},
		{"ünï", true},
	}
	for _, tt := range tests {
		if got := HasLetters(tt.in); got != tt.want {
			t.Errorf("HasLetters(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHash(t *testing.T) {
	a, b := Hash("Start||Macro::if[0]"), Hash("Start||Macro::if[1]")
	if len(a) != 64 || a == b {
		t.Errorf("hashes %q %q", a, b)
	}
	if ShortHash("x") != Hash("x")[:16] {
		t.Errorf("short hash is not a prefix")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("a\nb", 10); got != "a⏎b" {
		t.Errorf("got %q", got)
	}
	got := Truncate("这是一段很长的中文文本", 10)
	if w := runewidth.StringWidth(got); w > 10 {
		t.Errorf("%q is %d cells wide", got, w)
	}
}

func TestLines(t *testing.T) {
	for in, want := range map[string]int{"": 0, "a": 1, "a\n": 2, "a\nb\nc": 3} {
		if got := Lines(in); got != want {
			t.Errorf("Lines(%q) = %d, want %d", in, got, want)
		}
	}
}
