package parser

import (
	"errors"
	"testing"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		typ  ElementType
		body string
		want Detail
	}{
		{"macro", ElementMacro, `<<set $x to "a>>b">>`, Detail{Name: "set", Args: `$x to "a>>b"`}},
		{"closing macro", ElementMacro, "<</if>>", Detail{Name: "if", Closing: true}},
		{"tag", ElementTag, `<span class="a">`, Detail{Name: "span", Args: `class="a"`}},
		{"closing tag", ElementTag, "</span>", Detail{Name: "span", Closing: true}},
		{"self-closing tag", ElementTag, `<img src="a.png" />`, Detail{Name: "img", Args: `src="a.png"`, SelfClosing: true}},
		{"comment", ElementComment, "/* note */", Detail{Content: "note"}},
		{"html comment", ElementComment, "<!--x-->", Detail{Content: "x"}},
		{"naked variable", ElementPlainText, " $gold ", Detail{Name: "$gold", Variable: true}},
		{"temporary variable", ElementPlainText, "_i", Detail{Name: "_i", Variable: true}},
		{"prose", ElementPlainText, "You have $gold coins.", Detail{}},
		{"javascript", ElementJavaScript, "var a;", Detail{Content: "var a;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Describe(Element{Type: tt.typ, Body: tt.body})
			if err != nil {
				t.Fatalf("Describe: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDescribe_UnknownType(t *testing.T) {
	_, err := Describe(Element{Type: "Widget", Passage: "P", Body: "x"})
	if !errors.Is(err, ErrUnknownElementType) {
		t.Fatalf("expected ErrUnknownElementType, got %v", err)
	}
}

func TestReview(t *testing.T) {
	passages, corpus, _ := resolve(t, ":: A\nHello <<if $x>>World<</if>> Bye\n:: B\n<<if $y>>all inside<</if>>\n")
	for i, p := range passages {
		if issues := Review(p, corpus[i]); len(issues) != 0 {
			t.Errorf("%s: unexpected issues %v", p.Title, issues)
		}
	}

	p := passages[0]
	broken := append([]Element(nil), corpus[0]...)
	broken[2].PosStart++
	broken[2].Body = "Xorld"
	broken[0].Level = 2

	checks := make(map[Check]bool)
	for _, issue := range Review(p, broken) {
		checks[issue.Check] = true
		if issue.Passage != "A" {
			t.Errorf("issue passage = %q", issue.Passage)
		}
	}
	for _, c := range []Check{CheckOrder, CheckReversible, CheckLevel} {
		if !checks[c] {
			t.Errorf("expected a %s issue", c)
		}
	}
}
