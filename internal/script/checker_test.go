package script

import (
	"context"
	"testing"

	twee "sugarcube-l10n/internal/parser"
)

func TestCheck(t *testing.T) {
	elements := []twee.Element{
		{Filepath: "a.twee", Passage: "Good", Type: twee.ElementJavaScript, Body: "var x = 1;\nsetup.f = (a) => `${a}`;"},
		{Filepath: "a.twee", Passage: "Bad", Type: twee.ElementJavaScript, Body: "var ok = 1;\nvar = ;", PosStart: 10},
		{Filepath: "a.twee", Passage: "Text", Type: twee.ElementPlainText, Body: "var = ; not a script"},
		{Filepath: "a.twee", Passage: "Blank", Type: twee.ElementJavaScript, Body: "  \n"},
	}

	findings, err := NewChecker(2).Check(context.Background(), elements)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(findings) == 0 {
		t.Fatal("expected a finding for the broken script")
	}
	for _, f := range findings {
		if f.Passage != "Bad" || f.PosStart != 10 {
			t.Errorf("unexpected finding %+v", f)
		}
		if f.Message == "" || f.Line < 1 {
			t.Errorf("finding lacks detail: %+v", f)
		}
	}
}

func TestCheck_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	elements := []twee.Element{{Passage: "S", Type: twee.ElementJavaScript, Body: "var a;"}}
	if _, err := NewChecker(1).Check(ctx, elements); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
