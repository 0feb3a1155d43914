package parser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownElementType is returned by Describe for an element whose type is
// not one of the known kinds.
var ErrUnknownElementType = errors.New("unknown element type")

// Detail is the fine-grained classification of a single element.
type Detail struct {
	// Name is the macro or tag name, or the variable name for naked variables.
	Name string
	// Args is the raw argument or attribute text.
	Args string
	// Closing is set for `<</name>>` and `</name>`.
	Closing bool
	// SelfClosing is set for tags ending with `/>`.
	SelfClosing bool
	// Content is the inner text of a comment.
	Content string
	// Variable is set for plain text that is a naked $story or _temporary variable.
	Variable bool
}

// Describe classifies an element in detail. An unknown element type fails that
// element only; callers are expected to log and carry on.
func Describe(e Element) (Detail, error) {
	switch e.Type {
	case ElementComment:
		return Detail{Content: commentContent(e.Body)}, nil
	case ElementMacro:
		name, closing := macroName(e.Body)
		d := Detail{Name: name, Closing: closing}
		if m := macroPattern.FindStringSubmatch(e.Body); m != nil {
			d.Args = m[2]
		}
		return d, nil
	case ElementTag:
		name, closing := tagName(e.Body)
		d := Detail{Name: name, Closing: closing, SelfClosing: isSelfClosingTag(e.Body)}
		if loc := tagNamePattern.FindStringIndex(e.Body); loc != nil {
			args := strings.TrimSuffix(e.Body[loc[1]:], ">")
			d.Args = strings.TrimSpace(strings.TrimSuffix(args, "/"))
		}
		return d, nil
	case ElementPlainText:
		trimmed := strings.TrimSpace(e.Body)
		if v := nakedVariablePattern.FindString(trimmed); v != "" && v == trimmed {
			return Detail{Name: v, Variable: true}, nil
		}
		return Detail{}, nil
	case ElementJavaScript:
		return Detail{Content: e.Body}, nil
	}
	return Detail{}, fmt.Errorf("%w: %q in %s at %d", ErrUnknownElementType, e.Type, e.Passage, e.PosStart)
}

func commentContent(raw string) string {
	for _, delim := range [][2]string{{"/*", "*/"}, {"<!--", "-->"}, {"/%", "%/"}} {
		if strings.HasPrefix(raw, delim[0]) && strings.HasSuffix(raw, delim[1]) && len(raw) >= len(delim[0])+len(delim[1]) {
			return strings.TrimSpace(raw[len(delim[0]) : len(raw)-len(delim[1])])
		}
	}
	return raw
}
