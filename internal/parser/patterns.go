package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// passageHeadPattern matches a passage head line: `:: Title [tags] {metadata}`.
// Titles may contain backslash escapes but no unescaped `:[]{}`.
var passageHeadPattern = regexp.MustCompile(
	`(?m)^::[ \t]*((?:\\.|[^\\:\[\]{}\r\n])*)(?:\[((?:\\.|[^\\\]\r\n])*)\])?[ \t]*(\{[^\r\n]*\})?[ \t]*\r?$`,
)

// commentPattern matches C style, HTML and TiddlyWiki comments.
var commentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/|<!--[\s\S]*?-->|/%[\s\S]*?%/`)

// macroArgs is the argument body of a macro. It consumes block comments, line
// comments, backtick expressions, quoted strings and link/image markup whole so
// that a `>>` inside any of them does not end the macro.
var macroArgs = strings.Join([]string{
	`/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`,
	`//.*\n`,
	"`(?:\\\\.|[^`\\\\\\n])*?`",
	`"(?:\\.|[^"\\\n])*?"`,
	`'(?:\\.|[^'\\\n])*?'`,
	`\[(?:[<>]?[Ii][Mm][Gg])?\[[^\r\n]*?\]\]+`,
	`[^>]`,
	`>`,
}, "|")

// macroPattern matches `<<name args>>` and `<</name>>`.
// Group 1 is the name (with a leading slash for closing forms), group 2 the arguments.
var macroPattern = regexp.MustCompile(`<<(/?[\p{L}\p{N}_=\-]+)(?:\s+((?:` + macroArgs + `)*?))?>>`)

// widgetPattern matches a whole widget definition inside a widget passage.
// Group 1 is the widget arguments, group 2 the widget body.
var widgetPattern = regexp.MustCompile(`<<widget(?:\s+((?:` + macroArgs + `)*?))?>>([\s\S]*?)<</widget>>`)

// widgetNamePattern extracts the quoted widget name from its arguments.
var widgetNamePattern = regexp.MustCompile(`"(\S+?)"|'(\S+?)'`)

// tagOpenPattern matches the start of an HTML-like tag: `<name` or `</name`.
// The rest of the tag is scanned by findTags since RE2 has no lookaround.
var tagOpenPattern = regexp.MustCompile(`<(/?)([\p{L}\p{N}_][\p{L}\p{N}_\-]*)`)

// tagNamePattern extracts the name of a matched tag.
var tagNamePattern = regexp.MustCompile(`^<(/?)([\p{L}\p{N}_][\p{L}\p{N}_\-]*)`)

// macroNamePattern extracts the name of a matched macro.
var macroNamePattern = regexp.MustCompile(`^<<(/?)([\p{L}\p{N}_=\-]+)`)

// nakedVariablePattern matches a story ($) or temporary (_) variable.
var nakedVariablePattern = regexp.MustCompile(`^[$_][$A-Za-z_][$0-9A-Za-z_]*`)

// findTags returns the spans of all tags in body.
//
// A tag starts with `<` that is neither preceded nor followed by another `<`,
// and ends at the first `>` that has no `>` on either side, which keeps macro
// delimiters out of tag matches. A candidate that runs into `<<`, `</` or
// another `<name` before its end is abandoned, so a stray `<` in script code
// cannot swallow the markup that follows it.
func findTags(body string) [][]int {
	var spans [][]int
	pos := 0
	for pos < len(body) {
		loc := tagOpenPattern.FindStringIndex(body[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		nameEnd := pos + loc[1]
		if start > 0 && body[start-1] == '<' {
			pos = start + 1
			continue
		}

		end := -1
		for i := nameEnd; i < len(body); i++ {
			if body[i] == '<' {
				if startsMarkup(body[i+1:]) {
					break
				}
				continue
			}
			if body[i] != '>' {
				continue
			}
			if body[i-1] == '>' {
				continue
			}
			if i+1 < len(body) && body[i+1] == '>' {
				continue
			}
			end = i + 1
			break
		}
		if end < 0 {
			pos = start + 1
			continue
		}

		spans = append(spans, []int{start, end})
		pos = end
	}
	return spans
}

// startsMarkup reports whether rest, the text after a `<`, opens a macro or tag.
func startsMarkup(rest string) bool {
	r, _ := utf8.DecodeRuneInString(rest)
	return r == '<' || r == '/' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// macroName returns the macro name of a raw macro and whether it is a closing form.
func macroName(raw string) (name string, closing bool) {
	m := macroNamePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[2], m[1] == "/"
}

// tagName returns the lower-cased tag name of a raw tag and whether it is a
// closing form.
func tagName(raw string) (name string, closing bool) {
	m := tagNamePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[2]), m[1] == "/"
}

// isSelfClosingTag reports whether a raw tag ends with `/>`.
func isSelfClosingTag(raw string) bool {
	return strings.HasSuffix(raw, "/>")
}
