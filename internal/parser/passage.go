package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// ErrMalformedFile is returned by SplitPassages for content that cannot be
// split into passages, such as binary data or a head line without a title.
var ErrMalformedFile = errors.New("malformed passage structure")

// SplitPassages splits the content of one source file into passages.
//
// Blank content yields no passages and no error. Text before the first passage
// head is ignored.
func SplitPassages(filepath, content string) ([]Passage, error) {
	if strings.TrimSpace(content) == "" {
		log.Warn().Str("file", filepath).Msg("Blank source file, no passages")
		return nil, nil
	}
	if !utf8.ValidString(content) || strings.ContainsRune(content, 0) {
		return nil, fmt.Errorf("%w: %s contains binary data", ErrMalformedFile, filepath)
	}

	heads := passageHeadPattern.FindAllStringSubmatchIndex(content, -1)
	if len(heads) == 0 {
		log.Warn().Str("file", filepath).Msg("No passage heads found")
		return nil, nil
	}

	passages := make([]Passage, 0, len(heads))
	for i, loc := range heads {
		title := strings.TrimSpace(group(content, loc, 1))
		if title == "" {
			return nil, fmt.Errorf("%w: %s has a passage head without title at byte %d", ErrMalformedFile, filepath, loc[0])
		}

		bodyStart := loc[1]
		if bodyStart < len(content) && content[bodyStart] == '\n' {
			bodyStart++
		}
		bodyEnd := len(content)
		if i+1 < len(heads) {
			bodyEnd = heads[i+1][0]
		}
		if bodyStart > bodyEnd {
			bodyStart = bodyEnd
		}
		body := strings.TrimRight(content[bodyStart:bodyEnd], "\r\n")

		p := Passage{
			Filepath: filepath,
			Title:    unescapeTitle(title),
			Tag:      strings.TrimSpace(group(content, loc, 2)),
			Metadata: group(content, loc, 3),
			Body:     body,
			Length:   len(body),
		}
		if p.HasTag("widget") {
			p.Widgets = SplitWidgets(p.Title, body)
		}
		passages = append(passages, p)
	}

	return passages, nil
}

// SplitWidgets finds every widget definition in the body of a widget passage.
func SplitWidgets(passage, body string) []Widget {
	var widgets []Widget
	for _, loc := range widgetPattern.FindAllStringSubmatchIndex(body, -1) {
		args := group(body, loc, 1)
		inner := group(body, loc, 2)

		name := strings.TrimSpace(args)
		if m := widgetNamePattern.FindStringSubmatch(args); m != nil {
			name = m[1] + m[2]
		}

		widgets = append(widgets, Widget{
			Name:     name,
			Body:     inner,
			PosStart: loc[0],
			PosEnd:   loc[1],
			Length:   len(inner),
			Passage:  passage,
		})
	}
	return widgets
}

// group returns capture group n of a submatch index slice, or "" if it did not participate.
func group(s string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return s[loc[2*n]:loc[2*n+1]]
}

// unescapeTitle removes backslash escapes from a passage title.
func unescapeTitle(title string) string {
	if !strings.Contains(title, `\`) {
		return title
	}
	var b strings.Builder
	b.Grow(len(title))
	escaped := false
	for _, r := range title {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
