package parser

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// ExtractElements splits a passage body into an ordered, gap-free list of elements.
//
// Absence of markup never fails: the result degrades to a single PlainText element.
func ExtractElements(p Passage) []Element {
	if p.HasTag("script") {
		return []Element{newElement(p, ElementJavaScript, 0, len(p.Body))}
	}

	candidates := matchCandidates(p)
	if len(candidates) == 0 {
		return []Element{newElement(p, ElementPlainText, 0, len(p.Body))}
	}

	elements := resolveOverlaps(p, candidates)
	elements = fillPlainTexts(p, elements)
	elements = mergeScripts(p, elements)

	if len(p.Widgets) > 0 {
		for i := range elements {
			elements[i].Widget = widgetAt(p.Widgets, elements[i].PosStart, elements[i].PosEnd)
		}
	}
	return elements
}

func newElement(p Passage, typ ElementType, start, end int) Element {
	return Element{
		Filepath: p.Filepath,
		Passage:  p.Title,
		Type:     typ,
		Body:     p.Body[start:end],
		PosStart: start,
		PosEnd:   end,
		Length:   end - start,
	}
}

// matchCandidates runs the comment, macro and tag matchers independently.
func matchCandidates(p Passage) []Element {
	var found []Element
	for _, loc := range commentPattern.FindAllStringIndex(p.Body, -1) {
		found = append(found, newElement(p, ElementComment, loc[0], loc[1]))
	}
	for _, loc := range macroPattern.FindAllStringIndex(p.Body, -1) {
		found = append(found, newElement(p, ElementMacro, loc[0], loc[1]))
	}
	for _, loc := range findTags(p.Body) {
		found = append(found, newElement(p, ElementTag, loc[0], loc[1]))
	}
	return found
}

// typeRank breaks ties between candidates with identical spans.
var typeRank = map[ElementType]int{
	ElementComment: 0,
	ElementMacro:   1,
	ElementTag:     2,
}

// resolveOverlaps keeps a non-overlapping subset of candidates.
//
// Candidates are ordered by start, longest first. A candidate that lies inside
// an accepted one is a spurious inner match and is dropped. A candidate that
// straddles the end of an accepted one is dropped too, with a warning, since the
// markup is ambiguous there.
func resolveOverlaps(p Passage, candidates []Element) []Element {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.PosStart != b.PosStart {
			return a.PosStart < b.PosStart
		}
		if a.PosEnd != b.PosEnd {
			return a.PosEnd > b.PosEnd
		}
		return typeRank[a.Type] < typeRank[b.Type]
	})

	kept := make([]Element, 0, len(candidates))
	for _, c := range candidates {
		if len(kept) == 0 {
			kept = append(kept, c)
			continue
		}
		last := kept[len(kept)-1]
		switch {
		case c.PosStart >= last.PosEnd:
			kept = append(kept, c)
		case c.PosEnd <= last.PosEnd:
			// Contained, e.g. a macro-looking span inside a comment.
		default:
			log.Warn().
				Str("file", p.Filepath).
				Str("passage", p.Title).
				Str("kept", string(last.Type)).
				Int("kept_start", last.PosStart).
				Str("dropped", string(c.Type)).
				Int("dropped_start", c.PosStart).
				Msg("Partially overlapping markup, keeping leftmost")
		}
	}
	return kept
}

// fillPlainTexts inserts PlainText elements for every gap so that the result
// covers the body from 0 to len(body).
func fillPlainTexts(p Passage, elements []Element) []Element {
	filled := make([]Element, 0, 2*len(elements)+1)
	cursor := 0
	for _, e := range elements {
		if e.PosStart > cursor {
			filled = append(filled, newElement(p, ElementPlainText, cursor, e.PosStart))
		}
		filled = append(filled, e)
		cursor = e.PosEnd
	}
	if cursor < len(p.Body) {
		filled = append(filled, newElement(p, ElementPlainText, cursor, len(p.Body)))
	}
	return filled
}

// mergeScripts collapses everything between a script opener and its closer
// into one JavaScript element. The opener and closer stay as they are.
func mergeScripts(p Passage, elements []Element) []Element {
	merged := make([]Element, 0, len(elements))
	for i := 0; i < len(elements); i++ {
		e := elements[i]
		merged = append(merged, e)

		closer := scriptCloserFor(e)
		if closer == nil {
			continue
		}

		j := i + 1
		for j < len(elements) && !closer(elements[j]) {
			j++
		}
		if j == len(elements) {
			log.Debug().Str("passage", p.Title).Int("pos", e.PosStart).Msg("Unclosed script block")
			continue
		}

		if elements[j].PosStart > e.PosEnd {
			merged = append(merged, newElement(p, ElementJavaScript, e.PosEnd, elements[j].PosStart))
		}
		merged = append(merged, elements[j])
		i = j
	}
	return merged
}

// scriptCloserFor returns a predicate matching the closer of e if e opens a
// script block, or nil otherwise.
func scriptCloserFor(e Element) func(Element) bool {
	switch e.Type {
	case ElementMacro:
		if name, closing := macroName(e.Body); name == "script" && !closing {
			return func(c Element) bool {
				n, cl := macroName(c.Body)
				return c.Type == ElementMacro && cl && n == "script"
			}
		}
	case ElementTag:
		if name, closing := tagName(e.Body); name == "script" && !closing && !isSelfClosingTag(e.Body) {
			return func(c Element) bool {
				n, cl := tagName(c.Body)
				return c.Type == ElementTag && cl && n == "script"
			}
		}
	}
	return nil
}

// widgetAt returns the name of the widget that fully contains [start, end).
func widgetAt(widgets []Widget, start, end int) string {
	for _, w := range widgets {
		if start >= w.PosStart && end <= w.PosEnd {
			return w.Name
		}
	}
	return ""
}
