package parser

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// IssueKind classifies a block pairing problem.
type IssueKind string

const (
	// IssueUnclosed is a block head without a matching tail in its passage.
	IssueUnclosed IssueKind = "unclosed"
	// IssueUnopened is a block tail without a matching head in its passage.
	IssueUnopened IssueKind = "unopened"
)

// BlockIssue reports a head or tail that could not be paired. Such elements are
// left as ordinary elements so that nesting stays balanced.
type BlockIssue struct {
	Filepath string
	Passage  string
	Kind     IssueKind
	Type     ElementType
	Name     string
	PosStart int
}

func (i BlockIssue) String() string {
	return fmt.Sprintf("%s: %s %s %q at %d", i.Passage, i.Kind, i.Type, i.Name, i.PosStart)
}

// boundary is a closable macro or tag occurrence awaiting pairing.
type boundary struct {
	index int
	typ   ElementType
	name  string
}

// ResolveBlocks annotates the elements of one passage in place with block
// roles, names, nesting levels and semantic keys.
//
// Heads record the level after incrementing and tails the level before
// decrementing, so both sides of a block carry the same level. The level
// counter is local to the call.
func ResolveBlocks(elements []Element, names ClosableNames) []BlockIssue {
	if len(elements) == 0 {
		return nil
	}

	tails, issues := pairBoundaries(elements, names)

	title := elements[0].Passage
	root := newKeyFrame(title + "||")
	stack := []*keyFrame{root}
	level := 0

	for i := range elements {
		e := &elements[i]
		if tail, ok := tails[i]; ok {
			name := boundaryName(*e)
			e.BlockName = name
			if e.Type == ElementMacro {
				e.Block = MacroBlockHead
				elements[tail].Block = MacroBlockTail
			} else {
				e.Block = TagBlockHead
				elements[tail].Block = TagBlockTail
			}
			elements[tail].BlockName = name

			parent := stack[len(stack)-1]
			e.BlockSemanticKey = parent.childKey(string(e.Type), name)
			stack = append(stack, newKeyFrame(e.BlockSemanticKey+"-"))

			level++
			e.Level = level
			continue
		}

		if e.Block.IsTail() {
			e.Level = level
			level--
			stack = stack[:len(stack)-1]
			continue
		}

		e.Level = level
	}

	for _, issue := range issues {
		log.Warn().
			Str("file", issue.Filepath).
			Str("passage", issue.Passage).
			Str("kind", string(issue.Kind)).
			Str("name", issue.Name).
			Int("pos", issue.PosStart).
			Msg("Unpaired block boundary")
	}
	return issues
}

// pairBoundaries matches closable heads with tails of the same type and name.
// It returns head index → tail index. The tail role is set on the elements so
// the forward pass can recognise them.
func pairBoundaries(elements []Element, names ClosableNames) (map[int]int, []BlockIssue) {
	pairs := make(map[int]int)
	var issues []BlockIssue
	var open []boundary

	issue := func(b boundary, kind IssueKind) {
		e := elements[b.index]
		issues = append(issues, BlockIssue{
			Filepath: e.Filepath,
			Passage:  e.Passage,
			Kind:     kind,
			Type:     b.typ,
			Name:     b.name,
			PosStart: e.PosStart,
		})
	}

	for i := range elements {
		elements[i].Block = BlockNone
		elements[i].BlockName = ""
		elements[i].BlockSemanticKey = ""
		b, closing, ok := classifyBoundary(elements[i], names)
		if !ok {
			continue
		}
		b.index = i

		if !closing {
			open = append(open, b)
			continue
		}

		match := -1
		for j := len(open) - 1; j >= 0; j-- {
			if open[j].typ == b.typ && open[j].name == b.name {
				match = j
				break
			}
		}
		if match < 0 {
			issue(b, IssueUnopened)
			continue
		}
		for _, unclosed := range open[match+1:] {
			issue(unclosed, IssueUnclosed)
		}
		pairs[open[match].index] = i
		if b.typ == ElementMacro {
			elements[i].Block = MacroBlockTail
		} else {
			elements[i].Block = TagBlockTail
		}
		open = open[:match]
	}
	for _, unclosed := range open {
		issue(unclosed, IssueUnclosed)
	}
	return pairs, issues
}

// classifyBoundary reports whether e is an occurrence of a closable name and
// whether it is the closing form. Self-closing tags never open a block.
func classifyBoundary(e Element, names ClosableNames) (boundary, bool, bool) {
	switch e.Type {
	case ElementMacro:
		name, closing := macroName(e.Body)
		if name == "" || !names.HasMacro(name) {
			return boundary{}, false, false
		}
		return boundary{typ: ElementMacro, name: name}, closing, true
	case ElementTag:
		name, closing := tagName(e.Body)
		if name == "" || !names.HasTag(name) {
			return boundary{}, false, false
		}
		if !closing && isSelfClosingTag(e.Body) {
			return boundary{}, false, false
		}
		return boundary{typ: ElementTag, name: name}, closing, true
	}
	return boundary{}, false, false
}

func boundaryName(e Element) string {
	if e.Type == ElementMacro {
		name, _ := macroName(e.Body)
		return name
	}
	name, _ := tagName(e.Body)
	return name
}

// keyFrame is an open block (or the passage root) handing out sibling indices.
type keyFrame struct {
	prefix   string
	siblings map[string]int
}

func newKeyFrame(prefix string) *keyFrame {
	return &keyFrame{prefix: prefix, siblings: make(map[string]int)}
}

// childKey returns the semantic key of the next child block of type and name.
func (f *keyFrame) childKey(typ, name string) string {
	id := typ + "::" + name
	idx := f.siblings[id]
	f.siblings[id] = idx + 1
	return f.prefix + id + "[" + strconv.Itoa(idx) + "]"
}
