package parser

import (
	"fmt"
	"strings"
)

// Check names a reviewer check.
type Check string

const (
	CheckOrder      Check = "order"
	CheckReversible Check = "reversible"
	CheckLevel      Check = "level"
)

// ReviewIssue is a failed reviewer check for one passage.
type ReviewIssue struct {
	Filepath string
	Passage  string
	Check    Check
	Detail   string
}

func (i ReviewIssue) String() string {
	return fmt.Sprintf("%s [%s] %s", i.Passage, i.Check, i.Detail)
}

// Review checks the elements of a resolved passage: that they cover the body
// in order without gaps, that they concatenate back to the body, and that the
// first and last elements sit at the top level.
func Review(p Passage, elements []Element) []ReviewIssue {
	var issues []ReviewIssue
	report := func(check Check, format string, args ...any) {
		issues = append(issues, ReviewIssue{
			Filepath: p.Filepath,
			Passage:  p.Title,
			Check:    check,
			Detail:   fmt.Sprintf(format, args...),
		})
	}

	if len(elements) == 0 {
		if p.Length > 0 {
			report(CheckOrder, "no elements for a body of %d bytes", p.Length)
		}
		return issues
	}

	first, last := elements[0], elements[len(elements)-1]
	switch {
	case first.PosStart != 0:
		report(CheckOrder, "first element starts at %d", first.PosStart)
	case last.PosEnd != p.Length:
		report(CheckOrder, "last element ends at %d of %d", last.PosEnd, p.Length)
	default:
		for i := 1; i < len(elements); i++ {
			if elements[i-1].PosEnd != elements[i].PosStart {
				report(CheckOrder, "gap between %d and %d", elements[i-1].PosEnd, elements[i].PosStart)
				break
			}
		}
	}

	var b strings.Builder
	b.Grow(p.Length)
	for _, e := range elements {
		b.WriteString(e.Body)
	}
	if b.String() != p.Body {
		report(CheckReversible, "elements do not concatenate back to the body")
	}

	if !topLevel(first, first.Block.IsHead()) {
		report(CheckLevel, "first element at level %d: %q", first.Level, first.Body)
	}
	if !topLevel(last, last.Block.IsTail()) {
		report(CheckLevel, "last element at level %d: %q", last.Level, last.Body)
	}
	return issues
}

// topLevel reports whether e has the level expected at a passage edge: 1 for a
// block boundary, 0 otherwise.
func topLevel(e Element, boundary bool) bool {
	if boundary {
		return e.Level == 1
	}
	return e.Level == 0
}
