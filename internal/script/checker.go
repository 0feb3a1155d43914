package script

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja/parser"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	twee "sugarcube-l10n/internal/parser"
)

// Finding is a syntax error in a JavaScript element.
type Finding struct {
	Filepath string
	Passage  string
	// PosStart is the offset of the element in the passage body.
	PosStart int
	// Line and Column locate the error inside the element, 1-based.
	Line    int
	Column  int
	Message string
}

// Checker syntax-checks JavaScript elements.
type Checker struct {
	limit int
}

// NewChecker creates a checker parsing at most limit elements at once.
func NewChecker(limit int) *Checker {
	if limit < 1 {
		limit = 1
	}
	return &Checker{limit: limit}
}

// Check parses every JavaScript element and reports syntax errors. Findings
// are sorted by file, passage and position.
func (c *Checker) Check(ctx context.Context, elements []twee.Element) ([]Finding, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)

	var mu sync.Mutex
	var findings []Finding
	checked := 0

	for _, e := range elements {
		if e.Type != twee.ElementJavaScript || strings.TrimSpace(e.Body) == "" {
			continue
		}
		checked++
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found := checkElement(e)
			if len(found) > 0 {
				mu.Lock()
				findings = append(findings, found...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Filepath != b.Filepath {
			return a.Filepath < b.Filepath
		}
		if a.Passage != b.Passage {
			return a.Passage < b.Passage
		}
		if a.PosStart != b.PosStart {
			return a.PosStart < b.PosStart
		}
		return a.Line < b.Line
	})

	for _, f := range findings {
		log.Warn().
			Str("file", f.Filepath).
			Str("passage", f.Passage).
			Int("line", f.Line).
			Int("column", f.Column).
			Str("error", f.Message).
			Msg("JavaScript syntax error")
	}
	log.Info().Int("checked", checked).Int("errors", len(findings)).Msg("Checked scripts")
	return findings, nil
}

// checkElement parses one element.
func checkElement(e twee.Element) []Finding {
	_, err := parser.ParseFile(nil, e.Passage, e.Body, 0)
	if err == nil {
		return nil
	}

	var list parser.ErrorList
	if !errors.As(err, &list) {
		return []Finding{{
			Filepath: e.Filepath,
			Passage:  e.Passage,
			PosStart: e.PosStart,
			Message:  err.Error(),
		}}
	}

	findings := make([]Finding, 0, len(list))
	for _, perr := range list {
		findings = append(findings, Finding{
			Filepath: e.Filepath,
			Passage:  e.Passage,
			PosStart: e.PosStart,
			Line:     perr.Position.Line,
			Column:   perr.Position.Column,
			Message:  perr.Message,
		})
	}
	return findings
}
