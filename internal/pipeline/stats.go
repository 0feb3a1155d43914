package pipeline

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sugarcube-l10n/internal/parser"
	"sugarcube-l10n/internal/textutil"
)

// Stats summarises a run.
type Stats struct {
	Passages int
	Elements int
	Blocks   int
	Chunks   int
	Widgets  int
	Issues   int
	Skipped  int

	Longest, Shortest             *parser.Passage
	LongestWidget, ShortestWidget *parser.Widget
}

// Stats computes counts and extremes over the run.
func (r *Result) Stats() Stats {
	s := Stats{Passages: len(r.Passages), Skipped: len(r.Skipped)}
	for i := range r.Passages {
		p := &r.Passages[i]
		s.Elements += len(p.Elements)
		s.Chunks += len(p.Chunks)
		s.Issues += len(p.Issues)
		for _, e := range p.Elements {
			if e.Block.IsHead() {
				s.Blocks++
			}
		}

		if s.Longest == nil || p.Length > s.Longest.Length {
			s.Longest = &p.Passage
		}
		if s.Shortest == nil || p.Length < s.Shortest.Length {
			s.Shortest = &p.Passage
		}
		for j := range p.Widgets {
			w := &p.Widgets[j]
			s.Widgets++
			if s.LongestWidget == nil || w.Length > s.LongestWidget.Length {
				s.LongestWidget = w
			}
			if s.ShortestWidget == nil || w.Length < s.ShortestWidget.Length {
				s.ShortestWidget = w
			}
		}
	}
	return s
}

func logStats(r *Result) {
	s := r.Stats()
	log.Info().
		Int("passages", s.Passages).
		Int("elements", s.Elements).
		Int("blocks", s.Blocks).
		Int("chunks", s.Chunks).
		Int("issues", s.Issues).
		Msg("Pipeline complete")

	ev := log.Debug()
	if !ev.Enabled() {
		return
	}
	if s.Longest != nil {
		ev = passageFields(ev, "longest", s.Longest)
		ev = passageFields(ev, "shortest", s.Shortest)
	}
	if s.LongestWidget != nil {
		ev = ev.Str("longest_widget", s.LongestWidget.Name).Int("longest_widget_length", s.LongestWidget.Length).
			Str("shortest_widget", s.ShortestWidget.Name).Int("shortest_widget_length", s.ShortestWidget.Length)
	}
	ev.Int("widgets", s.Widgets).Msg("Passage statistics")
}

func passageFields(ev *zerolog.Event, prefix string, p *parser.Passage) *zerolog.Event {
	return ev.Str(prefix, p.Title).
		Int(prefix+"_length", p.Length).
		Str(prefix+"_preview", textutil.Truncate(p.Body, 40))
}
