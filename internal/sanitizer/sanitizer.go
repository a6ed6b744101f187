// Package sanitizer detects and redacts PII before anything leaves the
// process boundary. Redaction is pure string work: deterministic, no network
// I/O, safe to run from any goroutine.
package sanitizer

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lumenlabs/handoff/internal/domain"
)

// Sanitizer redacts PII classes from text and enforces the content length
// bound. Placeholders identify only the PII class; two mentions of the same
// value in one document therefore redact to the same literal token (stable
// per-document reuse, documented assumption).
type Sanitizer struct {
	cfg Config
}

// New creates a Sanitizer from the given configuration.
func New(cfg Config) (*Sanitizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sanitizer{cfg: cfg}, nil
}

// MustNew creates a Sanitizer, panicking on invalid configuration.
func MustNew(cfg Config) *Sanitizer {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// span is a region of the input claimed by one rule.
type span struct {
	start, end int
	rule       int
}

// Sanitize redacts all configured PII classes from text and truncates the
// result to the configured maximum length. Truncation is reported, never
// silent. Returns ErrInvalidInput for non-UTF-8 input; callers must not
// forward unsanitized content on that path.
func (s *Sanitizer) Sanitize(text string) (string, domain.RedactionReport, error) {
	if !utf8.ValidString(text) {
		return "", domain.RedactionReport{}, domain.ErrInvalidInput
	}

	spans := s.collectSpans(text)
	counts := make([]int, len(s.cfg.Rules))
	for _, sp := range spans {
		counts[sp.rule]++
	}

	// Replace in reverse order so earlier offsets stay valid.
	out := text
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		out = out[:sp.start] + s.cfg.Rules[sp.rule].Placeholder + out[sp.end:]
	}

	report := domain.RedactionReport{}
	for i, rule := range s.cfg.Rules {
		if counts[i] > 0 {
			report.Entries = append(report.Entries, domain.RedactionEntry{
				Class: rule.Class,
				Count: counts[i],
			})
		}
	}

	if runes := []rune(out); len(runes) > s.cfg.MaxContentLength {
		out = string(runes[:s.cfg.MaxContentLength])
		report.Truncated = true
	}

	return out, report, nil
}

// SanitizeItem sanitizes a classified RawItem into the only form allowed to
// leave the process. Subject and content are folded together the same way
// the embedding text is built, so the subject is covered by redaction too.
func (s *Sanitizer) SanitizeItem(item *domain.RawItem) (*domain.SanitizedItem, error) {
	if err := domain.ValidateRawItem(item); err != nil {
		return nil, err
	}

	text := item.Content
	if strings.TrimSpace(item.Subject) != "" {
		text = item.Subject + "\n\n" + item.Content
	}

	content, report, err := s.Sanitize(text)
	if err != nil {
		return nil, err
	}

	return &domain.SanitizedItem{
		SourceItemID: item.ID,
		OrgID:        item.OrgID,
		SourceType:   item.SourceType,
		Content:      content,
		Report:       report,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Validate reports whether text is free of every configured PII pattern.
// It is the post-condition check run before any external call; callers
// re-run it at every boundary crossing rather than assuming an earlier
// result.
func (s *Sanitizer) Validate(text string) bool {
	for i := range s.cfg.Rules {
		if s.cfg.Rules[i].compiled.MatchString(text) {
			return false
		}
	}
	return true
}

// collectSpans gathers matches from all rules and resolves overlaps:
// earlier start wins, then earlier rule order. The result is sorted and
// non-overlapping.
func (s *Sanitizer) collectSpans(text string) []span {
	var all []span
	for i := range s.cfg.Rules {
		for _, m := range s.cfg.Rules[i].compiled.FindAllStringIndex(text, -1) {
			all = append(all, span{start: m[0], end: m[1], rule: i})
		}
	}
	if len(all) == 0 {
		return nil
	}

	sortSpans(all)

	kept := all[:1]
	for _, sp := range all[1:] {
		last := &kept[len(kept)-1]
		if sp.start < last.end {
			// Overlap: extend the claimed region, keep the first rule.
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		kept = append(kept, sp)
	}
	return kept
}

func sortSpans(spans []span) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].rule < spans[j].rule
	})
}
