// Package chunk splits extracted document text into overlapping passages
// for embedding and retrieval.
package chunk

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Config holds chunking parameters.
type Config struct {
	// Size is the target passage size in characters.
	Size int

	// Overlap is the number of characters shared between consecutive
	// passages, so a clause near a boundary is visible to both.
	Overlap int
}

// DefaultConfig returns the standard passage sizing.
func DefaultConfig() Config {
	return Config{Size: 1000, Overlap: 150}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("Size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("Overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap*2 >= c.Size {
		return fmt.Errorf("Overlap (%d) must be less than half of Size (%d)", c.Overlap, c.Size)
	}
	return nil
}

// Passage is one retrievable slice of a document.
type Passage struct {
	// Ordinal is the 0-based position of the passage in source order.
	Ordinal int

	// Text is the raw passage text.
	Text string

	// Section is the nearest preceding heading-like line, when one was
	// detected. Optional enrichment; empty when no heading was found.
	Section string
}

// Splitter produces overlapping passages from document text.
// Splitting is a pure function of (text, Size, Overlap): identical input
// always reproduces identical passage boundaries.
type Splitter struct {
	cfg Config
}

// NewSplitter creates a Splitter, validating the configuration.
func NewSplitter(cfg Config) (*Splitter, error) {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{cfg: cfg}, nil
}

// MustNewSplitter creates a Splitter, panicking on invalid config.
// Use for known-good configurations.
func MustNewSplitter(cfg Config) *Splitter {
	s, err := NewSplitter(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Split cuts text into ordered passages. Text shorter than one target
// window yields exactly one passage; a trailing partial passage is kept
// as-is. Passages prefer to end at a paragraph or sentence boundary past
// the midpoint of the window, falling back to a hard cut.
func (s *Splitter) Split(text string) []Passage {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	headings := detectHeadings(text)

	var passages []Passage
	pos := 0
	for {
		if pos+s.cfg.Size >= len(text) {
			passages = append(passages, s.newPassage(len(passages), text, pos, len(text), headings))
			break
		}

		cut := s.findCut(text, pos)
		passages = append(passages, s.newPassage(len(passages), text, pos, cut, headings))

		next := snapToRuneStart(text, cut-s.cfg.Overlap)
		if next <= pos {
			next = cut
		}
		pos = next
	}

	return passages
}

func (s *Splitter) newPassage(ordinal int, text string, start, end int, headings []heading) Passage {
	return Passage{
		Ordinal: ordinal,
		Text:    strings.TrimSpace(text[start:end]),
		Section: sectionFor(headings, start),
	}
}

// findCut picks the end of the passage starting at pos. A paragraph break
// past the window midpoint wins, then a sentence end, then a hard cut at
// the window edge.
func (s *Splitter) findCut(text string, pos int) int {
	window := text[pos : pos+s.cfg.Size]
	mid := s.cfg.Size / 2

	if idx := strings.LastIndex(window, "\n\n"); idx > mid {
		return pos + idx
	}
	if idx := lastSentenceEnd(window); idx > mid {
		return pos + idx
	}

	cut := snapToRuneStart(text, pos+s.cfg.Size)
	if cut <= pos {
		_, n := utf8.DecodeRuneInString(text[pos:])
		cut = pos + n
	}
	return cut
}

// snapToRuneStart moves i back to the nearest rune boundary so a cut
// never lands inside a multi-byte character.
func snapToRuneStart(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// lastSentenceEnd returns the index just past the last sentence-ending
// period in the window, or -1.
func lastSentenceEnd(window string) int {
	for i := len(window) - 1; i > 0; i-- {
		if window[i-1] != '.' {
			continue
		}
		if window[i] == ' ' || window[i] == '\n' {
			return i
		}
	}
	return -1
}

// heading is a detected heading-like line and its byte offset in the text.
type heading struct {
	offset int
	text   string
}

var (
	numberedClauseRe = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)
	articleRe        = regexp.MustCompile(`(?i)^(article|section|clause|schedule|part)\b`)
)

// detectHeadings scans the text once for heading-like lines: numbered
// clauses, ARTICLE/SECTION-style prefixes, or short all-caps lines.
// Best-effort over free text; misses are acceptable.
func detectHeadings(text string) []heading {
	var found []heading
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if isHeadingLine(trimmed) {
			found = append(found, heading{offset: offset, text: trimmed})
		}
		offset += len(line) + 1
	}
	return found
}

func isHeadingLine(line string) bool {
	if line == "" || len(line) > 80 {
		return false
	}
	if numberedClauseRe.MatchString(line) {
		return true
	}
	if articleRe.MatchString(line) {
		return true
	}
	return isAllCaps(line) && len(line) <= 60
}

// isAllCaps reports whether the line contains letters and none of them
// are lowercase.
func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter
}

// sectionFor returns the text of the last heading at or before start.
func sectionFor(headings []heading, start int) string {
	i := sort.Search(len(headings), func(i int) bool {
		return headings[i].offset > start
	})
	if i == 0 {
		return ""
	}
	return headings[i-1].text
}
