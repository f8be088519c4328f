// Package candidate produces the text fragments that are tested against the
// similarity index.
//
// Several independent strategies run over the same normalized text so that
// word boundaries, spacing tricks and concatenation each leave at least one
// fragment that resembles the hidden word.
package candidate

import "fmt"

// Kind records which strategy produced a candidate.
type Kind int

const (
	// Word is a token split on word boundaries.
	Word Kind = iota
	// WordVariant is a token rewritten by a substitution rule, or a spaced-out
	// word joined back together.
	WordVariant
	// SlidingWindow is a fixed-size substring of the whitespace-free text.
	SlidingWindow
	// SemanticChunk is an overlapping run of consecutive words.
	SemanticChunk
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case WordVariant:
		return "variant"
	case SlidingWindow:
		return "window"
	case SemanticChunk:
		return "chunk"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{Word, WordVariant, SlidingWindow, SemanticChunk} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("candidate: unknown kind %q", b)
}

// Candidate is a fragment of normalized text. Identity is Text alone.
type Candidate struct {
	Text string
	Kind Kind
}

// Texts returns the text of every candidate, preserving order.
func Texts(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text
	}
	return out
}

// set accumulates candidates in insertion order, dropping repeated texts.
type set struct {
	seen  map[string]struct{}
	items []Candidate
}

func newSet() *set {
	return &set{seen: make(map[string]struct{})}
}

func (s *set) add(text string, kind Kind) {
	if text == "" {
		return
	}
	if _, ok := s.seen[text]; ok {
		return
	}
	s.seen[text] = struct{}{}
	s.items = append(s.items, Candidate{Text: text, Kind: kind})
}
