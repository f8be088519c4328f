// Package normalize turns raw user text into the canonical form that candidate
// generation works on.
//
// Normalization undoes the cheap tricks people use to slip words past a filter:
// invisible characters, upper case, censor padding, digit substitutions and
// letter repetition. The transform is total and idempotent.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DefaultMarkers are the symbols removed as censor padding ("f*ck", "sh#t").
const DefaultMarkers = "*@#$%&"

// invisible matches zero-width formatting characters and the no-break space.
var invisible = runes.Predicate(func(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF', '\u00A0':
		return true
	}
	return false
})

var leet = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'8': 'b',
}

// Normalizer applies the normalization steps. It holds no per-call state and is
// safe for concurrent use.
type Normalizer struct {
	markers   string
	whitelist []string
	allowed   map[string]struct{}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithWhitelist sets benign words that are dropped before matching to suppress
// known false positives.
func WithWhitelist(words ...string) Option {
	return func(n *Normalizer) {
		n.whitelist = append(n.whitelist, words...)
	}
}

// WithMarkers replaces the set of symbols stripped as censor padding.
func WithMarkers(markers string) Option {
	return func(n *Normalizer) {
		n.markers = markers
	}
}

// New returns a Normalizer configured with opts.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{markers: DefaultMarkers}
	for _, opt := range opts {
		opt(n)
	}

	// Whitelist entries are stored both as typed and in normalized form so a
	// token is recognised before and after the remaining steps.
	n.allowed = make(map[string]struct{}, len(n.whitelist)*2)
	for _, w := range n.whitelist {
		w = strings.TrimSpace(lower(w))
		if w == "" {
			continue
		}
		n.allowed[w] = struct{}{}
		if t := n.tail(w); t != "" {
			n.allowed[t] = struct{}{}
		}
	}

	return n
}

// Clean removes invisible characters and nothing else. The result keeps the
// user's text recognisable for display.
func Clean(raw string) string {
	s, _, err := transform.String(runes.Remove(invisible), raw)
	if err != nil {
		// runes.Remove never fails on valid input; fall back to the input.
		return raw
	}
	return s
}

// Normalize returns the canonical form of raw.
func (n *Normalizer) Normalize(raw string) string {
	s := lower(Clean(raw))
	if len(n.allowed) > 0 {
		s = n.dropAllowed(s)
	}
	return n.tail(s)
}

// tail runs the steps that follow whitelist filtering.
func (n *Normalizer) tail(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(n.markers, r) {
			return -1
		}
		return r
	}, s)

	s = strings.Map(func(r rune) rune {
		if l, ok := leet[r]; ok {
			return l
		}
		return r
	}, s)

	s = collapseRepeats(s)

	return strings.Join(strings.Fields(s), " ")
}

func (n *Normalizer) dropAllowed(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if n.isAllowed(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func (n *Normalizer) isAllowed(word string) bool {
	if _, ok := n.allowed[word]; ok {
		return true
	}
	_, ok := n.allowed[n.tail(word)]
	return ok
}

// collapseRepeats reduces every run of identical runes to a single rune.
func collapseRepeats(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	var prev rune = -1
	for _, r := range s {
		if r == prev {
			continue
		}
		sb.WriteRune(r)
		prev = r
	}
	return sb.String()
}

// lower is Unicode aware. A Caser keeps state, so one is built per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
