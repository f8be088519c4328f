package candidate

import (
	"strings"
	"unicode"
)

// Config bounds the strategies. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// MinWordLen is the shortest token, in runes, tested as a word.
	MinWordLen int `toml:"minWordLen"`

	// WindowMinText and WindowMaxText bound the whitespace-free text length for
	// which sliding windows are produced. Enumeration cost grows with the
	// length, so longer texts skip the strategy.
	WindowMinText int `toml:"windowMinText"`
	WindowMaxText int `toml:"windowMaxText"`

	// WindowMinSize and WindowMaxSize are the inclusive window sizes in runes.
	WindowMinSize int `toml:"windowMinSize"`
	WindowMaxSize int `toml:"windowMaxSize"`

	// ChunkSize is the number of words per semantic chunk and ChunkOverlap
	// the number of words shared by neighbouring chunks.
	ChunkSize    int `toml:"chunkSize"`
	ChunkOverlap int `toml:"chunkOverlap"`
}

// DefaultConfig returns the limits used in production.
func DefaultConfig() Config {
	return Config{
		MinWordLen:    2,
		WindowMinText: 4,
		WindowMaxText: 50,
		WindowMinSize: 3,
		WindowMaxSize: 8,
		ChunkSize:     3,
		ChunkOverlap:  1,
	}
}

// substitutions undo symbol-for-letter swaps. Each rule is applied to a word
// on its own.
var substitutions = []struct {
	from string
	to   rune
}{
	{"!|", 'i'},
	{"$", 's'},
	{"@", 'a'},
	{"(", 'c'},
}

// Generator runs every strategy over a normalized text.
type Generator struct {
	cfg Config
}

// New returns a Generator. Invalid limits are replaced by their defaults.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.MinWordLen <= 0 {
		cfg.MinWordLen = def.MinWordLen
	}
	if cfg.WindowMinSize <= 0 {
		cfg.WindowMinSize = def.WindowMinSize
	}
	if cfg.WindowMaxSize < cfg.WindowMinSize {
		cfg.WindowMaxSize = cfg.WindowMinSize
	}
	if cfg.WindowMaxText <= 0 {
		cfg.WindowMaxText = def.WindowMaxText
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 0
	}

	return &Generator{cfg: cfg}
}

// Generate returns the deduplicated candidates for text, which must already be
// normalized. The order is deterministic: words, variants, spaced-out words,
// windows, chunks.
func (g *Generator) Generate(text string) []Candidate {
	s := newSet()
	fields := strings.Fields(text)

	g.words(s, text)
	g.variants(s, fields)
	g.spacedOut(s, fields)
	g.windows(s, fields)
	g.chunks(s, fields)

	return s.items
}

func (g *Generator) words(s *set, text string) {
	for _, w := range splitWords(text) {
		if runeLen(w) >= g.cfg.MinWordLen {
			s.add(w, Word)
		}
	}
}

func (g *Generator) variants(s *set, fields []string) {
	for _, f := range fields {
		for _, sub := range substitutions {
			v := replaceAny(f, sub.from, sub.to)
			if v == f {
				continue
			}
			v = strings.Join(splitWords(v), "")
			if runeLen(v) >= g.cfg.MinWordLen {
				s.add(v, WordVariant)
			}
		}
	}
}

// spacedOut joins runs of single letters ("s h i t").
func (g *Generator) spacedOut(s *set, fields []string) {
	var run []string
	flush := func() {
		if len(run) >= 2 {
			s.add(strings.Join(run, ""), WordVariant)
		}
		run = run[:0]
	}

	for _, f := range fields {
		if isSingleLetter(f) {
			run = append(run, f)
			continue
		}
		flush()
	}
	flush()
}

// windows enumerates substrings of the text with whitespace removed. Texts
// outside the configured length range are skipped as a whole.
func (g *Generator) windows(s *set, fields []string) {
	compact := []rune(strings.Join(fields, ""))
	n := len(compact)
	if n < g.cfg.WindowMinText || n > g.cfg.WindowMaxText {
		return
	}

	for size := g.cfg.WindowMinSize; size <= g.cfg.WindowMaxSize; size++ {
		for i := 0; i+size <= n; i++ {
			s.add(string(compact[i:i+size]), SlidingWindow)
		}
	}
}

func (g *Generator) chunks(s *set, fields []string) {
	if len(fields) < 2 {
		return
	}

	step := g.cfg.ChunkSize - g.cfg.ChunkOverlap
	for start := 0; start < len(fields); start += step {
		end := start + g.cfg.ChunkSize
		if end > len(fields) {
			end = len(fields)
		}
		s.add(strings.Join(fields[start:end], " "), SemanticChunk)
		if end == len(fields) {
			break
		}
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

// splitWords splits on every run of non-word characters.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !isWordRune(r)
	})
}

func isSingleLetter(s string) bool {
	rs := []rune(s)
	return len(rs) == 1 && unicode.IsLetter(rs[0])
}

func replaceAny(s, chars string, with rune) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return with
		}
		return r
	}, s)
}

func runeLen(s string) int {
	return len([]rune(s))
}
