package detect

import (
	"context"
	"errors"
	"math"
	"os"
	"reflect"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"profanity/pkg/embedding/hash"
	"profanity/pkg/index"
	"profanity/pkg/index/memory"
)

// testThreshold only accepts near-identical vectors, so the character hash
// embedding behaves like exact lookup.
const testThreshold = 0.99

var testVocabulary = []string{"shit", "bitch", "crap"}

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	e := hash.New(hash.DefaultDimensions)
	store := memory.New()

	records := make([]index.Record, 0, len(testVocabulary))
	for _, w := range testVocabulary {
		records = append(records, index.Record{
			ID:       "profanity-" + w,
			Values:   e.Vector(w),
			Metadata: index.Metadata{Word: w, Category: "profanity", Language: "en"},
		})
	}
	if _, err := store.Upsert(context.Background(), records); err != nil {
		t.Fatal(err)
	}

	return New(e, store, cfg)
}

func profaneTerms(r Result) []string {
	var terms []string
	for _, m := range r.Matches {
		if m.IsProfane {
			terms = append(terms, m.MatchedTerm)
		}
	}
	return terms
}

func TestService_Check(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	tests := []struct {
		name      string
		text      string
		wantTerms []string
	}{
		{"Leet", "sh1t", []string{"shit"}},
		{"Spaced out", "s h i t", []string{"shit"}},
		{"Concatenated", "youareshit", []string{"shit"}},
		{"Markers", "b*i*t*c*h", []string{"bitch"}},
		{"Repeated letters", "shiiiiit", []string{"shit"}},
		{"Invisible characters", "cr\u200Bap", []string{"crap"}},
		{"Variant", "what a b!tch", []string{"bitch"}},
		{"Two terms", "crap and sh1t", []string{"crap", "shit"}},
		{"Clean", "hello there friend", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Check(context.Background(), tt.text, testThreshold)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Evaluated {
				t.Fatalf("want text evaluated")
			}
			if got.HasProfanity != (len(tt.wantTerms) > 0) {
				t.Errorf("want hasProfanity %v, got %v", len(tt.wantTerms) > 0, got.HasProfanity)
			}
			if !reflect.DeepEqual(profaneTerms(got), tt.wantTerms) {
				t.Errorf("want profane terms %v, got %v", tt.wantTerms, profaneTerms(got))
			}
		})
	}
}

func TestService_CheckEmpty(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	got, err := s.Check(context.Background(), "", DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if got.HasProfanity || got.OverallScore != 0 || len(got.Matches) != 0 {
		t.Errorf("want empty negative result, got %+v", got)
	}
	if !got.Evaluated {
		t.Errorf("want empty text evaluated")
	}
}

func TestService_CheckCleanedText(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	got, err := s.Check(context.Background(), "Sh\u200B1T!!", testThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if got.CleanedText != "Sh1T!!" {
		t.Errorf("want cleaned text %q, got %q", "Sh1T!!", got.CleanedText)
	}
}

func TestService_CheckOversize(t *testing.T) {
	s := newTestService(t, Config{MaxChars: 20, MaxWords: 3})

	tests := []struct {
		name string
		text string
	}{
		{"Too many characters", strings.Repeat("a", 21)},
		{"Too many words", "shit shit shit shit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Check(context.Background(), tt.text, testThreshold)
			if err != nil {
				t.Fatalf("want no error for oversize input, got %v", err)
			}
			if got.Evaluated {
				t.Errorf("want text not evaluated")
			}
			if got.Message == "" {
				t.Errorf("want message explaining the rejection")
			}
			if got.HasProfanity || len(got.Matches) != 0 {
				t.Errorf("want no matches for unevaluated text, got %+v", got.Matches)
			}
		})
	}
}

func TestService_CheckLimitsOnCleanedText(t *testing.T) {
	s := newTestService(t, Config{MaxChars: 4})

	got, err := s.Check(context.Background(), "sh\u200B\u200Bit", testThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Evaluated {
		t.Errorf("want invisible characters excluded from the length limit")
	}
}

func TestService_CheckInvalidThreshold(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	for _, th := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		_, err := s.Check(context.Background(), "sh1t", th)
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %v: want error %v, got %v", th, ErrInvalidThreshold, err)
		}
	}
}

func TestService_Monotonic(t *testing.T) {
	s := newTestService(t, DefaultConfig())
	text := "you are a b!tch and this is crap youareshit"
	thresholds := []float64{0, 0.2, 0.5, 0.8, 0.9, 0.99, 1}

	var prev map[string]bool
	for _, th := range thresholds {
		got, err := s.Check(context.Background(), text, th)
		if err != nil {
			t.Fatal(err)
		}

		cur := make(map[string]bool)
		for _, m := range got.Matches {
			if m.IsProfane {
				cur[m.Text] = true
			}
		}
		for text := range cur {
			if prev != nil && !prev[text] {
				t.Errorf("threshold %v: candidate %q became profane at a higher threshold", th, text)
			}
		}
		prev = cur
	}
}

func TestService_Deterministic(t *testing.T) {
	s := newTestService(t, DefaultConfig())
	text := "youareshit and s h i t"

	first, err := s.Check(context.Background(), text, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, err := s.Check(context.Background(), text, DefaultThreshold)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("want identical results, got\n%+v\nvs\n%+v", first, got)
		}
	}
}

func TestService_Whitelist(t *testing.T) {
	plain := newTestService(t, DefaultConfig())
	got, err := plain.Check(context.Background(), "scrap", testThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasProfanity {
		t.Fatalf("want scrap flagged without a whitelist")
	}

	cfg := DefaultConfig()
	cfg.Whitelist = []string{"scrap"}
	s := newTestService(t, cfg)

	got, err = s.Check(context.Background(), "Scrap metal", testThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if got.HasProfanity {
		t.Errorf("want whitelisted word ignored, got %v", profaneTerms(got))
	}
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}
func (failingEmbedder) Dimensions() int   { return 1 }
func (failingEmbedder) ModelName() string { return "failing" }

func TestService_CheckEmbeddingFailure(t *testing.T) {
	s := New(failingEmbedder{}, memory.New(), DefaultConfig())

	_, err := s.Check(context.Background(), "sh1t", DefaultThreshold)
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("want error %v, got %v", ErrEmbedding, err)
	}
}

func TestService_CheckDimensionMismatch(t *testing.T) {
	store := memory.New()
	seeded := hash.New(hash.DefaultDimensions)
	record := index.Record{ID: "profanity-shit", Values: seeded.Vector("shit"), Metadata: index.Metadata{Word: "shit"}}
	if _, err := store.Upsert(context.Background(), []index.Record{record}); err != nil {
		t.Fatal(err)
	}

	s := New(hash.New(128), store, DefaultConfig())
	got, err := s.Check(context.Background(), "shit", 0.5)
	if !errors.Is(err, ErrIndexQuery) || !errors.Is(err, index.ErrDimensionMismatch) {
		t.Errorf("want %v wrapping %v, got %v", ErrIndexQuery, index.ErrDimensionMismatch, err)
	}
	if got.Evaluated || got.HasProfanity || got.Matches != nil {
		t.Errorf("want no result on index failure, got %+v", got)
	}
}

func TestService_DefaultThreshold(t *testing.T) {
	if got := New(failingEmbedder{}, memory.New(), Config{}).DefaultThreshold(); got != DefaultThreshold {
		t.Errorf("want default threshold %v, got %v", DefaultThreshold, got)
	}
	if got := New(failingEmbedder{}, memory.New(), Config{DefaultThreshold: 0.86}).DefaultThreshold(); got != 0.86 {
		t.Errorf("want configured threshold 0.86, got %v", got)
	}
}
