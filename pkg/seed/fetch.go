package seed

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Lists holds fetched words by language. Words are unique within a language
// and keep the order in which they were first seen.
type Lists map[string][]string

// Languages returns the languages in lexical order.
func (l Lists) Languages() []string {
	langs := make([]string, 0, len(l))
	for lang := range l {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Words returns every word once, walking languages in lexical order.
func (l Lists) Words() []string {
	return unique(l.flatten())
}

// Total returns the number of words summed over languages.
func (l Lists) Total() int {
	n := 0
	for _, words := range l {
		n += len(words)
	}
	return n
}

func (l Lists) flatten() []string {
	var out []string
	for _, lang := range l.Languages() {
		out = append(out, l[lang]...)
	}
	return out
}

// FetchList downloads a word list. Lines are trimmed and lower-cased; blank
// lines and lines starting with '#' are dropped.
func FetchList(ctx context.Context, client *http.Client, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", url, resp.Status)
	}

	var words []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	return words, nil
}

// FetchAll downloads every source in order. A failing source is logged and
// skipped.
func FetchAll(ctx context.Context, client *http.Client, sources []Source) Lists {
	lists := make(Lists)
	seen := make(map[string]map[string]struct{})

	for _, src := range sources {
		start := time.Now()
		words, err := FetchList(ctx, client, src.URL)
		if err != nil {
			log.Errorf("[seed][%s] failed to fetch list: %v", src.Language, err)
			continue
		}

		if seen[src.Language] == nil {
			seen[src.Language] = make(map[string]struct{})
		}
		added := 0
		for _, w := range words {
			if _, ok := seen[src.Language][w]; ok {
				continue
			}
			seen[src.Language][w] = struct{}{}
			lists[src.Language] = append(lists[src.Language], w)
			added++
		}

		log.Infof("[seed][%s] %d words, %d new (%v)", src.Language, len(words), added, time.Since(start).Round(time.Millisecond))
	}

	return lists
}

func unique(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
