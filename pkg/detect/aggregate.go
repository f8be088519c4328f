package detect

import "profanity/pkg/match"

// Result is the outcome of a single check.
type Result struct {
	HasProfanity bool           `json:"hasProfanity"`
	Matches      []match.Result `json:"matches"`
	OverallScore float64        `json:"overallScore"`
	CleanedText  string         `json:"text"`
	Evaluated    bool           `json:"evaluated"`
	Message      string         `json:"message,omitempty"`
}

// aggregate classifies the text from its per-candidate results. The overall
// score is averaged over every candidate before duplicates are removed.
func aggregate(results []match.Result, cleaned string) Result {
	r := Result{
		Matches:     dedupe(results),
		CleanedText: cleaned,
		Evaluated:   true,
	}

	var sum float64
	for _, res := range results {
		if res.IsProfane {
			r.HasProfanity = true
			sum += res.Score
		}
	}
	if len(results) > 0 {
		r.OverallScore = sum / float64(len(results))
	}

	return r
}

// dedupe keeps one result per matched term, the one with the highest score.
// Results keep the position of their term's first occurrence; ties keep the
// earlier result. Results without a term are never merged.
func dedupe(results []match.Result) []match.Result {
	out := make([]match.Result, 0, len(results))
	pos := make(map[string]int)

	for _, res := range results {
		if res.MatchedTerm == "" {
			out = append(out, res)
			continue
		}
		i, ok := pos[res.MatchedTerm]
		if !ok {
			pos[res.MatchedTerm] = len(out)
			out = append(out, res)
			continue
		}
		if res.Score > out[i].Score {
			out[i] = res
		}
	}

	return out
}
