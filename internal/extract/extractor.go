package extract

import (
	"sort"
	"strings"

	"github.com/geofacts/venues/internal/store"
)

const (
	descriptionMinWords = 100
	descriptionMaxWords = 140
)

// FieldResult is one field's resolved value after precedence and
// contradiction handling, ready for the Unifier to persist (spec §4.7).
type FieldResult struct {
	Field         string
	Value         any
	NotApplicable bool
	Sources       []string
}

// Extractor runs both extraction paths over a venue's pages and
// combines them by precedence (spec §4.6).
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

// Extract runs the structured-data and heuristic paths over pages and
// resolves each field to one FieldResult by precedence, tie-break on
// recency, and contradiction handling (spec §4.6).
func (x *Extractor) Extract(pages []store.ScrapedPage) []FieldResult {
	var all []Candidate
	for _, p := range pages {
		if p.CleanText == "" {
			continue
		}
		if p.RawHTML != "" {
			// The structured-data path needs real tags (JSON-LD <script>,
			// itemprop attributes): CleanText has none left to find.
			all = append(all, ExtractStructured(p.URL, p.RawHTML, p.FetchedAt)...)
		}
		all = append(all, ExtractHeuristic(p)...)
	}

	byField := map[string][]Candidate{}
	for _, c := range all {
		byField[c.Field] = append(byField[c.Field], c)
	}

	var out []FieldResult
	for field, cands := range byField {
		if field == "description" {
			continue
		}
		if r, ok := resolveField(field, cands); ok {
			out = append(out, r)
		}
	}

	if desc, ok := assembleDescription(byField["description"]); ok {
		out = append(out, desc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// resolveField picks the winning candidate(s) for one field: lowest
// rank wins; ties broken by most recent FetchedAt; remaining ties at
// the same rank+time are contradictions, resolved per spec §4.6
// ("intersection" for hours, "first-encountered" otherwise).
func resolveField(field string, cands []Candidate) (FieldResult, bool) {
	if len(cands) == 0 {
		return FieldResult{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		return cands[i].FetchedAt.After(cands[j].FetchedAt)
	})

	best := cands[0]
	var tied []Candidate
	for _, c := range cands {
		if c.rank == best.rank && c.FetchedAt.Equal(best.FetchedAt) {
			tied = append(tied, c)
		}
	}

	sources := uniqueSources(cands)

	if len(tied) > 1 && field == "hours" {
		merged := *tied[0].Value.(*store.Hours)
		for _, t := range tied[1:] {
			merged = IntersectHours(merged, *t.Value.(*store.Hours))
		}
		return FieldResult{Field: field, Value: &merged, Sources: sources}, true
	}

	return FieldResult{Field: field, Value: best.Value, NotApplicable: best.NotApplicable, Sources: sources}, true
}

func uniqueSources(cands []Candidate) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range cands {
		if c.SourceURL == "" || seen[c.SourceURL] {
			continue
		}
		seen[c.SourceURL] = true
		out = append(out, c.SourceURL)
	}
	return out
}

// assembleDescription concatenates short sentences extracted verbatim
// from source pages, bounded to 100-140 words and truncated at the
// nearest sentence boundary (spec §4.6 "Summary/description").
func assembleDescription(cands []Candidate) (FieldResult, bool) {
	if len(cands) == 0 {
		return FieldResult{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].rank < cands[j].rank
	})

	var sentences []string
	seen := map[string]bool{}
	for _, c := range cands {
		text, _ := c.Value.(string)
		for _, s := range splitSentences(text) {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return FieldResult{}, false
	}

	var words []string
	var kept []string
	for _, s := range sentences {
		n := len(strings.Fields(s))
		if len(words)+n > descriptionMaxWords && len(words) >= descriptionMinWords {
			break
		}
		words = append(words, strings.Fields(s)...)
		kept = append(kept, s)
		if len(words) >= descriptionMaxWords {
			break
		}
	}
	if len(words) < descriptionMinWords {
		// Not enough verbatim text exists; the field stays empty rather
		// than being padded with generated content.
		return FieldResult{}, false
	}

	return FieldResult{Field: "description", Value: strings.Join(kept, " "), Sources: uniqueSources(cands)}, true
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		rest := strings.TrimSpace(text[start:])
		if rest != "" {
			out = append(out, rest)
		}
	}
	return out
}
