// Package extract implements the Fact Extractor (C7, spec §4.6): a
// structured-data path (JSON-LD/microdata) and a heuristic path
// (regex/phrase matching on cleaned text), combined by field precedence
// into the candidate (field, value, source_url) triples the Unifier
// persists. Grounded on the teacher's ContentExtractor selector-driven
// field mapping (internal/procurement/scraping/extractor.go), adapted
// from content-block extraction to typed-fact extraction.
package extract

import "time"

// pageRank is the precedence tier a candidate's source page earns
// (spec §4.6 "Precedence, per field"): lower values win.
type pageRank int

const (
	rankDedicatedPage pageRank = iota // e.g. /hours for the hours field
	rankStructuredAny                 // structured data found on any page
	rankFreeText                      // homepage/about free text
	rankBaseline                      // the venue row itself; never produced here
)

// Candidate is one field value surfaced by either extraction path,
// tagged with enough provenance to resolve precedence and
// contradictions (spec §4.6).
type Candidate struct {
	Field         string
	Value         any
	NotApplicable bool
	SourceURL     string
	FetchedAt     time.Time
	rank          pageRank
}
