package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/store"
)

func TestExtractPrefersDedicatedPageOverHomepage(t *testing.T) {
	now := time.Now()
	pages := []store.ScrapedPage{
		{
			URL: "https://v.example/", PageType: store.PageHomepage, FetchedAt: now.Add(-time.Hour),
			CleanText: "We are open Mon-Fri 8am-6pm according to our homepage banner.",
		},
		{
			URL: "https://v.example/hours", PageType: store.PageHours, FetchedAt: now,
			CleanText: "Mon-Fri 9am-5pm, Sat 10am-2pm",
		},
	}
	results := New().Extract(pages)

	var hoursResult *FieldResult
	for i := range results {
		if results[i].Field == "hours" {
			hoursResult = &results[i]
		}
	}
	require.NotNil(t, hoursResult)
	hours := hoursResult.Value.(*store.Hours)
	require.Equal(t, []store.TimeRange{{Open: "09:00", Close: "17:00"}}, (*hours)[store.Monday])
	require.Contains(t, hoursResult.Sources, "https://v.example/hours")
}

func TestExtractStructuredDataJSONLD(t *testing.T) {
	rawHTML := `<html><body><script type="application/ld+json">
{"@type":"LocalBusiness","telephone":"+1 555 0100","priceRange":"$$","description":"A cozy spot for coffee and pastries in the heart of downtown."}
</script></body></html>`
	pages := []store.ScrapedPage{
		{
			URL: "https://v.example/", PageType: store.PageHomepage, FetchedAt: time.Now(),
			// CleanText is what a real crawl would store: tags already
			// stripped. RawHTML is what the structured-data path reads.
			CleanText: "A cozy spot for coffee and pastries in the heart of downtown.",
			RawHTML:   rawHTML,
		},
	}
	results := New().Extract(pages)

	var priceRange *FieldResult
	for i := range results {
		if results[i].Field == "price_range" {
			priceRange = &results[i]
		}
	}
	require.NotNil(t, priceRange)
	require.Equal(t, "$$", priceRange.Value)
}

func TestAssembleDescriptionTruncatesAtSentenceBoundary(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("This is sentence number ")
		sb.WriteString(strings.Repeat("x", 1))
		sb.WriteString(" about our venue with unique padding ")
		sb.WriteString(strings.Repeat("y", i+1))
		sb.WriteString(". ")
	}
	cands := []Candidate{{
		Field: "description", Value: sb.String(),
		SourceURL: "https://v.example/about", FetchedAt: time.Now(), rank: rankFreeText,
	}}
	result, ok := assembleDescription(cands)
	require.True(t, ok)
	words := len(strings.Fields(result.Value.(string)))
	require.GreaterOrEqual(t, words, descriptionMinWords)
	require.LessOrEqual(t, words, descriptionMaxWords)
}
