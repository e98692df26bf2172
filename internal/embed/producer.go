package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/geofacts/venues/internal/store"
)

// ValidFor is how long a generated embedding is considered current
// before VenuesMissingEmbeddings picks the venue up again.
const ValidFor = 90 * 24 * time.Hour

// Producer builds enriched text per venue and writes embeddings (C11).
type Producer struct {
	DB       *store.Store
	Embedder *Embedder
}

func NewProducer(db *store.Store) *Producer {
	return &Producer{DB: db, Embedder: New()}
}

// ProcessBatch embeds up to n venues missing a current embedding,
// skipping any whose combined text falls below MinTextChars. Returns
// the number of embeddings written.
func (p *Producer) ProcessBatch(ctx context.Context, n int) (int, error) {
	ids, err := p.DB.VenuesMissingEmbeddings(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("list venues missing embeddings: %w", err)
	}

	written := 0
	for _, id := range ids {
		enr, err := p.DB.GetEnrichment(ctx, id)
		if err != nil {
			return written, fmt.Errorf("load enrichment for %s: %w", id, err)
		}
		if enr == nil {
			continue
		}

		vec, err := p.Embedder.Generate(enrichedText(enr))
		if err != nil {
			continue // below MinTextChars: leave unembedded until more facts land
		}

		validUntil := time.Now().Add(ValidFor)
		e := &store.Embedding{VenueID: id, Vector: vec, ValidUntil: &validUntil}
		if err := p.DB.SaveEmbedding(ctx, e); err != nil {
			return written, fmt.Errorf("save embedding for %s: %w", id, err)
		}
		written++
	}
	return written, nil
}

// fieldWeight biases the bag of text Generate extracts trigram/word
// frequencies from toward the fields a searcher actually compares
// venues by. Description and features/amenities carry the venue's
// character; price_range and fees are short, low-signal tokens kept at
// weight 1; hours and contact are precise lookup facts with no
// similarity value and are deliberately left out.
var fieldWeight = map[string]int{
	"description": 3,
	"features":    2,
	"amenities":   2,
	"menu_items":  2,
	"price_range": 1,
	"fees":        1,
}

// enrichedText assembles the text an embedding is generated from by
// repeating each field's rendered text fieldWeight times before joining,
// so fields central to what a venue "is" outweigh incidental ones
// without changing Generate's trigram/word-frequency math itself.
func enrichedText(e *store.Enrichment) string {
	var parts []string
	add := func(field, text string) {
		if text == "" {
			return
		}
		w := fieldWeight[field]
		if w == 0 {
			w = 1
		}
		for i := 0; i < w; i++ {
			parts = append(parts, text)
		}
	}

	add("description", e.Description)
	add("features", strings.Join(e.Features, ", "))
	add("amenities", strings.Join(e.Amenities, ", "))
	add("menu_items", menuItemNames(e.MenuItems))
	add("price_range", e.PriceRange)
	add("fees", e.Fees)

	return strings.Join(parts, ". ")
}

func menuItemNames(items []store.MenuItem) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.Name != "" {
			names = append(names, it.Name)
		}
	}
	return strings.Join(names, ", ")
}
