// Package embed implements the Embedding Producer (C11): deterministic,
// dependency-free vector generation from enriched venue text, adapted
// from the teacher's AdvancedEmbedder (pkg/embedder/advanced.go) —
// character trigrams, word frequencies, positional encoding, and a
// hash-based uniqueness term, normalized to a unit vector. No real ML
// model is in scope; this is a stable, comparable stand-in that makes
// the pgvector similarity path exercisable end-to-end.
package embed

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/geofacts/venues/internal/store"
)

// Dimensions matches the embeddings table's vector(384) column.
const Dimensions = store.EmbeddingDimensions

// MinTextChars is the minimum combined enriched-text length a venue
// needs before an embedding is worth generating.
const MinTextChars = 40

// Embedder generates fixed-dimension vectors from text.
type Embedder struct{}

func New() *Embedder { return &Embedder{} }

// Generate produces a unit-normalized [Dimensions]float32 vector from
// text, or an error if text is too short to be meaningful.
func (e *Embedder) Generate(text string) ([Dimensions]float32, error) {
	var out [Dimensions]float32
	if len(strings.TrimSpace(text)) < MinTextChars {
		return out, fmt.Errorf("text too short for embedding: %d chars", len(text))
	}

	normalized := normalizeText(text)
	features := extractFeatures(normalized)

	vec := make([]float32, Dimensions)
	for i := 0; i < Dimensions; i++ {
		var value float32

		if i < len(features.charTrigrams) {
			value += features.charTrigrams[i]
		}
		if len(features.wordFreqs) > 0 {
			value += features.wordFreqs[i%len(features.wordFreqs)] * 0.5
		}

		position := float32(i) / float32(Dimensions)
		value += float32(math.Sin(float64(position) * math.Pi))

		hash := sha256.Sum256([]byte(normalized + string(rune(i))))
		hashValue := binary.BigEndian.Uint32(hash[:4])
		value += (float32(hashValue)/float32(math.MaxUint32) - 0.5) * 0.3

		vec[i] = value
	}

	normalizeUnit(vec)
	copy(out[:], vec)
	return out, nil
}

type textFeatures struct {
	charTrigrams []float32
	wordFreqs    []float32
}

func extractFeatures(text string) textFeatures {
	trigrams := map[string]int{}
	runes := []rune(text)
	for i := 0; i+2 < len(runes); i++ {
		trigrams[string(runes[i:i+3])]++
	}
	var trigramScores []float32
	for _, count := range trigrams {
		idf := 1.0 / (1.0 + math.Log(float64(count)))
		trigramScores = append(trigramScores, float32(count)*float32(idf))
	}
	sort.Slice(trigramScores, func(i, j int) bool { return trigramScores[i] < trigramScores[j] })

	words := tokenize(text)
	wordCounts := map[string]int{}
	for _, w := range words {
		wordCounts[w]++
	}
	var wordFreqs []float32
	for _, count := range wordCounts {
		wordFreqs = append(wordFreqs, float32(count)/float32(len(words)))
	}
	sort.Slice(wordFreqs, func(i, j int) bool { return wordFreqs[i] < wordFreqs[j] })

	return textFeatures{charTrigrams: trigramScores, wordFreqs: wordFreqs}
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func tokenize(text string) []string {
	var words []string
	var cur strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			cur.WriteRune(r)
		} else if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func normalizeUnit(v []float32) {
	var sumSq float32
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return
	}
	mag := float32(math.Sqrt(float64(sumSq)))
	for i := range v {
		v[i] /= mag
	}
}
