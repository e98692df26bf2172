package embed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateIsDeterministic(t *testing.T) {
	e := New()
	text := "A cozy neighborhood cafe with great coffee and pastries, free wifi and outdoor seating."
	a, err := e.Generate(text)
	require.NoError(t, err)
	b, err := e.Generate(text)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestGenerateProducesUnitVector(t *testing.T) {
	e := New()
	vec, err := e.Generate("A cozy neighborhood cafe with great coffee and pastries, free wifi and outdoor seating.")
	require.NoError(t, err)

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, math.Sqrt(sumSq), 0.01)
}

func TestGenerateRejectsShortText(t *testing.T) {
	e := New()
	_, err := e.Generate("too short")
	require.Error(t, err)
}

func TestGenerateDistinguishesDifferentText(t *testing.T) {
	e := New()
	a, err := e.Generate("A cozy neighborhood cafe with great coffee and pastries and wifi.")
	require.NoError(t, err)
	b, err := e.Generate("A loud downtown sports bar with pool tables and big screen TVs.")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
