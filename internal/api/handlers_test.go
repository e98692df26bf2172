package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/store"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func TestClassifyFreshnessNilEnrichmentMarksEverythingMissing(t *testing.T) {
	f := classifyFreshness(nil)
	require.Len(t, f.Missing, len(trackedFields))
	require.Empty(t, f.Stale)
	require.Empty(t, f.Fresh)
}

func TestClassifyFreshnessDistinguishesStaleFromFresh(t *testing.T) {
	fresh := time.Now().Add(-1 * time.Hour)
	stale := time.Now().Add(-20 * 24 * time.Hour)
	enr := &store.Enrichment{
		Hours:          &store.Hours{},
		HoursUpdatedAt: &fresh,
		Contact:        &store.Contact{Phone: "555"},
		ContactUpdatedAt: &stale,
	}
	f := classifyFreshness(enr)
	require.Contains(t, f.Fresh, "hours")
	require.Contains(t, f.Stale, "contact")
	require.Contains(t, f.Missing, "description")
}

// testStore mirrors internal/store's own DB-gated integration pattern;
// API handler tests that need real persistence skip cleanly without it.
func testStore(t *testing.T) *store.Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping api integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := store.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestQueryEndpointEnqueuesRealtimeJobForMissingVenue(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()

	_, err := db.Pool().Exec(ctx, `
INSERT INTO venues (id, name, category_name, geog) VALUES
  ('v-api-1', 'Test Cafe', 'cafe', ST_MakePoint(-122.4, 37.8)::geography)
ON CONFLICT DO NOTHING`)
	require.NoError(t, err)

	h := NewHandlers(db, zerolog.Nop())
	app := fiber.New()
	SetupRoutes(app, h)

	body := []byte(`{"query":"coffee","lat":37.8,"lon":-122.4,"radius_m":5000,"limit":5}`)
	req := httptest.NewRequest("POST", "/query", bytesReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var cards []ResultCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	require.NotEmpty(t, cards)
	require.NotNil(t, cards[0].JobID, "missing enrichment should trigger a realtime job")
}

func TestQueryEndpointRejectsOutOfRangeRadius(t *testing.T) {
	db := testStore(t)
	h := NewHandlers(db, zerolog.Nop())
	app := fiber.New()
	SetupRoutes(app, h)

	body := []byte(`{"query":"x","lat":0,"lon":0,"radius_m":999999,"limit":5}`)
	req := httptest.NewRequest("POST", "/query", bytesReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)
}

func TestScrapeStatusReturns404ForUnknownJob(t *testing.T) {
	db := testStore(t)
	h := NewHandlers(db, zerolog.Nop())
	app := fiber.New()
	SetupRoutes(app, h)

	req := httptest.NewRequest("GET", "/scrape/999999999", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)
}
