package unify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/extract"
	"github.com/geofacts/venues/internal/store"
)

// TestApplyPersistsFieldsAndCompletesJob is an integration test against
// a real Postgres instance, mirroring the store package's own skip
// pattern when TEST_DATABASE_URL is unset.
func TestApplyPersistsFieldsAndCompletesJob(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping unify integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := store.Open(ctx, url)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Pool().Exec(ctx, `INSERT INTO venues (id, name, geog) VALUES ('v-unify-1','Unify Venue', ST_MakePoint(0,0)::geography) ON CONFLICT DO NOTHING`)
	require.NoError(t, err)

	jobID, err := db.Enqueue(ctx, "v-unify-1", store.ModeRealtime, 100)
	require.NoError(t, err)
	_, err = db.Claim(ctx, 10)
	require.NoError(t, err)

	u := New(db)
	results := []extract.FieldResult{
		{Field: "description", Value: "A lovely place to visit.", Sources: []string{"https://v.example/about"}},
	}
	err = u.Apply(ctx, jobID, "v-unify-1", results, true, "")
	require.NoError(t, err)

	enr, err := db.GetEnrichment(ctx, "v-unify-1")
	require.NoError(t, err)
	require.NotNil(t, enr)
	require.Equal(t, "A lovely place to visit.", enr.Description)
	require.NotNil(t, enr.DescriptionUpdatedAt)

	job, err := db.JobByID(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, store.JobSuccess, job.State)
}
