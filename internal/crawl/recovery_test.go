package crawl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/store"
)

func TestEmailDomainCandidateDerivesFromSeedEmail(t *testing.T) {
	v := &store.Venue{ID: "v1", SeedEmail: "info@thecozycafe.example"}
	c, ok := emailDomainCandidate(v)
	require.True(t, ok)
	require.Equal(t, "https://thecozycafe.example", c.URL)
	require.Equal(t, store.RecoveryEmailDomain, c.Method)
}

func TestEmailDomainCandidateRejectsMissingEmail(t *testing.T) {
	v := &store.Venue{ID: "v1"}
	_, ok := emailDomainCandidate(v)
	require.False(t, ok)
}

func TestSocialCandidatesExcludesKnownPlatforms(t *testing.T) {
	v := &store.Venue{ID: "v1", SocialURLs: []string{
		"https://www.facebook.com/thecozycafe",
		"https://thecozycafe.example/",
	}}
	cands := socialCandidates(v)
	require.Len(t, cands, 1)
	require.Equal(t, "https://thecozycafe.example/", cands[0].URL)
}
