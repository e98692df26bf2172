// Package crawl implements the Crawler Orchestrator (C6, spec §4.5):
// website recovery, homepage fetch, target discovery, parallel target
// fetches, and budget enforcement, all under one hard wall-clock
// budget. Grounded on the teacher's DistributedCrawler
// (internal/procurement/scraping/crawler.go) for the worker-parallel
// fetch-and-collect shape, generalized from a crawl frontier to this
// spec's fixed per-venue fetch plan.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/geofacts/venues/internal/store"
)

// recoveryStageBudget bounds the website-recovery step (spec §4.5 step
// 1: "Budget for this stage: 500 ms; on timeout, abort the entire job
// with reason=no_website").
const recoveryStageBudget = 500 * time.Millisecond

// knownSocialPlatforms are excluded from "social" candidate derivation
// since a link to the platform itself (not a venue's profile page) is
// not a website candidate.
var knownSocialPlatforms = map[string]bool{
	"facebook.com": true, "instagram.com": true, "twitter.com": true,
	"x.com": true, "linkedin.com": true, "tiktok.com": true,
}

// SearchProvider is a pluggable collaborator for the "search" recovery
// method (spec §9 "external search as an optional collaborator"). The
// zero value (nil) disables the search method entirely; this package
// never fabricates search results.
type SearchProvider interface {
	// FindWebsite returns a best-guess homepage URL and confidence in
	// [0,1], or ("", 0, nil) if nothing was found.
	FindWebsite(ctx context.Context, venueName string, lat, lon float64) (string, float64, error)
}

// RecoverWebsite derives website candidates for a venue with no known
// website (spec §4.5 step 1), persists every candidate via store.Store,
// and writes the chosen URL back onto the venue. Returns ErrNoWebsite
// if no candidate could be derived or the stage budget expired.
func RecoverWebsite(ctx context.Context, db *store.Store, v *store.Venue, search SearchProvider) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, recoveryStageBudget)
	defer cancel()

	var candidates []store.RecoveryCandidate

	if c, ok := emailDomainCandidate(v); ok {
		candidates = append(candidates, c)
	}
	candidates = append(candidates, socialCandidates(v)...)

	if search != nil {
		if u, conf, err := search.FindWebsite(ctx, v.Name, v.Lat, v.Lon); err == nil && u != "" {
			candidates = append(candidates, store.RecoveryCandidate{
				VenueID: v.ID, URL: u, Confidence: conf, Method: store.RecoverySearch,
			})
		}
	}

	if len(candidates) == 0 {
		return "", ErrNoWebsite
	}

	best := 0
	for i, c := range candidates {
		if c.Confidence > candidates[best].Confidence {
			best = i
		}
	}
	candidates[best].IsChosen = true

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return "", ErrNoWebsite
		}
		if err := db.SaveRecoveryCandidate(ctx, &candidates[i]); err != nil {
			return "", fmt.Errorf("persist recovery candidate: %w", err)
		}
	}

	chosen := candidates[best].URL
	if err := db.SetWebsite(ctx, v.ID, chosen); err != nil {
		return "", fmt.Errorf("set recovered website: %w", err)
	}
	return chosen, nil
}

// ErrNoWebsite is returned when recovery found nothing usable; the
// orchestrator maps this to reason=no_website (spec §4.5 step 1, §7).
var ErrNoWebsite = fmt.Errorf("no_website")

func emailDomainCandidate(v *store.Venue) (store.RecoveryCandidate, bool) {
	at := strings.LastIndex(v.SeedEmail, "@")
	if at < 0 || at == len(v.SeedEmail)-1 {
		return store.RecoveryCandidate{}, false
	}
	domain := v.SeedEmail[at+1:]
	if domain == "" {
		return store.RecoveryCandidate{}, false
	}
	return store.RecoveryCandidate{
		VenueID: v.ID, URL: "https://" + domain, Confidence: 0.6, Method: store.RecoveryEmailDomain,
	}, true
}

func socialCandidates(v *store.Venue) []store.RecoveryCandidate {
	var out []store.RecoveryCandidate
	for _, raw := range v.SocialURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if knownSocialPlatforms[stripWWW(u.Host)] {
			continue // the platform link itself isn't a venue website
		}
		out = append(out, store.RecoveryCandidate{
			VenueID: v.ID, URL: raw, Confidence: 0.4, Method: store.RecoverySocial,
		})
	}
	return out
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
