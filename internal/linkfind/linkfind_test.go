package linkfind

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/store"
)

const homepage = `
<html><body>
  <a href="/hours">Opening Hours</a>
  <a href="/menu">Our Menu</a>
  <a href="https://other-site.example/contact">Contact</a>
  <a href="/about-us">About Us</a>
  <a href="/fees">Admission Fees</a>
  <a href="/hours/2024">Hours 2024</a>
</body></html>`

func TestFindClassifiesAndOrders(t *testing.T) {
	out, err := Find("https://venue.example/", homepage)
	require.NoError(t, err)

	var types []store.PageType
	for _, c := range out {
		types = append(types, c.PageType)
	}
	// contact is off-domain and discarded; fees is lowest priority and
	// drops once the 3-candidate cap (spec §4.4) is hit.
	require.Equal(t, []store.PageType{store.PageHours, store.PageMenu, store.PageAbout}, types)

	for _, c := range out {
		require.Contains(t, c.URL, "venue.example")
	}
}

func TestFindPrefersShorterPathWithinType(t *testing.T) {
	out, err := Find("https://venue.example/", homepage)
	require.NoError(t, err)
	for _, c := range out {
		if c.PageType == store.PageHours {
			require.Equal(t, "https://venue.example/hours", c.URL)
		}
	}
}

func TestFindCapsAtThreeCandidates(t *testing.T) {
	out, err := Find("https://venue.example/", homepage)
	require.NoError(t, err)
	require.LessOrEqual(t, len(out), 3)
}

func TestFindDiscardsOffDomainLinks(t *testing.T) {
	out, err := Find("https://venue.example/", homepage)
	require.NoError(t, err)
	for _, c := range out {
		require.NotContains(t, c.URL, "other-site.example")
	}
}
