package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geofacts/venues/internal/fetch"
	"github.com/geofacts/venues/internal/store"
)

// TestHeuristicFieldsSurviveRealCleanText exercises menuItemsFrom and
// featuresFrom against fetch.CleanText's actual output, not a
// hand-written string with synthetic newlines: a flat whitespace-joined
// CleanText would leave every bullet line on one run-on line and these
// fields would never populate.
func TestHeuristicFieldsSurviveRealCleanText(t *testing.T) {
	menuHTML := []byte(`<html><body>
<h1>Menu</h1>
<ul>
  <li>- Margherita Pizza - $12</li>
  <li>- Caesar Salad - $9</li>
  <li>- Garlic Bread - $5</li>
</ul>
</body></html>`)

	clean, err := fetch.CleanText(menuHTML)
	require.NoError(t, err)
	require.Contains(t, clean, "\n")

	page := store.ScrapedPage{
		URL: "https://v.example/menu", PageType: store.PageMenu, FetchedAt: time.Now(),
		CleanText: clean,
	}
	items := menuItemsFrom(page.CleanText)
	require.Len(t, items, 3)
	require.Equal(t, "Margherita Pizza", items[0].Name)
	require.Equal(t, "$12", items[0].Price)

	featuresHTML := []byte(`<html><body>
<h2>Amenities</h2>
<ul>
  <li>- Free WiFi</li>
  <li>- Outdoor Seating</li>
  <li>- Wheelchair Accessible</li>
</ul>
</body></html>`)

	cleanFeatures, err := fetch.CleanText(featuresHTML)
	require.NoError(t, err)

	feats := featuresFrom(cleanFeatures)
	require.ElementsMatch(t, []string{"Free WiFi", "Outdoor Seating", "Wheelchair Accessible"}, feats)
}
