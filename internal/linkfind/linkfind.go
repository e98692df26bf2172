// Package linkfind implements the Link Finder (spec §4.4): given a
// homepage's raw HTML, it discovers up to 3 same-host candidate pages
// typed as hours/menu/contact/about/fees. Grounded on the
// teacher's SelectorSet-driven link walking in
// internal/procurement/scraping/extractor.go, generalized from content
// selectors to link classification.
package linkfind

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/geofacts/venues/internal/ratelimit"
	"github.com/geofacts/venues/internal/store"
)

// typeOrder is the priority order from spec §4.4 rule 2: hours > menu >
// contact > about > fees.
var typeOrder = []store.PageType{
	store.PageHours,
	store.PageMenu,
	store.PageContact,
	store.PageAbout,
	store.PageFees,
}

var typePriority = func() map[store.PageType]int {
	m := make(map[store.PageType]int, len(typeOrder))
	for i, t := range typeOrder {
		m[t] = i
	}
	return m
}()

// keywordSets classify a URL path or anchor text into a PageType. Each
// type is checked in typeOrder order so "first match wins" (spec §4.4
// rule 3).
var keywordSets = []struct {
	pageType store.PageType
	path     []string
	text     []string
}{
	{store.PageHours, []string{"/hours", "/opening", "/opening-hours", "/times"}, []string{"opening hours", "hours", "open times"}},
	{store.PageMenu, []string{"/menu", "/food", "/drinks", "/menus"}, []string{"menu", "food", "drinks"}},
	{store.PageContact, []string{"/contact", "/contact-us", "/find-us"}, []string{"contact", "contact us", "get in touch"}},
	{store.PageAbout, []string{"/about", "/about-us", "/our-story"}, []string{"about", "about us", "our story"}},
	{store.PageFees, []string{"/fees", "/pricing", "/admission", "/tickets"}, []string{"fees", "pricing", "admission", "tickets"}},
}

// Candidate is one discovered target page.
type Candidate struct {
	URL      string
	PageType store.PageType
	PathLen  int
	DocOrder int
}

// Find returns up to one candidate per type in typeOrder priority,
// parsing homepageHTML (the page's raw markup, not its tag-stripped
// text) with the homepage's URL as the base for relative links.
// Cross-host links are discarded (spec §4.4 rule 1).
func Find(homepageURL, homepageHTML string) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(homepageHTML))
	if err != nil {
		return nil, err
	}

	homeDomain, err := ratelimit.RegisteredDomain(homepageURL)
	if err != nil {
		return nil, err
	}

	best := make(map[store.PageType]Candidate)

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs := resolveURL(homepageURL, href)
		if abs == "" {
			return
		}
		domain, err := ratelimit.RegisteredDomain(abs)
		if err != nil || domain != homeDomain {
			return // off_domain_link: never attempted (spec §7)
		}

		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		pt, ok := classify(abs, text)
		if !ok {
			return
		}

		cand := Candidate{URL: abs, PageType: pt, PathLen: len(pathOnly(abs)), DocOrder: i}
		existing, have := best[pt]
		if !have || better(cand, existing) {
			best[pt] = cand
		}
	})

	out := make([]Candidate, 0, len(typeOrder))
	for _, t := range typeOrder {
		if c, ok := best[t]; ok {
			out = append(out, c)
		}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return typePriority[out[i].PageType] < typePriority[out[j].PageType]
	})
	return out, nil
}

// better implements spec §4.4 rule 2's tiebreak: shorter path first,
// then earlier in document order.
func better(a, b Candidate) bool {
	if a.PathLen != b.PathLen {
		return a.PathLen < b.PathLen
	}
	return a.DocOrder < b.DocOrder
}

func classify(absURL, anchorText string) (store.PageType, bool) {
	path := strings.ToLower(pathOnly(absURL))
	for _, ks := range keywordSets {
		for _, p := range ks.path {
			if strings.Contains(path, p) {
				return ks.pageType, true
			}
		}
		for _, kw := range ks.text {
			if strings.Contains(anchorText, kw) {
				return ks.pageType, true
			}
		}
	}
	return "", false
}
