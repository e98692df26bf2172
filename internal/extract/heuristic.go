package extract

import (
	"regexp"
	"strings"

	"github.com/geofacts/venues/internal/store"
)

var (
	phoneRE = regexp.MustCompile(`\+?[0-9][0-9\-\.\s\(\)]{7,16}[0-9]`)
	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	priceRangeRE = regexp.MustCompile(`(?i)([£$€])\s*\d+(?:\.\d+)?\s*(?:-|to|–)\s*([£$€]?)\s*\d+(?:\.\d+)?`)
	admissionRE  = regexp.MustCompile(`(?i)\b(free entry|free admission|adults?\s*[£$€]\s*\d+(?:\.\d+)?|ticket[s]?\s*[£$€]?\s*\d*)\b`)
	menuLineRE   = regexp.MustCompile(`(?im)^\s*[-•*]\s*(.+?)(?:\s*[-–]\s*([£$€]\s*\d+(?:\.\d+)?))?\s*$`)
	featureHeadingRE = regexp.MustCompile(`(?i)\b(amenities|features|facilities)\b`)
)

const maxMenuItems = 50

// ExtractHeuristic applies targeted regex/phrase matching to cleaned
// text for the fields the structured-data path can miss (spec §4.6
// "Heuristic path").
func ExtractHeuristic(page store.ScrapedPage) []Candidate {
	text := page.CleanText
	ft := page.FetchedAt
	var out []Candidate

	rank := rankFreeText
	if isDedicated(page.PageType) {
		rank = rankDedicatedPage
	}

	if hours, ok := ParseHoursText(text); ok && (page.PageType == store.PageHours || page.PageType == store.PageHomepage) {
		out = append(out, Candidate{Field: "hours", Value: &hours, SourceURL: page.URL, FetchedAt: ft, rank: rank})
	}

	if phone := phoneRE.FindString(text); phone != "" {
		email := emailRE.FindString(text)
		out = append(out, Candidate{Field: "contact", Value: &store.Contact{Phone: strings.TrimSpace(phone), Email: email}, SourceURL: page.URL, FetchedAt: ft, rank: rank})
	} else if email := emailRE.FindString(text); email != "" {
		out = append(out, Candidate{Field: "contact", Value: &store.Contact{Email: email}, SourceURL: page.URL, FetchedAt: ft, rank: rank})
	}

	if pr := priceRangeRE.FindString(text); pr != "" {
		out = append(out, Candidate{Field: "price_range", Value: strings.TrimSpace(pr), SourceURL: page.URL, FetchedAt: ft, rank: rank})
	}

	if adm := admissionRE.FindString(text); adm != "" {
		out = append(out, Candidate{Field: "fees", Value: strings.TrimSpace(adm), SourceURL: page.URL, FetchedAt: ft, rank: rank})
	}

	if page.PageType == store.PageMenu {
		if items := menuItemsFrom(text); len(items) > 0 {
			out = append(out, Candidate{Field: "menu_items", Value: items, SourceURL: page.URL, FetchedAt: ft, rank: rank})
		}
	}

	if featureHeadingRE.MatchString(text) {
		if feats := featuresFrom(text); len(feats) > 0 {
			out = append(out, Candidate{Field: "amenities", Value: feats, SourceURL: page.URL, FetchedAt: ft, rank: rank})
		}
	}

	return out
}

func isDedicated(pt store.PageType) bool {
	switch pt {
	case store.PageHours, store.PageMenu, store.PageContact, store.PageFees:
		return true
	default:
		return false
	}
}

func menuItemsFrom(text string) []store.MenuItem {
	var items []store.MenuItem
	for _, m := range menuLineRE.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		items = append(items, store.MenuItem{Name: name, Price: strings.TrimSpace(m[2])})
		if len(items) >= maxMenuItems {
			break
		}
	}
	return items
}

func featuresFrom(text string) []string {
	lines := strings.Split(text, "\n")
	var feats []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || len(l) > 60 {
			continue
		}
		if strings.HasPrefix(l, "-") || strings.HasPrefix(l, "•") || strings.HasPrefix(l, "*") {
			feats = append(feats, strings.TrimSpace(strings.TrimLeft(l, "-•* ")))
		}
	}
	return feats
}
