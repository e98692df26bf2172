package extract

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/geofacts/venues/internal/store"
)

// jsonLDNode models the subset of schema.org/LocalBusiness JSON-LD this
// extractor reads (spec §4.6 "Structured-data path"). Fields are
// permissive (any/[]any) since real-world JSON-LD varies in shape.
type jsonLDNode struct {
	Type                    any `json:"@type"`
	Telephone               string `json:"telephone"`
	Email                   string `json:"email"`
	URL                     string `json:"url"`
	PriceRange              string `json:"priceRange"`
	Description             string `json:"description"`
	Address                 any    `json:"address"`
	Menu                    string `json:"menu"`
	HasMenu                 string `json:"hasMenu"`
	AmenityFeature          []any  `json:"amenityFeature"`
	OpeningHoursSpecification any  `json:"openingHoursSpecification"`
	Offers                  any    `json:"offers"`
	PriceSpecification      any    `json:"priceSpecification"`
}

// ExtractStructured parses inline JSON-LD and simple microdata out of
// page HTML and emits field candidates tagged rankStructuredAny (spec
// §4.6).
func ExtractStructured(pageURL, html string, fetchedAt time.Time) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []Candidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var node jsonLDNode
		if err := json.Unmarshal([]byte(sel.Text()), &node); err != nil {
			// Some sites emit an array of nodes; try that shape too.
			var nodes []jsonLDNode
			if err2 := json.Unmarshal([]byte(sel.Text()), &nodes); err2 != nil {
				return
			}
			for _, n := range nodes {
				out = append(out, candidatesFromJSONLD(n, pageURL, fetchedAt)...)
			}
			return
		}
		out = append(out, candidatesFromJSONLD(node, pageURL, fetchedAt)...)
	})

	out = append(out, extractMicrodata(doc, pageURL, fetchedAt)...)
	return out
}

func candidatesFromJSONLD(n jsonLDNode, pageURL string, ft time.Time) []Candidate {
	var out []Candidate

	if n.Telephone != "" || n.Email != "" || n.URL != "" {
		out = append(out, Candidate{
			Field: "contact",
			Value: &store.Contact{Phone: n.Telephone, Email: n.Email, Website: n.URL},
			SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny,
		})
	}
	if n.PriceRange != "" {
		out = append(out, Candidate{Field: "price_range", Value: n.PriceRange, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
	}
	if n.Description != "" {
		out = append(out, Candidate{Field: "description", Value: n.Description, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
	}
	if n.Address != nil {
		if comp := addressComponents(n.Address); len(comp) > 0 {
			out = append(out, Candidate{Field: "address_components", Value: comp, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
		}
	}
	if menuURL := firstNonEmpty(n.Menu, n.HasMenu); menuURL != "" {
		out = append(out, Candidate{Field: "menu_url", Value: menuURL, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
	}
	if len(n.AmenityFeature) > 0 {
		if feats := stringsFromAmenities(n.AmenityFeature); len(feats) > 0 {
			out = append(out, Candidate{Field: "amenities", Value: feats, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
		}
	}
	if n.OpeningHoursSpecification != nil {
		if hours, ok := hoursFromSpecification(n.OpeningHoursSpecification); ok {
			out = append(out, Candidate{Field: "hours", Value: &hours, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
		}
	}
	if fee, na, ok := feesFromOffers(n.Offers, n.PriceSpecification); ok {
		out = append(out, Candidate{Field: "fees", Value: fee, NotApplicable: na, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
	}
	return out
}

func addressComponents(addr any) map[string]any {
	m, ok := addr.(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]any{}
	for _, k := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode", "addressCountry"} {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

func stringsFromAmenities(items []any) []string {
	var out []string
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

// hoursFromSpecification maps openingHoursSpecification (one object or
// an array) into a normalized 24h Hours map (spec §4.6).
func hoursFromSpecification(spec any) (store.Hours, bool) {
	var specs []map[string]any
	switch v := spec.(type) {
	case map[string]any:
		specs = []map[string]any{v}
	case []any:
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				specs = append(specs, m)
			}
		}
	default:
		return nil, false
	}

	hours := store.Hours{}
	for _, s := range specs {
		opens, _ := s["opens"].(string)
		closes, _ := s["closes"].(string)
		if opens == "" || closes == "" {
			continue
		}
		open, ok1 := normalizeISOClockTime(opens)
		close_, ok2 := normalizeISOClockTime(closes)
		if !ok1 || !ok2 {
			continue
		}
		for _, day := range daysOfWeekFrom(s["dayOfWeek"]) {
			hours[day] = append(hours[day], store.TimeRange{Open: open, Close: close_})
		}
	}
	if len(hours) == 0 {
		return nil, false
	}
	return hours, true
}

func normalizeISOClockTime(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if len(v) >= 5 && v[2] == ':' {
		return v[:5], true
	}
	return normalizeClockTime(v)
}

func daysOfWeekFrom(v any) []store.Weekday {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = []string{t}
	case []any:
		for _, it := range t {
			if s, ok := it.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	var out []store.Weekday
	for _, r := range raw {
		// schema.org uses full URIs like https://schema.org/Monday.
		last := r
		if idx := strings.LastIndex(r, "/"); idx >= 0 {
			last = r[idx+1:]
		}
		if d, ok := dayAliases[strings.ToLower(last)]; ok {
			out = append(out, d)
		}
	}
	return out
}

// feesFromOffers maps an Offer/PriceSpecification into a fees string,
// or NotApplicable=true when price is explicitly zero/free (spec §4.7
// "explicitly determined absent").
func feesFromOffers(offers, priceSpec any) (string, bool, bool) {
	for _, v := range []any{offers, priceSpec} {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		price, hasPrice := m["price"]
		currency, _ := m["priceCurrency"].(string)
		if !hasPrice {
			continue
		}
		switch p := price.(type) {
		case string:
			if p == "0" || strings.EqualFold(p, "free") {
				return "", true, true
			}
			return currency + p, false, true
		case float64:
			if p == 0 {
				return "", true, true
			}
			return strings.TrimSpace(currency + trimFloat(p)), false, true
		}
	}
	return "", false, false
}

func trimFloat(f float64) string {
	s := strings.TrimRight(strings.TrimRight(jsonNumber(f), "0"), ".")
	return s
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func extractMicrodata(doc *goquery.Document, pageURL string, ft time.Time) []Candidate {
	var out []Candidate
	doc.Find(`[itemprop="telephone"]`).First().Each(func(_ int, s *goquery.Selection) {
		if v := microdataValue(s); v != "" {
			out = append(out, Candidate{Field: "contact", Value: &store.Contact{Phone: v}, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
		}
	})
	doc.Find(`[itemprop="description"]`).First().Each(func(_ int, s *goquery.Selection) {
		if v := microdataValue(s); v != "" {
			out = append(out, Candidate{Field: "description", Value: v, SourceURL: pageURL, FetchedAt: ft, rank: rankStructuredAny})
		}
	})
	return out
}

func microdataValue(s *goquery.Selection) string {
	if v, ok := s.Attr("content"); ok && v != "" {
		return v
	}
	return strings.TrimSpace(s.Text())
}
