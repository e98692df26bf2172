package linkfind

import "net/url"

// resolveURL resolves href against base, dropping fragments and
// non-http(s) schemes (mailto:, tel:, javascript:). Returns "" if href
// cannot contribute a candidate.
func resolveURL(base, href string) string {
	if href == "" || href[0] == '#' {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(h)
	if abs.Scheme != "" && abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func pathOnly(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
