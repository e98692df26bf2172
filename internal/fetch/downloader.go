package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"github.com/geofacts/venues/internal/ratelimit"
)

const (
	connectTimeout  = 1 * time.Second
	firstByteTimeout = 1 * time.Second
	readTimeout     = 1 * time.Second
	hardWallClock   = 3 * time.Second
	maxBodyBytes    = 2 << 20 // 2 MB
	robotsTTL       = 24 * time.Hour
	userAgent       = "geofacts-venues/1.0 (+https://geofacts.example/bot)"
)

// MinFetchDuration is the sum of connect + first-byte + read minimums a
// fetch needs to have any chance of succeeding; the Crawler Orchestrator
// compares it against remaining job budget before issuing a fetch (spec
// §4.5 step 5).
const MinFetchDuration = connectTimeout + firstByteTimeout + readTimeout

// PageFetch is the Downloader's successful result (spec §4.3).
type PageFetch struct {
	StatusCode    int
	ContentType   string
	BodyBytes     int
	FirstByteMS   int
	TotalMS       int
	RedirectChain []string
	CleanText     string
	RawHTML       string
	FinalURL      string
}

// Downloader fetches pages under the strict timeouts and robots policy
// of spec §4.3. One Downloader is shared by every worker in the
// process: its robots cache has process lifetime (spec §4.3).
type Downloader struct {
	client *http.Client

	mu     sync.Mutex
	robots map[string]*robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// New builds a Downloader whose transport enforces the connect and
// first-byte ceilings at the net/http layer; the read and hard
// wall-clock ceilings are enforced inside Fetch.
func New() *Downloader {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: firstByteTimeout,
		TLSHandshakeTimeout:   connectTimeout,
	}
	return &Downloader{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		robots: make(map[string]*robotsEntry),
	}
}

// Fetch downloads rawURL, enforcing a fixed per-fetch hard wall-clock
// ceiling on top of any deadline already on ctx (spec §4.3). It
// returns a *FetchError with a taxonomy Reason on any non-success path.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*PageFetch, error) {
	host, err := ratelimit.RegisteredDomain(rawURL)
	if err != nil {
		return nil, NewError(ReasonNetworkTimeout, err)
	}

	allowed, err := d.checkRobots(ctx, rawURL, host)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewError(ReasonRobotsDisallowed, nil)
	}

	wallCtx, cancel := context.WithTimeout(ctx, hardWallClock)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(wallCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewError(ReasonNetworkTimeout, err)
	}
	req.Header.Set("User-Agent", userAgent)

	// A per-call client (sharing the Downloader's Transport) avoids a
	// data race on CheckRedirect when multiple fetches run concurrently.
	var redirectChain []string
	client := *d.client
	client.CheckRedirect = func(r *http.Request, via []*http.Request) error {
		redirectChain = append(redirectChain, r.URL.String())
		if len(via) >= 5 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()
	firstByteMS := int(time.Since(start) / time.Millisecond)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewError(ReasonHTTP429, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return nil, NewError(ReasonHTTP5xx, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewError(ReasonNon200Status, fmt.Errorf("status %d", resp.StatusCode))
	}

	ct := resp.Header.Get("Content-Type")
	if !isAcceptableMime(ct) {
		return nil, NewError(ReasonInvalidMime, fmt.Errorf("content-type %q", ct))
	}

	readCtx, readCancel := context.WithTimeout(wallCtx, readTimeout)
	defer readCancel()
	body, truncated, err := readCapped(readCtx, resp.Body, maxBodyBytes)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if truncated {
		return nil, NewError(ReasonSizeExceeded, nil)
	}

	clean, err := CleanText(body)
	if err != nil {
		return nil, NewError(ReasonInvalidMime, err)
	}

	return &PageFetch{
		StatusCode:    resp.StatusCode,
		ContentType:   ct,
		BodyBytes:     len(body),
		FirstByteMS:   firstByteMS,
		TotalMS:       int(time.Since(start) / time.Millisecond),
		RedirectChain: redirectChain,
		CleanText:     clean,
		RawHTML:       string(body),
		FinalURL:      resp.Request.URL.String(),
	}, nil
}

func (d *Downloader) checkRobots(ctx context.Context, rawURL, host string) (bool, error) {
	d.mu.Lock()
	entry, ok := d.robots[host]
	d.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < robotsTTL {
		return entry.data.TestAgent(pathOf(rawURL), userAgent), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false, NewError(ReasonNetworkTimeout, err)
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	reqCtx, cancel := context.WithTimeout(ctx, hardWallClock)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return false, NewError(ReasonNetworkTimeout, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		// Unreachable robots.txt is treated as permissive, matching the
		// teacher's ComplianceEngine default-allow behavior.
		d.cacheRobots(host, robotstxt.NewEmpty())
		return true, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		d.cacheRobots(host, robotstxt.NewEmpty())
		return true, nil
	}
	if resp.StatusCode != http.StatusOK {
		d.cacheRobots(host, robotstxt.NewEmpty())
		return true, nil
	}

	body, _, err := readCapped(reqCtx, resp.Body, maxBodyBytes)
	if err != nil {
		d.cacheRobots(host, robotstxt.NewEmpty())
		return true, nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		d.cacheRobots(host, robotstxt.NewEmpty())
		return true, nil
	}
	d.cacheRobots(host, data)
	return data.TestAgent(pathOf(rawURL), userAgent), nil
}

func (d *Downloader) cacheRobots(host string, data *robotstxt.RobotsData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.robots[host] = &robotsEntry{data: data, fetchedAt: time.Now()}
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func isAcceptableMime(contentType string) bool {
	ct := strings.ToLower(contentType)
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	ct = strings.TrimSpace(ct)
	return ct == "text/html" || ct == "application/xhtml+xml"
}

func readCapped(ctx context.Context, r io.Reader, limit int64) (body []byte, truncated bool, err error) {
	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		limited := io.LimitReader(r, limit+1)
		b, err := io.ReadAll(limited)
		done <- result{b, err}
	}()
	select {
	case res := <-done:
		if res.err != nil {
			return nil, false, res.err
		}
		if int64(len(res.body)) > limit {
			return res.body[:limit], true, nil
		}
		return res.body, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func classifyTransportError(err error) *FetchError {
	var dnsErr *net.DNSError
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return NewError(ReasonNetworkTimeout, err)
	}
	if ok := asDNSError(err, &dnsErr); ok {
		return NewError(ReasonDNSFailure, err)
	}
	if strings.Contains(err.Error(), "tls") || strings.Contains(err.Error(), "certificate") {
		return NewError(ReasonTLSError, err)
	}
	return NewError(ReasonNetworkTimeout, err)
}

func asDNSError(err error, target **net.DNSError) bool {
	for err != nil {
		if de, ok := err.(*net.DNSError); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true, "iframe": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "table": true,
	"ul": true, "ol": true, "section": true, "article": true, "header": true,
	"footer": true, "blockquote": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true,
}

var whitespaceRE = regexp.MustCompile(`[^\S\n]+`)

// CleanText reduces HTML to visible prose: strips script/style/etc and
// extracts text, inserting a line break at each block-level element so
// bullet lists and table rows stay on their own line, then collapses
// intra-line whitespace (spec §4.3). Grounded on the teacher's
// ContentExtractor HTML-to-text reduction, generalized from a flat
// doc.Text() (which destroys the line breaks the heuristic path's
// multiline regexes and bullet-list splitting depend on) to a
// block-aware walk of the parsed node tree.
func CleanText(htmlBody []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(htmlBody)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, n := range doc.Nodes {
		writeBlockText(n, &sb)
	}

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		line = strings.TrimSpace(whitespaceRE.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// writeBlockText appends n's visible text to sb, skipping script/style
// subtrees and emitting a newline after each block-level element so
// callers can recover line structure from otherwise tag-free text.
func writeBlockText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && skippedTags[n.Data] {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlockText(c, sb)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		sb.WriteString("\n")
	}
}

// ContentHash computes the stable hash used for the content_hash
// uniqueness constraint (spec §4.1/§9 "duplicate_content").
func ContentHash(cleanText string) string {
	sum := sha256.Sum256([]byte(cleanText))
	return hex.EncodeToString(sum[:])
}
