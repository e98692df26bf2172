// Package store persists venues, scraped pages, enrichment, crawl jobs,
// recovery candidates, and embeddings, and exposes the freshness and geo
// queries the rest of the enrichment pipeline builds on. It owns all
// persistent state (spec §3 "Ownership").
package store

import "time"

// Venue is a physical place identified by an opaque string key from a
// baseline POI dataset. Created externally; Website is set by the
// Crawler Orchestrator's website-recovery step (SetWebsite) and
// LastEnrichedAt by the Unifier.
type Venue struct {
	ID                 string
	Name               string
	CategoryName       string
	CategoryWeight     *float64
	Lat                float64
	Lon                float64
	Website            string
	PopularityScore    *float64 // nil sorts lowest, never as a mid-value (spec §9 Open Question)
	LastEnrichedAt     *time.Time

	// SeedEmail and SocialURLs come from the baseline import and feed the
	// website-recovery step (spec §4.5 step 1); both may be empty.
	SeedEmail  string
	SocialURLs []string
}

// PageType enumerates the kinds of pages a crawl can discover.
type PageType string

const (
	PageHomepage PageType = "homepage"
	PageHours    PageType = "hours"
	PageMenu     PageType = "menu"
	PageContact  PageType = "contact"
	PageAbout    PageType = "about"
	PageFees     PageType = "fees"
	PageOther    PageType = "other"
)

// DiscoveryMethod records how a ScrapedPage's URL was found.
type DiscoveryMethod string

const (
	DiscoveryDirectURL DiscoveryMethod = "direct_url"
	DiscoverySearchAPI DiscoveryMethod = "search_api"
	DiscoveryHeuristic DiscoveryMethod = "heuristic"
)

// ScrapedPage is one row per fetched URL. content_hash uniqueness is a
// global database constraint (spec §9 Open Question resolved globally).
type ScrapedPage struct {
	ID          int64
	VenueID     string
	URL         string
	PageType    PageType
	FetchedAt   time.Time
	ValidUntil  *time.Time
	HTTPStatus  int
	ContentType string
	ContentHash string
	CleanText   string
	// RawHTML is the unmodified fetched body, kept alongside CleanText so
	// the Fact Extractor's structured-data path (JSON-LD/microdata) has
	// real tags to parse; CleanText alone has none left to find.
	RawHTML     string
	Discovery   DiscoveryMethod
	RedirectChain []string
	Reason      string // error reason code, empty on success
	SizeBytes   int
	TotalMS     int
	FirstByteMS int
}

// Hours is a 7-day map of open/close ranges; multi-range days hold more
// than one TimeRange. Normalized to 24h "HH:MM" strings.
type Hours map[Weekday][]TimeRange

type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// TimeRange is an open/close pair in 24h "HH:MM" format.
type TimeRange struct {
	Open  string
	Close string
}

// Contact holds the structured contact fields.
type Contact struct {
	Phone   string            `json:"phone,omitempty"`
	Email   string            `json:"email,omitempty"`
	Website string            `json:"website,omitempty"`
	Social  map[string]string `json:"social,omitempty"`
}

// MenuItem is a single parsed menu line.
type MenuItem struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

// Enrichment is the dated, source-cited set of facts attached to a
// venue, keyed by venue ID. Every populated field has a non-empty
// Sources entry and a per-field UpdatedAt timestamp (spec §4.7).
type Enrichment struct {
	VenueID string

	Hours     *Hours
	HoursUpdatedAt *time.Time

	Contact        *Contact
	ContactUpdatedAt *time.Time

	Description      string
	DescriptionUpdatedAt *time.Time

	Features      []string
	FeaturesUpdatedAt *time.Time

	MenuURL        string
	MenuItems      []MenuItem
	MenuUpdatedAt  *time.Time

	PriceRange      string
	PriceUpdatedAt  *time.Time

	Amenities       []string
	AmenitiesUpdatedAt *time.Time

	Fees            string
	FeesUpdatedAt   *time.Time

	// AddressComponents is the one legacy free-form field permitted by
	// spec §9's tagged-variant design note.
	AddressComponents map[string]any

	// NotApplicable marks fields explicitly determined absent (e.g. a
	// free attraction's "fees"), distinct from simply missing.
	NotApplicable map[string]bool

	// Sources maps field name to the ordered, de-duplicated list of
	// contributing page URLs.
	Sources map[string][]string
}

// JobMode distinguishes realtime (user-triggered) from background
// (scheduler-triggered) crawl jobs.
type JobMode string

const (
	ModeRealtime   JobMode = "realtime"
	ModeBackground JobMode = "background"
)

// JobState is the CrawlJob lifecycle: pending -> running -> {success,fail}.
type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobSuccess JobState = "success"
	JobFail    JobState = "fail"
)

// CrawlJob is one row in the priority job queue (spec §3, §4.1).
type CrawlJob struct {
	ID         int64
	VenueID    string
	Mode       JobMode
	Priority   int
	State      JobState
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	Error      string
	ReapCount  int
}

// RecoveryMethod is how a RecoveryCandidate's URL was derived.
type RecoveryMethod string

const (
	RecoveryEmailDomain RecoveryMethod = "email_domain"
	RecoverySearch      RecoveryMethod = "search"
	RecoverySocial      RecoveryMethod = "social"
)

// RecoveryCandidate is the audit trail for inferred website URLs.
type RecoveryCandidate struct {
	ID         int64
	VenueID    string
	URL        string
	Confidence float64
	Method     RecoveryMethod
	IsChosen   bool
	CreatedAt  time.Time
}

// Embedding is the fixed-dimension vector produced from enriched text.
const EmbeddingDimensions = 384

type Embedding struct {
	VenueID    string
	Vector     [EmbeddingDimensions]float32
	ValidUntil *time.Time
	CreatedAt  time.Time
}
