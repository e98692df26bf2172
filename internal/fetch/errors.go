// Package fetch implements the Downloader (spec §4.3): HTTP fetches
// under strict timeouts, a body size cap, a content-type filter, robots
// compliance, and cleaned-text extraction. Grounded on the teacher's
// ContentExtractor (internal/procurement/scraping/extractor.go) for the
// HTML-to-text reduction and ComplianceEngine
// (internal/procurement/scraping/compliance.go) for the robots cache.
package fetch

// Reason is a closed taxonomy of fetch outcomes (spec §7). Every
// failed fetch carries exactly one Reason.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNetworkTimeout     Reason = "network_timeout"
	ReasonDNSFailure         Reason = "dns_failure"
	ReasonTLSError           Reason = "tls_error"
	ReasonHTTP5xx            Reason = "http_5xx"
	ReasonHTTP429            Reason = "http_429"
	ReasonRobotsDisallowed   Reason = "robots_disallowed"
	ReasonInvalidMime        Reason = "invalid_mime"
	ReasonNon200Status       Reason = "non_200_status"
	ReasonThinContent        Reason = "thin_content"
	ReasonDuplicateContent   Reason = "duplicate_content"
	ReasonOffDomainLink      Reason = "off_domain_link"
	ReasonSizeExceeded       Reason = "size_exceeded"
	ReasonTimeBudgetExceeded Reason = "time_budget_exceeded"
	ReasonNoWebsite          Reason = "no_website"
	ReasonShutdown           Reason = "shutdown"
)

// Retryable reports whether this reason belongs to the transient class
// that may be retried through the Rate Gate's backoff (spec §4.3, §7).
func (r Reason) Retryable() bool {
	switch r {
	case ReasonNetworkTimeout, ReasonDNSFailure, ReasonTLSError, ReasonHTTP5xx, ReasonHTTP429:
		return true
	default:
		return false
	}
}

// FetchError wraps a classified Reason with the underlying cause.
type FetchError struct {
	Reason Reason
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return string(e.Reason) + ": " + e.Cause.Error()
	}
	return string(e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// NewError constructs a FetchError.
func NewError(reason Reason, cause error) *FetchError {
	return &FetchError{Reason: reason, Cause: cause}
}
