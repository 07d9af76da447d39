// Package auditlog is the asynchronous logging sink: proxy goroutines hand
// it Entry values over a bounded channel and a single writer goroutine
// persists them to SQLite (spec §4.7). Record never blocks on I/O.
package auditlog

import "time"

// Kind discriminates the logical stream an Entry belongs to. Each Kind
// maps onto one SQLite table, except KindDomainUpdate, whose IP-literal
// hosts go to tracking_ips instead of tracking_domains (spec §6).
type Kind int

const (
	// KindRequest is a completed proxied request (request_log).
	KindRequest Kind = iota
	// KindCookieTraffic is a single cookie pair kept or dropped (cookie_traffic).
	KindCookieTraffic
	// KindFingerprintRotation is an actual fingerprint rotation (fingerprint_rotations).
	KindFingerprintRotation
	// KindDomainUpdate is a tracking_domains upsert (hit count / blocked / category).
	KindDomainUpdate
)

// Entry is the sum type handed to the sink. Exactly one of the payload
// fields is populated, selected by Kind.
type Entry struct {
	Kind Kind
	Time time.Time

	Request             *RequestLogEntry
	CookieTraffic       *CookieTrafficEntry
	FingerprintRotation *FingerprintRotationEntry
	DomainUpdate        *DomainUpdateEntry
}

// RequestLogEntry mirrors the request_log row shape (spec §6).
type RequestLogEntry struct {
	Domain    string
	Path      string
	UserAgent string
	ClientIP  string
}

// CookieTrafficEntry mirrors the cookie_traffic row shape (spec §6).
type CookieTrafficEntry struct {
	Domain  string
	Cookie  string
	Blocked bool
}

// FingerprintRotationEntry mirrors the fingerprint_rotations row shape (spec §6).
type FingerprintRotationEntry struct {
	UserAgent      string
	AcceptLanguage string
	Mode           string
}

// DomainUpdateEntry mirrors a tracking_domains upsert triggered by a hit or
// a block decision.
type DomainUpdateEntry struct {
	Domain   string
	HitCount uint64
	Blocked  bool
	Category string
}

// RequestEntry builds a KindRequest Entry stamped with the given time.
func RequestEntry(t time.Time, domain, path, userAgent, clientIP string) Entry {
	return Entry{
		Kind: KindRequest,
		Time: t,
		Request: &RequestLogEntry{
			Domain:    domain,
			Path:      path,
			UserAgent: userAgent,
			ClientIP:  clientIP,
		},
	}
}

// CookieTrafficEntryAt builds a KindCookieTraffic Entry.
func CookieTrafficEntryAt(t time.Time, domain, cookie string, blocked bool) Entry {
	return Entry{
		Kind: KindCookieTraffic,
		Time: t,
		CookieTraffic: &CookieTrafficEntry{
			Domain:  domain,
			Cookie:  cookie,
			Blocked: blocked,
		},
	}
}

// FingerprintRotationEntryAt builds a KindFingerprintRotation Entry.
func FingerprintRotationEntryAt(t time.Time, userAgent, acceptLanguage, mode string) Entry {
	return Entry{
		Kind: KindFingerprintRotation,
		Time: t,
		FingerprintRotation: &FingerprintRotationEntry{
			UserAgent:      userAgent,
			AcceptLanguage: acceptLanguage,
			Mode:           mode,
		},
	}
}

// DomainUpdateEntryAt builds a KindDomainUpdate Entry.
func DomainUpdateEntryAt(t time.Time, domain string, hitCount uint64, blocked bool, category string) Entry {
	return Entry{
		Kind: KindDomainUpdate,
		Time: t,
		DomainUpdate: &DomainUpdateEntry{
			Domain:   domain,
			HitCount: hitCount,
			Blocked:  blocked,
			Category: category,
		},
	}
}
