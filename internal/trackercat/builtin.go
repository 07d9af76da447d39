package trackercat

import "strings"

// matchSuffix reports whether host equals or is a subdomain of suffix.
func matchSuffix(host, suffix string) bool {
	host = strings.ToLower(host)
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}

var advertisingSuffixes = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"adnxs.com",
	"adsrvr.org",
	"taboola.com",
	"outbrain.com",
	"criteo.com",
	"pubmatic.com",
	"rubiconproject.com",
}

var analyticsSuffixes = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"segment.io",
	"segment.com",
	"mixpanel.com",
	"amplitude.com",
	"hotjar.com",
	"fullstory.com",
	"mouseflow.com",
	"sentry.io",
}

var socialSuffixes = []string{
	"facebook.net",
	"facebook.com",
	"platform.twitter.com",
	"ads-twitter.com",
	"analytics.twitter.com",
	"pinterest.com",
	"linkedin.com",
	"tiktok.com",
}

// advertisingClassifier recognizes common ad-serving and bidding domains.
type advertisingClassifier struct{}

func (advertisingClassifier) Name() string { return "advertising" }

func (advertisingClassifier) Match(host string) string {
	for _, suffix := range advertisingSuffixes {
		if matchSuffix(host, suffix) {
			return "advertising"
		}
	}
	return ""
}

// analyticsClassifier recognizes common web analytics/telemetry domains.
type analyticsClassifier struct{}

func (analyticsClassifier) Name() string { return "analytics" }

func (analyticsClassifier) Match(host string) string {
	for _, suffix := range analyticsSuffixes {
		if matchSuffix(host, suffix) {
			return "analytics"
		}
	}
	return ""
}

// socialClassifier recognizes common social-widget/share-button domains
// that embed tracking pixels on third-party pages.
type socialClassifier struct{}

func (socialClassifier) Name() string { return "social" }

func (socialClassifier) Match(host string) string {
	for _, suffix := range socialSuffixes {
		if matchSuffix(host, suffix) {
			return "social"
		}
	}
	return ""
}
