// Package trackercat classifies hosts into best-effort tracker categories
// (advertising, analytics, social) for the tracking_domains.category column
// (spec §6). Classification is advisory only: it never participates in the
// block/allow decision, which is owned entirely by internal/policy and
// internal/rewrite.
package trackercat

// Classifier recognizes one family of tracker by hostname.
type Classifier interface {
	// Name identifies the classifier itself, e.g. for logging.
	Name() string
	// Match returns the category string if host belongs to this family, or
	// "" if it doesn't.
	Match(host string) string
}

// Registry tries each registered classifier in order and returns the first
// non-empty category.
type Registry struct {
	ordered []Classifier
}

// NewRegistry builds a registry from the given classifiers, in match-order.
func NewRegistry(classifiers []Classifier) Registry {
	reg := Registry{ordered: make([]Classifier, 0, len(classifiers))}
	for _, c := range classifiers {
		if c == nil {
			continue
		}
		reg.ordered = append(reg.ordered, c)
	}
	return reg
}

// Default returns a registry populated with the built-in heuristic
// classifiers (spec §4.6's "best-effort" categorization).
func Default() Registry {
	return NewRegistry([]Classifier{
		advertisingClassifier{},
		analyticsClassifier{},
		socialClassifier{},
	})
}

// Classify returns the first matching category for host, or "" if no
// built-in classifier recognizes it.
func (r Registry) Classify(host string) string {
	for _, c := range r.ordered {
		if category := c.Match(host); category != "" {
			return category
		}
	}
	return ""
}

// Names returns the registered classifier names, in match order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.ordered))
	for _, c := range r.ordered {
		names = append(names, c.Name())
	}
	return names
}
