// Package rule implements the ordered URL rewrite/redirect rules applied before resolution.
package rule

import "time"

// MatchKind selects the base pattern test a rule performs.
type MatchKind string

const (
	MatchURLPattern MatchKind = "urlPattern"
	MatchDomain     MatchKind = "domain"
	MatchPath       MatchKind = "path"
	MatchRegex      MatchKind = "regex"
	MatchExact      MatchKind = "exact"
)

// Operator compares a condition's extracted value against its reference value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpStartsWith  Operator = "startsWith"
	OpEndsWith    Operator = "endsWith"
	OpRegex       Operator = "regex"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
)

// ConditionSource names where a condition reads its left-hand value from.
type ConditionSource string

const (
	SourceHeader     ConditionSource = "header"
	SourceQueryParam ConditionSource = "queryParam"
	SourceTime       ConditionSource = "time"
	SourceUserAgent  ConditionSource = "userAgent"
	SourceReferer    ConditionSource = "referer"
)

// Condition is one additional predicate ANDed onto a rule's base pattern test.
type Condition struct {
	Source   ConditionSource `json:"source"`
	Key      string          `json:"key"`
	Value    string          `json:"value"`
	Operator Operator        `json:"operator"`
}

// Rule rewrites or redirects an inbound URL when its pattern and every
// condition match. Exactly one MatchKind governs the base test.
type Rule struct {
	ID         string            `json:"id"`
	Pattern    string            `json:"pattern"`
	MatchKind  MatchKind         `json:"match_kind"`
	Target     string            `json:"target"`
	Priority   int               `json:"priority"`
	Enabled    bool              `json:"enabled"`
	Conditions []Condition       `json:"conditions,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Context carries the request attributes conditions evaluate against.
type Context struct {
	Headers   map[string]string
	Query     map[string]string
	UserAgent string
	Referer   string
	Now       time.Time
}

// Application is the outcome of applying a matched rule to a URL.
type Application struct {
	// URL is the rewritten URL the pipeline continues with.
	URL string
	// ForwardHost, when set, delegates forwarding to a host:port address
	// while preserving the original URL.
	ForwardHost string
	// Headers to merge into the outbound request.
	Headers map[string]string
}
