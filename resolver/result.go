// Package resolver turns page URLs into directly playable stream URLs
// through an ordered chain of fallback strategies.
package resolver

import "time"

// Media describes a playable stream produced by a strategy.
type Media struct {
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Referer   string            `json:"referer,omitempty"`
}

// Result is the outcome of one resolution. It is produced exactly once per
// attempt: either Media is set (success) or Err is set (failure), never both.
type Result struct {
	Media    *Media        `json:"media,omitempty"`
	Strategy string        `json:"strategy,omitempty"`
	Err      error         `json:"-"`
	Elapsed  time.Duration `json:"elapsed"`
}

// OK reports whether the resolution succeeded.
func (r *Result) OK() bool {
	return r.Err == nil && r.Media != nil
}

func success(media *Media, strategy string, elapsed time.Duration) *Result {
	return &Result{Media: media, Strategy: strategy, Elapsed: elapsed}
}

func failure(err error, elapsed time.Duration) *Result {
	return &Result{Err: err, Elapsed: elapsed}
}
