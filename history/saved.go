package history

import (
	"fmt"
	"time"

	"github.com/vidgate/vidgate/resolver"
)

// SavedResolution represents a single resolved stream preserved in history.
type SavedResolution struct {
	SourceURL  string            `json:"source_url"`
	StreamURL  string            `json:"stream_url"`
	Strategy   string            `json:"strategy"`
	Headers    map[string]string `json:"headers,omitempty"`
	ElapsedMs  int64             `json:"elapsed_ms"`
	ResolvedAt time.Time         `json:"resolved_at"`
	Hits       int               `json:"hits"`
}

func (s *SavedResolution) encode() string {
	return s.SourceURL
}

func (s *SavedResolution) String() string {
	return fmt.Sprintf("%s -> %s (%s)", s.SourceURL, s.StreamURL, s.Strategy)
}

func newSavedResolution(sourceURL string, result *resolver.Result) *SavedResolution {
	return &SavedResolution{
		SourceURL:  sourceURL,
		StreamURL:  result.Media.URL,
		Strategy:   result.Strategy,
		Headers:    result.Media.Headers,
		ElapsedMs:  result.Elapsed.Milliseconds(),
		ResolvedAt: time.Now(),
	}
}
