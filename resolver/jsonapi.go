package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/vidgate/vidgate/network"
)

// candidateFields is the fixed, ordered list of JSON fields probed for a
// stream URL. Dotted names descend into nested objects.
var candidateFields = []string{
	"url", "play_url", "data.url", "video", "src", "file", "link", "stream",
}

// JSONAPI resolves through a structured parser endpoint, or directly against
// the target when no endpoint is configured.
type JSONAPI struct {
	// Endpoint, when set, receives the target URL-encoded as a query
	// parameter. An endpoint ending in "=" gets the target appended raw.
	Endpoint string
}

// NewJSONAPI constructs the structured-response strategy.
func NewJSONAPI(endpoint string) *JSONAPI {
	return &JSONAPI{Endpoint: endpoint}
}

func (*JSONAPI) Name() string { return "json" }

func (j *JSONAPI) CanHandle(url, site string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (j *JSONAPI) Resolve(ctx context.Context, target, site string) (*Media, error) {
	requestURL := target
	if j.Endpoint != "" {
		switch {
		case strings.HasSuffix(j.Endpoint, "="):
			requestURL = j.Endpoint + url.QueryEscape(target)
		case strings.Contains(j.Endpoint, "?"):
			requestURL = j.Endpoint + "&url=" + url.QueryEscape(target)
		default:
			requestURL = j.Endpoint + "?url=" + url.QueryEscape(target)
		}
	}

	resp, err := network.Fetch(ctx, http.MethodGet, requestURL, nil, "")
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, err
	}

	media := &Media{Headers: headerObject(payload)}
	for _, field := range candidateFields {
		if value := probe(payload, field); strings.HasPrefix(value, "http") {
			media.URL = value
			return media, nil
		}
	}

	return nil, errors.New("no stream field in response")
}

// probe resolves a possibly dotted field name against the payload.
func probe(payload map[string]any, field string) string {
	var current any = payload

	for _, part := range strings.Split(field, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = object[part]
		if !ok {
			return ""
		}
	}

	if s, ok := current.(string); ok {
		return s
	}
	return ""
}

// headerObject extracts a "header" object to forward to playback.
func headerObject(payload map[string]any) map[string]string {
	raw, ok := payload["header"].(map[string]any)
	if !ok {
		return nil
	}

	headers := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	return headers
}
