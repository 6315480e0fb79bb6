package resolver

import (
	"context"
	"errors"
	"net/http"
	neturl "net/url"
	"regexp"
	"strings"

	"github.com/vidgate/vidgate/network"
)

// mediaURL recognizes direct stream URLs by container extension, matching
// the patterns commercial players sniff for.
var mediaURL = regexp.MustCompile(`https?://[^\s"'<>]{12,}\.(?:m3u8|mp4|mkv|flv|mp3|m4a|aac|mpd)(?:\?[^\s"'<>]*)?|https?://.*?video/tos[^\s"'<>]*`)

// mediaContentTypes marks response content types that indicate a stream.
var mediaContentTypes = []string{
	"video/",
	"audio/",
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"application/dash+xml",
	"application/octet-stream",
}

// inlinePatterns extract media URLs embedded in page script, probed in order.
var inlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bvar\s+\w*url\w*\s*=\s*["'](https?://[^"']+)["']`),
	regexp.MustCompile(`(?i)["']?(?:url|play_url|playUrl|video|src|file)["']?\s*[:=]\s*["'](https?://[^"']+)["']`),
}

// IsMediaURL reports whether the URL already points at a stream container.
func IsMediaURL(url string) bool {
	if strings.Contains(url, "url=http") || strings.Contains(url, "v=http") || strings.Contains(url, ".html") {
		return false
	}
	return mediaURL.MatchString(url)
}

// Sniff succeeds immediately for direct media URLs, probes the response
// otherwise, and finally scans the page body for inline stream references.
type Sniff struct{}

func (Sniff) Name() string { return "sniff" }

func (Sniff) CanHandle(url, site string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (s Sniff) Resolve(ctx context.Context, url, site string) (*Media, error) {
	if IsMediaURL(url) {
		return &Media{URL: url}, nil
	}

	// Probe without auto-following, honoring at most one redirect.
	current := url
	for hop := 0; hop < 2; hop++ {
		resp, err := network.FetchNoRedirect(ctx, http.MethodGet, current, nil, "")
		if err != nil {
			return nil, err
		}

		if location := resp.Header.Get("Location"); location != "" && resp.Status >= 300 && resp.Status < 400 {
			location = absoluteLocation(current, location)
			if IsMediaURL(location) {
				return &Media{URL: location, Referer: current}, nil
			}
			current = location
			continue
		}

		contentType := strings.ToLower(resp.Header.Get("Content-Type"))
		for _, marker := range mediaContentTypes {
			if strings.HasPrefix(contentType, marker) {
				return &Media{URL: current}, nil
			}
		}

		// Body scan fallback.
		body := string(resp.Body)
		for _, pattern := range inlinePatterns {
			if groups := pattern.FindStringSubmatch(body); len(groups) > 1 && IsMediaURL(groups[1]) {
				return &Media{URL: groups[1], Referer: current}, nil
			}
		}
		if found := mediaURL.FindString(body); found != "" {
			return &Media{URL: found, Referer: current}, nil
		}

		break
	}

	return nil, errors.New("no media detected")
}

// absoluteLocation resolves a Location header against the request URL.
func absoluteLocation(base, location string) string {
	baseURL, err := neturl.Parse(base)
	if err != nil {
		return location
	}
	ref, err := neturl.Parse(location)
	if err != nil {
		return location
	}
	return baseURL.ResolveReference(ref).String()
}
