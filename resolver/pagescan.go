package resolver

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/vidgate/vidgate/network"
)

// pagePatterns are tried in order against the page text. The first capture
// that is a plausible media URL wins. No script execution takes place, this
// is a purely textual scan.
var pagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<source[^>]+src\s*=\s*["'](https?://[^"']+)["']`),
	regexp.MustCompile(`(?i)<video[^>]+src\s*=\s*["'](https?://[^"']+)["']`),
	regexp.MustCompile(`(?i)player\w*\s*\(\s*["'](https?://[^"']+)["']`),
	regexp.MustCompile(`(?i)["']?(?:url|play_url|playUrl|video_url|videoUrl|src|file)["']?\s*[:=]\s*["'](https?://[^"']+)["']`),
	regexp.MustCompile(`(?i)\bvar\s+\w+\s*=\s*["'](https?://[^"']+\.(?:m3u8|mp4|mpd)[^"']*)["']`),
}

// PageScan fetches the page and scans its text for playable URLs. It is the
// slow, broad fallback behind the sniff and json strategies.
type PageScan struct{}

func (PageScan) Name() string { return "pagescan" }

func (PageScan) CanHandle(url, site string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (PageScan) Resolve(ctx context.Context, url, site string) (*Media, error) {
	resp, err := network.Fetch(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.Status >= http.StatusBadRequest {
		return nil, errors.New("page fetch failed: " + http.StatusText(resp.Status))
	}

	body := string(resp.Body)
	for _, pattern := range pagePatterns {
		for _, groups := range pattern.FindAllStringSubmatch(body, -1) {
			candidate := groups[1]
			if IsMediaURL(candidate) {
				return &Media{URL: candidate, Referer: url}, nil
			}
		}
	}

	// Last resort, any bare media URL anywhere in the page.
	if found := mediaURL.FindString(body); found != "" {
		return &Media{URL: found, Referer: url}, nil
	}

	return nil, errors.New("no playable url in page")
}
