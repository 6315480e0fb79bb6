package resolver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vidgate/vidgate/network"
)

// Handler resolves pages for one specific site.
type Handler func(ctx context.Context, url string, doc *goquery.Document) (*Media, error)

// Site dispatches by hostname to registered handlers and falls back to
// extracting an embedded player iframe when no handler claims the host.
type Site struct {
	handlers map[string]Handler
}

// NewSite constructs the site strategy with no handlers registered.
func NewSite() *Site {
	return &Site{handlers: make(map[string]Handler)}
}

// Handle registers a handler for a hostname. Subdomains match through the
// "*." prefix form, the same convention the rule engine uses for domains.
func (s *Site) Handle(host string, h Handler) {
	s.handlers[strings.ToLower(host)] = h
}

func (*Site) Name() string { return "site" }

func (s *Site) CanHandle(url, site string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (s *Site) Resolve(ctx context.Context, target, site string) (*Media, error) {
	parsed, err := neturl.Parse(target)
	if err != nil {
		return nil, err
	}

	resp, err := network.Fetch(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.Status >= http.StatusBadRequest {
		return nil, errors.New("page fetch failed: " + http.StatusText(resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, err
	}

	if handler := s.handlerFor(parsed.Hostname()); handler != nil {
		return handler(ctx, target, doc)
	}

	return s.iframeFallback(ctx, parsed, doc)
}

func (s *Site) handlerFor(host string) Handler {
	host = strings.ToLower(host)
	if h, ok := s.handlers[host]; ok {
		return h
	}
	for pattern, h := range s.handlers {
		if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return h
			}
		}
	}
	return nil
}

// iframeFallback resolves the page through its first embedded player frame.
// The frame source itself may be a direct stream, otherwise it is sniffed.
func (s *Site) iframeFallback(ctx context.Context, page *neturl.URL, doc *goquery.Document) (*Media, error) {
	var frameURL string
	doc.Find("iframe[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "about:") || strings.HasPrefix(src, "javascript:") {
			return true
		}
		if resolved, err := page.Parse(src); err == nil {
			frameURL = resolved.String()
			return false
		}
		return true
	})

	if frameURL == "" {
		return nil, errors.New("no player frame in page")
	}

	if IsMediaURL(frameURL) {
		return &Media{URL: frameURL, Referer: page.String()}, nil
	}

	media, err := Sniff{}.Resolve(ctx, frameURL, "")
	if err != nil {
		return nil, err
	}
	if media.Referer == "" {
		media.Referer = frameURL
	}
	return media, nil
}
