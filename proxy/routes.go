package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vidgate/vidgate/history"
	"github.com/vidgate/vidgate/log"
	"github.com/vidgate/vidgate/network"
	"github.com/vidgate/vidgate/resolver"
	"github.com/vidgate/vidgate/rule"
)

const originTimeout = 60 * time.Second

// hopByHop headers never forward to the origin or back to the player.
var hopByHop = []string{
	"Connection", "Keep-Alive", "Proxy-Connection", "Transfer-Encoding",
	"Upgrade", "Te", "Trailer", "Content-Length", "Host",
}

func (c *conn) route(req *request) {
	switch {
	case req.Path == "/proxy":
		c.handleProxy(req)
	case req.Path == "/player":
		c.handlePlayer(req)
	case req.Path == "/stats":
		c.handleStats()
	case strings.HasPrefix(req.Path, "/"):
		// Resource paths resolve relative to the Host header. No static
		// resources are registered, every lookup misses.
		c.respondError(http.StatusNotFound, "resource not found")
	default:
		c.respondError(http.StatusBadRequest, "bad request target")
	}
}

// handleProxy is the raw pass-through fetch: the caller's headers forward to
// the origin and the origin's response comes back as-is.
func (c *conn) handleProxy(req *request) {
	target := req.Query.Get("url")
	if target == "" {
		c.respondError(http.StatusBadRequest, "url parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), originTimeout)
	defer cancel()

	resp, err := network.Fetch(ctx, req.Method, target, forwardable(req.Headers), string(req.Body))
	if err != nil {
		log.Debugf("proxy: fetch %s failed: %v", target, err)
		c.respondError(http.StatusBadGateway, "origin unreachable")
		return
	}

	headers := make(http.Header)
	for name, values := range resp.Header {
		if isHopByHop(name) {
			continue
		}
		for _, value := range values {
			headers.Add(name, value)
		}
	}

	c.respond(resp.Status, headers, resp.Body)
}

// handlePlayer resolves the URL through the rules and the strategy chain,
// then streams the resolved content back.
func (c *conn) handlePlayer(req *request) {
	target := req.Query.Get("url")
	if target == "" {
		c.respondError(http.StatusBadRequest, "url parameter is required")
		return
	}

	useCache := req.Query.Get("cache") == "1"
	forwardRange := req.Query.Get("range") == "1"
	userAgent := req.Query.Get("ua")

	target, extraHeaders := c.applyRules(req, target)

	media, ok := c.cachedMedia(useCache, target)
	if !ok {
		// A past resolution of the same source seeds the strategy choice.
		var preferred string
		if record, found := history.Find(target).Get(); found {
			preferred = record.Strategy
		}

		ctx, cancel := context.WithTimeout(context.Background(), originTimeout)
		result := c.server.opts.Chain.Resolve(ctx, target, "", preferred)
		cancel()

		if !result.OK() {
			log.Debugf("proxy: resolution of %s failed: %v", target, result.Err)
			c.respondError(http.StatusBadGateway, "resolution failed")
			return
		}

		media = result.Media
		if useCache && c.server.opts.Streams != nil {
			c.server.opts.Streams.Put(target, *media)
		}
		if err := history.Save(target, result); err != nil {
			log.Debugf("proxy: history save failed: %v", err)
		}
	}

	originHeaders := make(map[string]string, len(media.Headers)+len(extraHeaders)+3)
	for k, v := range media.Headers {
		originHeaders[k] = v
	}
	for k, v := range extraHeaders {
		originHeaders[k] = v
	}
	if media.Referer != "" {
		originHeaders["Referer"] = media.Referer
	}
	if userAgent == "" {
		userAgent = media.UserAgent
	}
	if userAgent != "" {
		originHeaders["User-Agent"] = userAgent
	}
	if forwardRange {
		if r := req.Headers.Get("Range"); r != "" {
			originHeaders["Range"] = r
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), originTimeout)
	defer cancel()

	resp, err := network.Fetch(ctx, http.MethodGet, media.URL, originHeaders, "")
	if err != nil {
		log.Debugf("proxy: stream fetch %s failed: %v", media.URL, err)
		c.respondError(http.StatusBadGateway, "stream unreachable")
		return
	}

	headers := make(http.Header)
	for _, name := range []string{"Content-Type", "Content-Range", "Accept-Ranges"} {
		if value := resp.Header.Get(name); value != "" {
			headers.Set(name, value)
		}
	}

	c.respond(resp.Status, headers, resp.Body)
}

func (c *conn) handleStats() {
	payload := map[string]any{
		"server": c.server.Stats(),
	}
	if streams := c.server.opts.Streams; streams != nil {
		payload["streams"] = streams.Stats()
	}
	if limiter := c.server.opts.Limiter; limiter != nil {
		payload["connection_bytes"] = limiter.ConnectionBytes(c.id)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.respondError(http.StatusInternalServerError, "stats unavailable")
		return
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	c.respond(http.StatusOK, headers, body)
}

// applyRules rewrites the target through the first matching rule.
func (c *conn) applyRules(req *request, target string) (string, map[string]string) {
	engine := c.server.opts.Rules
	if engine == nil {
		return target, nil
	}

	query := make(map[string]string, len(req.Query))
	for name := range req.Query {
		query[name] = req.Query.Get(name)
	}
	headers := make(map[string]string, len(req.Headers))
	for name := range req.Headers {
		headers[name] = req.Headers.Get(name)
	}

	rctx := &rule.Context{
		Headers:   headers,
		Query:     query,
		UserAgent: req.Headers.Get("User-Agent"),
		Referer:   req.Headers.Get("Referer"),
		Now:       time.Now(),
	}

	matched, ok := engine.Match(target, rctx).Get()
	if !ok {
		return target, nil
	}

	applied := engine.Apply(matched, target, rctx)
	log.Debugf("proxy: rule %s rewrote %s", matched.ID, target)

	if applied.ForwardHost != "" {
		applied.Headers["X-Proxy-Forward"] = applied.ForwardHost
	}
	return applied.URL, applied.Headers
}

func (c *conn) cachedMedia(useCache bool, target string) (*resolver.Media, bool) {
	if !useCache || c.server.opts.Streams == nil {
		return nil, false
	}
	media, ok := c.server.opts.Streams.Get(target)
	if !ok {
		return nil, false
	}
	return &media, true
}

func forwardable(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name := range headers {
		if isHopByHop(name) {
			continue
		}
		out[name] = headers.Get(name)
	}
	return out
}

func isHopByHop(name string) bool {
	for _, h := range hopByHop {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
