// Package custom provides the TLS-spoofed HTTP client for Lua spider scripts.
//
// registerTLSClient injects the shared fingerprinted HTTP client into the
// Lua state. When a script calls http_tls.get(), the underlying Go engine
// executes the request with the Chrome Client Hello signature, which is
// required by origins that reject standard Go HTTP clients.
//
// Lua API:
//
//	http_tls.get(url)              → returns body string
//	http_tls.get(url, headers_tbl) → returns body string with custom headers
//	http_tls.request(options_tbl)  → returns {status, body}
package custom

import (
	"context"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/vidgate/vidgate/cache"
	"github.com/vidgate/vidgate/network"
)

const httpTimeout = 30 * time.Second

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

var (
	respCache     *cache.Store[cachedResponse]
	respCacheOnce sync.Once
)

func responseCache() *cache.Store[cachedResponse] {
	respCacheOnce.Do(func() {
		respCache = cache.New[cachedResponse](cache.Options{
			Name:       "spider_http",
			Tier:       cache.TierMemory,
			DefaultTTL: 30 * time.Minute,
		})
	})
	return respCache
}

// registerTLSClient injects the "http_tls" global module into the Lua state.
// This is called during spider loading in loader.go.
func registerTLSClient(L *lua.LState) {
	mod := L.NewTable()

	// http_tls.get(url [, headers_table]) → body_string
	L.SetField(mod, "get", L.NewFunction(httpTLSGet))

	// http_tls.request({method, url, headers, body, cache}) → {status, body}
	L.SetField(mod, "request", L.NewFunction(httpTLSRequest))

	L.SetGlobal("http_tls", mod)
}

// httpTLSGet implements http_tls.get(url [, headers]) → body string
func httpTLSGet(L *lua.LState) int {
	url := L.CheckString(1)
	headersTable := L.OptTable(2, nil)

	headers := make(map[string]string)
	if headersTable != nil {
		headersTable.ForEach(func(k, v lua.LValue) {
			headers[k.String()] = v.String()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	resp, err := network.Fetch(ctx, "GET", url, headers, "")
	if err != nil {
		L.RaiseError("http_tls.get failed: %s", err.Error())
		return 0
	}

	L.Push(lua.LString(resp.Body))
	return 1
}

// httpTLSRequest implements http_tls.request(options) → {status, body}
func httpTLSRequest(L *lua.LState) int {
	opts := L.CheckTable(1)

	method := getStringField(opts, "method", "GET")
	url := getStringField(opts, "url", "")
	reqBody := getStringField(opts, "body", "")

	if url == "" {
		L.RaiseError("http_tls.request: url is required")
		return 0
	}

	shouldCache := false
	if cacheVal := opts.RawGetString("cache"); cacheVal != lua.LNil {
		shouldCache = lua.LVAsBool(cacheVal)
	}

	headers := make(map[string]string)
	headersTbl := opts.RawGetString("headers")
	if tbl, ok := headersTbl.(*lua.LTable); ok {
		tbl.ForEach(func(k, v lua.LValue) {
			headers[k.String()] = v.String()
		})
	}

	cacheKey := method + " " + url + " " + reqBody
	if shouldCache {
		if entry, ok := responseCache().Get(cacheKey); ok {
			result := L.NewTable()
			L.SetField(result, "status", lua.LNumber(entry.Status))
			L.SetField(result, "body", lua.LString(entry.Body))
			L.Push(result)
			return 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	resp, err := network.Fetch(ctx, method, url, headers, reqBody)
	if err != nil {
		L.RaiseError("http_tls.request failed: %s", err.Error())
		return 0
	}

	if shouldCache && resp.Status == 200 {
		responseCache().Put(cacheKey, cachedResponse{
			Status: resp.Status,
			Body:   string(resp.Body),
		})
	}

	result := L.NewTable()
	L.SetField(result, "status", lua.LNumber(resp.Status))
	L.SetField(result, "body", lua.LString(resp.Body))
	L.Push(result)
	return 1
}

// getStringField is a helper to get a string field from a Lua table with a default.
func getStringField(tbl *lua.LTable, key string, def string) string {
	val := tbl.RawGetString(key)
	if val == lua.LNil {
		return def
	}
	return val.String()
}
