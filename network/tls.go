// Chrome TLS fingerprint client.
//
// Fetch performs HTTP requests with TLS fingerprint emulation via
// refraction-networking/utls, mimicking Chrome's Client Hello signature.
// This is required for origin sites behind anti-bot challenges (Cloudflare,
// DDoS-Guard) that reject standard Go HTTP clients.
//
// Protocol Negotiation (ALPN):
// The implementation performs automatic protocol detection. It first attempts
// an HTTP/2 connection (preferred by modern CDNs). If the handshake fails or
// the server only supports HTTP/1.1, it transparently falls back to a
// standard H1 transport with forced protocol advertisement.
package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/vidgate/vidgate/constant"
	"golang.org/x/net/http2"
)

const fetchTimeout = 30 * time.Second

// Response carries the outcome of a fingerprinted fetch.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// h2Transport is a shared HTTP/2 transport for servers that negotiate h2.
var (
	h2Transport     *http2.Transport
	h2TransportOnce sync.Once
)

func getH2Transport() *http2.Transport {
	h2TransportOnce.Do(func() {
		h2Transport = &http2.Transport{
			// Use custom DialTLSContext to provide utls connections
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialTLS(ctx, network, addr)
			},
		}
	})
	return h2Transport
}

// h1Transport is a shared HTTP/1.1 transport for servers that negotiate http/1.1.
var h1Transport = &http.Transport{
	DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialTLSH1(ctx, network, addr)
	},
}

// Fetch performs an HTTP request with Chrome TLS fingerprint spoofing.
// It automatically handles both H2 and HTTP/1.1 by routing to the
// appropriate transport, falling back from h2 to h1 on handshake failure.
func Fetch(ctx context.Context, method, rawURL string, headers map[string]string, body string) (*Response, error) {
	return fetch(ctx, method, rawURL, headers, body, nil)
}

// FetchNoRedirect behaves like Fetch but returns redirect responses as-is
// instead of following them, leaving the Location header to the caller.
func FetchNoRedirect(ctx context.Context, method, rawURL string, headers map[string]string, body string) (*Response, error) {
	return fetch(ctx, method, rawURL, headers, body, noRedirect)
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func fetch(ctx context.Context, method, rawURL string, headers map[string]string, body string, checkRedirect func(*http.Request, []*http.Request) error) (*Response, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Set default headers to look like a real browser
	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	// Apply custom headers (overrides defaults)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// Plain http targets bypass the fingerprinted transports entirely.
	if strings.HasPrefix(rawURL, "http://") {
		plainClient := &http.Client{
			Timeout:       Client.Timeout,
			Transport:     Client.Transport,
			CheckRedirect: checkRedirect,
		}
		resp, err := plainClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		return readResponse(resp)
	}

	client := &http.Client{
		Timeout:       fetchTimeout,
		Transport:     getH2Transport(),
		CheckRedirect: checkRedirect,
	}

	resp, err := client.Do(req)
	if err != nil {
		// If H2 fails, fallback to H1 transport
		if body != "" {
			reqBody = strings.NewReader(body) // reset reader
		}
		req2, _ := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
		req2.Header = req.Header

		h1Client := &http.Client{
			Timeout:       fetchTimeout,
			Transport:     h1Transport,
			CheckRedirect: checkRedirect,
		}
		resp, err = h1Client.Do(req2)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
	}

	return readResponse(resp)
}

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// dialTLS creates a TLS connection mimicking Chrome 120's fingerprint.
// Advertises both h2 and http/1.1 (natural Chrome behavior).
func dialTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: fetchTimeout}
	conn, err := dialer.DialContext(ctx, network, resolveAddr(addr))
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
	}, utls.HelloChrome_120)

	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

// dialTLSH1 creates a TLS connection forcing HTTP/1.1 only (for fallback).
func dialTLSH1(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: fetchTimeout}
	conn, err := dialer.DialContext(ctx, network, resolveAddr(addr))
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
		MinVersion:         tls.VersionTLS12,
		NextProtos:         []string{"http/1.1"},
	}, utls.HelloChrome_120)

	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
