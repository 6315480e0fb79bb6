package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vidgate/vidgate/log"
)

const (
	readTimeout  = 30 * time.Second
	maxBodyBytes = 8 << 20
)

// request is one parsed inbound HTTP/1.1 request.
type request struct {
	Method  string
	Path    string
	Query   url.Values
	Proto   string
	Headers http.Header
	Body    []byte
}

type conn struct {
	id     uint64
	sock   net.Conn
	server *Server
}

func newConn(id uint64, sock net.Conn, server *Server) *conn {
	return &conn{id: id, sock: sock, server: server}
}

// handle serves exactly one request and closes. A peer that is not
// allow-listed or sends an unparseable request gets no response at all.
func (c *conn) handle() {
	if guard := c.server.opts.Guard; guard != nil && !guard.IsAllowed(c.sock.RemoteAddr().String()) {
		log.Debugf("proxy: denied peer %s", c.sock.RemoteAddr())
		return
	}

	_ = c.sock.SetReadDeadline(time.Now().Add(readTimeout))

	req, err := parseRequest(bufio.NewReader(c.sock))
	if err != nil {
		log.Debugf("proxy: dropped malformed request from %s: %v", c.sock.RemoteAddr(), err)
		return
	}

	c.route(req)
}

// parseRequest reads one request line, headers and a Content-Length sized
// body off the socket.
func parseRequest(r *bufio.Reader) (*request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	method, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, errors.New("missing path")
	}
	target, proto, ok := strings.Cut(rest, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, errors.New("missing version")
	}

	headers := make(http.Header)
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.New("malformed header")
		}
		headers.Add(textproto.CanonicalMIMEHeaderKey(name), strings.TrimSpace(value))
	}

	req := &request{
		Method:  strings.ToUpper(method),
		Proto:   proto,
		Headers: headers,
	}

	path, rawQuery, _ := strings.Cut(target, "?")
	req.Path = path
	req.Query, _ = url.ParseQuery(rawQuery)

	if raw := headers.Get("Content-Length"); raw != "" {
		length, err := strconv.Atoi(raw)
		if err != nil || length < 0 || length > maxBodyBytes {
			return nil, errors.New("bad content length")
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
		req.Body = body
	}

	return req, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// respond writes one complete response and never keeps the connection
// alive. Content-Length is computed from the body unless already set.
func (c *conn) respond(status int, headers http.Header, body []byte) {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))

	if headers == nil {
		headers = make(http.Header)
	}
	if headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/octet-stream")
	}
	if headers.Get("Content-Length") == "" {
		headers.Set("Content-Length", strconv.Itoa(len(body)))
	}
	headers.Set("Connection", "close")

	for name, values := range headers {
		for _, value := range values {
			fmt.Fprintf(&b, "%s: %s\r\n", name, value)
		}
	}
	b.WriteString("\r\n")

	if _, err := c.sock.Write([]byte(b.String())); err != nil {
		return
	}

	c.writeLimited(body)
}

func (c *conn) respondError(status int, message string) {
	headers := make(http.Header)
	headers.Set("Content-Type", "text/plain; charset=utf-8")
	c.respond(status, headers, []byte(message+"\n"))
}

// writeLimited streams the body in chunks, pacing each chunk through the
// shared bandwidth budget.
func (c *conn) writeLimited(body []byte) {
	limiter := c.server.opts.Limiter
	if limiter == nil {
		_, _ = c.sock.Write(body)
		return
	}

	const chunkSize = 32 << 10
	for len(body) > 0 {
		chunk := body
		if len(chunk) > chunkSize {
			chunk = chunk[:chunkSize]
		}

		size := int64(len(chunk))
		for !limiter.CanTransfer(size) {
			time.Sleep(limiter.CalculateDelay(size))
		}

		if _, err := c.sock.Write(chunk); err != nil {
			return
		}
		limiter.RecordTransfer(c.id, size)
		body = body[len(chunk):]
	}
}
