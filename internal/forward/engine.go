// Package forward implements the per-connection forwarding state
// machine described in spec.md §4.5: parse the client's request,
// consult the cache, and on a miss contact the origin named by the
// request URI, streaming its response back to the client while
// capturing it for possible admission.
package forward

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gocacheproxy/proxy/internal/cache"
	"github.com/gocacheproxy/proxy/internal/logging"
	"github.com/gocacheproxy/proxy/internal/metrics"
	"github.com/gocacheproxy/proxy/internal/rewrite"
	"github.com/gocacheproxy/proxy/internal/uriparse"
)

// streamChunkSize bounds each read from the origin socket while
// streaming a response to the client and capturing it for the cache.
const streamChunkSize = 8 * 1024

// Engine runs the READ_REQUEST → CACHE_LOOKUP → ... → DONE state
// machine for one accepted connection. An Engine is safe to share
// across goroutines — all its fields are immutable after construction,
// and the only shared mutable state it touches is the Coordinator.
type Engine struct {
	Coordinator *cache.Coordinator
	Logger      *logging.Logger
	Metrics     *metrics.Metrics

	// DialTimeout bounds connecting to the origin. Zero disables the
	// bound. spec.md §5 mandates no timeout at all; this is the
	// implementation-added deadline it explicitly permits.
	DialTimeout time.Duration
}

// Handle runs the forwarding state machine for conn until the
// connection is done, then returns. It never panics on client or
// origin I/O errors — those terminate the worker silently, per
// spec.md §4.5's failure semantics.
func (e *Engine) Handle(ctx context.Context, conn net.Conn) {
	ctx, span := e.Logger.StartSpan(ctx, "forward.connection")
	defer span.End()

	start := time.Now()
	if e.Metrics != nil {
		defer func() { e.Metrics.ObserveConnectionDuration(time.Since(start)) }()
	}

	reader := bufio.NewReader(conn)

	requestLine, err := reader.ReadString('\n')
	if err != nil {
		return // READ_REQUEST: client closed before sending anything
	}

	method, uri, ok := parseRequestLine(requestLine)
	if !ok {
		_, _ = conn.Write(badRequest(strings.TrimSpace(requestLine)))
		return
	}

	headers, herr := readHeaders(reader)
	if herr != nil {
		return
	}

	// Scope a logger to this request so every subsequent log line
	// carries method/uri without repeating them at each call site.
	reqLogger := e.Logger.WithFields(
		slog.String("method", method),
		slog.String("uri", uri),
	)

	if !strings.EqualFold(method, "GET") {
		_, _ = conn.Write(notImplemented(method))
		reqLogger.Info(ctx, "rejected non-GET method")
		return
	}

	// CACHE_LOOKUP
	hit, werr := e.Coordinator.ReadTry(uri, conn)
	if werr != nil {
		return // client write failed mid-hit; nothing more to do
	}
	if hit {
		return
	}

	// PARSE_URI
	parsed, perr := uriparse.Parse(uri)
	if perr != nil {
		_, _ = conn.Write(badRequest(uri))
		reqLogger.Info(ctx, "malformed uri")
		return
	}

	// CONNECT_ORIGIN
	origin, cerr := e.dialOrigin(parsed.Host, parsed.Port)
	if cerr != nil {
		reqLogger.Error(ctx, "origin unreachable", cerr,
			slog.String("host", parsed.Host),
			slog.String("port", parsed.Port),
		)
		if e.Metrics != nil {
			e.Metrics.IncOriginConnectFailure()
		}
		return
	}
	defer origin.Close()

	// FORWARD_REQUEST
	req := rewrite.Request(parsed.Host, parsed.Path, headers)
	if _, err := origin.Write(req); err != nil {
		return
	}

	// STREAM_RESPONSE + MAYBE_ADMIT
	e.streamAndMaybeAdmit(ctx, conn, origin, uri)
}

// dialOrigin opens a TCP connection to host:port, honoring
// e.DialTimeout when it is set.
func (e *Engine) dialOrigin(host, port string) (net.Conn, error) {
	addr := net.JoinHostPort(host, port)
	if e.DialTimeout > 0 {
		return net.DialTimeout("tcp", addr, e.DialTimeout)
	}
	return net.Dial("tcp", addr)
}

// streamAndMaybeAdmit reads the origin's response in bounded chunks,
// writing every chunk to the client unconditionally while mirroring it
// into a capture buffer capped at cache.MaxObjectSize. On clean EOF with
// no overflow, the capture is handed to the coordinator for admission;
// an origin read failure mid-stream discards the capture but leaves
// whatever was already forwarded to the client standing, per
// spec.md §4.5/§7.
func (e *Engine) streamAndMaybeAdmit(ctx context.Context, client io.Writer, origin net.Conn, uri string) {
	capture := make([]byte, 0, cache.MaxObjectSize)
	overflow := false
	buf := make([]byte, streamChunkSize)

	for {
		n, rerr := origin.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, werr := client.Write(chunk); werr != nil {
				return // peer closed during write; suppress and exit
			}
			if !overflow {
				if len(capture)+n <= cache.MaxObjectSize {
					capture = append(capture, chunk...)
				} else {
					overflow = true
				}
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				overflow = true // mid-stream failure: discard partial capture
				e.Logger.Warn(ctx, "origin read failed mid-stream",
					slog.String("uri", uri), slog.String("error", rerr.Error()))
			}
			break
		}
	}

	if overflow {
		return
	}

	e.Coordinator.WriteAdmit(uri, capture)
}

// parseRequestLine splits "METHOD URI VERSION\r\n" into method and uri.
// Returns ok=false if the line doesn't have at least two fields.
func parseRequestLine(line string) (method, uri string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// readHeaders reads CRLF-terminated header lines until the blank-line
// terminator, returning each header line with its line terminator
// stripped.
func readHeaders(r *bufio.Reader) ([]string, error) {
	var headers []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			return headers, nil
		}
		headers = append(headers, trimmed)
	}
}
