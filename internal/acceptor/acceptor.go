// Package acceptor implements spec.md §4.6: bind/listen on the
// configured TCP port and hand each accepted connection to a fresh
// forwarding-engine worker. Workers are independent — the only shared
// mutable state among them is the cache, reached through the
// forwarding engine's Coordinator.
package acceptor

import (
	"context"
	"log/slog"
	"net"

	"github.com/gocacheproxy/proxy/internal/forward"
	"github.com/gocacheproxy/proxy/internal/logging"
	"github.com/gocacheproxy/proxy/internal/metrics"
	"github.com/gocacheproxy/proxy/internal/middleware"
)

// Acceptor owns the listening socket and spawns one goroutine per
// accepted connection.
type Acceptor struct {
	Engine    *forward.Engine
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	Admission *middleware.RateLimiter // optional; nil disables admission control

	listener net.Listener
}

// Listen binds addr (":<port>") and prepares the acceptor to serve. It
// does not yet accept connections — call Serve for that.
func (a *Acceptor) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	a.listener = ln
	return nil
}

// Serve accepts connections until ctx is done or the listener is
// closed, spawning a worker goroutine per connection. It returns the
// error that stopped the accept loop, or nil if ctx was cancelled.
func (a *Acceptor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.listener.Close()
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if a.Admission != nil && !a.Admission.Allow(clientIP(conn)) {
			conn.Close()
			continue
		}

		if a.Metrics != nil {
			a.Metrics.IncrementConnections()
		}

		a.Logger.Info(ctx, "accepted connection",
			slog.String("remote_addr", conn.RemoteAddr().String()),
		)

		go func(c net.Conn) {
			defer c.Close()
			if a.Metrics != nil {
				defer a.Metrics.DecrementConnections()
			}
			a.Engine.Handle(ctx, c)
		}(conn)
	}
}

// Close stops accepting new connections.
func (a *Acceptor) Close() error {
	if a.listener == nil {
		return nil
	}
	return a.listener.Close()
}

// clientIP extracts the remote IP (without port) from an accepted
// connection for per-client admission bucketing.
func clientIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
