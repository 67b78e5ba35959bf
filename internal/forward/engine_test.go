package forward

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gocacheproxy/proxy/internal/cache"
	"github.com/gocacheproxy/proxy/internal/logging"
)

// fakeOrigin starts a one-shot TCP listener that replies to exactly one
// connection with body, then closes. It returns the address to dial.
func fakeOrigin(t *testing.T, body string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fakeOrigin: listen: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer ln.Close()

		// Drain the request line and headers.
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || strings.TrimRight(line, "\r\n") == "" {
				break
			}
		}
		fmt.Fprintf(conn, "HTTP/1.0 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	}()
	return ln.Addr().String()
}

func newTestEngine() *Engine {
	return &Engine{
		Coordinator: cache.NewCoordinator(),
		Logger:      logging.NewLogger("test", slog.LevelDebug),
		DialTimeout: 2 * time.Second,
	}
}

// clientPair returns connected client/server net.Conn ends, with the
// server end handed to Engine.Handle.
func clientPair(t *testing.T) (client net.Conn, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("clientPair: listen: %v", err)
	}
	defer ln.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		server, _ = ln.Accept()
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("clientPair: dial: %v", err)
	}
	wg.Wait()
	return client, server
}

func TestHandleMissForwardsAndAdmits(t *testing.T) {
	origin := fakeOrigin(t, "hello from origin")
	e := newTestEngine()

	client, server := clientPair(t)
	defer client.Close()

	uri := "http://" + origin + "/page"
	fmt.Fprintf(client, "GET %s HTTP/1.0\r\nHost: ignored\r\n\r\n", uri)

	done := make(chan struct{})
	go func() {
		e.Handle(t.Context(), server)
		close(done)
	}()

	resp := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(resp)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	<-done

	got := string(resp[:n])
	if !strings.Contains(got, "200 OK") || !strings.Contains(got, "hello from origin") {
		t.Fatalf("unexpected response: %q", got)
	}

	hit, _ := e.Coordinator.ReadTry(uri, &discard{})
	if !hit {
		t.Error("expected URI to be admitted to cache after clean miss")
	}
}

func TestHandleHitServesFromCacheWithoutOrigin(t *testing.T) {
	e := newTestEngine()
	uri := "http://example.invalid/cached"
	e.Coordinator.WriteAdmit(uri, []byte("HTTP/1.0 200 OK\r\n\r\ncached body"))

	client, server := clientPair(t)
	defer client.Close()

	fmt.Fprintf(client, "GET %s HTTP/1.0\r\n\r\n", uri)

	done := make(chan struct{})
	go func() {
		e.Handle(t.Context(), server)
		close(done)
	}()

	resp := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(resp)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	<-done

	if !strings.Contains(string(resp[:n]), "cached body") {
		t.Fatalf("expected cached body to be served, got %q", resp[:n])
	}
}

func TestHandleNonGETReturns501(t *testing.T) {
	e := newTestEngine()
	client, server := clientPair(t)
	defer client.Close()

	fmt.Fprintf(client, "POST http://example.invalid/ HTTP/1.0\r\n\r\n")

	done := make(chan struct{})
	go func() {
		e.Handle(t.Context(), server)
		close(done)
	}()

	resp := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(resp)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	<-done

	if !strings.Contains(string(resp[:n]), "501") {
		t.Fatalf("expected 501 response, got %q", resp[:n])
	}
}

func TestHandleMalformedURIReturns400(t *testing.T) {
	e := newTestEngine()
	client, server := clientPair(t)
	defer client.Close()

	fmt.Fprintf(client, "GET not-a-uri HTTP/1.0\r\n\r\n")

	done := make(chan struct{})
	go func() {
		e.Handle(t.Context(), server)
		close(done)
	}()

	resp := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(resp)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	<-done

	if !strings.Contains(string(resp[:n]), "400") {
		t.Fatalf("expected 400 response, got %q", resp[:n])
	}
}

// discard implements io.Writer, discarding everything written to it.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
