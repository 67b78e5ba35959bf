package rewrite

import (
	"strings"
	"testing"
)

func TestRequest(t *testing.T) {
	headers := []string{
		"Host: example.com",
		"User-Agent: curl/8.0",
		"Accept: */*",
		"Connection: keep-alive",
		"Proxy-Connection: keep-alive",
		"Accept-Language: en-US",
	}

	got := string(Request("example.com", "/foo", headers))

	wantPrefix := "GET /foo HTTP/1.0\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: " + UserAgent + "\r\n" +
		"Connection: close\r\n" +
		"Proxy-Connection: close\r\n"
	if !strings.HasPrefix(got, wantPrefix) {
		t.Fatalf("Request() = %q, want prefix %q", got, wantPrefix)
	}

	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Fatalf("Request() = %q, want terminating blank line", got)
	}

	if strings.Contains(got, "curl/8.0") {
		t.Errorf("Request() kept client User-Agent, want suppressed")
	}
	if strings.Contains(got, "keep-alive") {
		t.Errorf("Request() kept client Connection/Proxy-Connection, want suppressed")
	}
	if !strings.Contains(got, "Accept: */*\r\n") {
		t.Errorf("Request() dropped passthrough header Accept")
	}
	if !strings.Contains(got, "Accept-Language: en-US\r\n") {
		t.Errorf("Request() dropped passthrough header Accept-Language")
	}
	// Duplicate client Host header is passed through unsuppressed; only
	// User-Agent/Connection/Proxy-Connection are stripped.
	if strings.Count(got, "Host: example.com") != 2 {
		t.Errorf("Request() = %q, want client Host line preserved alongside the rewritten one", got)
	}
}

func TestIsSuppressed(t *testing.T) {
	cases := map[string]bool{
		"User-Agent: curl/8.0":        true,
		"user-agent: curl":            true,
		"Connection: close":           true,
		"Proxy-Connection: close":     true,
		"Accept: text/html":           false,
		"X-Forwarded-Proxy-Connection": true, // substring match, case-insensitive
	}
	for h, want := range cases {
		if got := isSuppressed(h); got != want {
			t.Errorf("isSuppressed(%q) = %v, want %v", h, got, want)
		}
	}
}
