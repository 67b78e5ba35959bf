// Package rewrite builds the origin-bound HTTP/1.0 request the
// forwarding engine sends once it has parsed a client's absolute-URI
// request, per spec.md's header-rewriter contract.
package rewrite

import (
	"fmt"
	"strings"
)

// UserAgent is the fixed User-Agent value the proxy presents to every
// origin, regardless of what the browser client sent.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:3.10.0) Gecko/20181101 Firefox/61.0.1"

// suppressed lists the header name substrings (matched case-insensitive)
// whose client-supplied values are always replaced by the fixed values
// this package injects.
var suppressed = []string{"user-agent", "connection", "proxy-connection"}

// Request builds the exact byte stream to send to the origin: the
// rewritten request line and Host header, the three fixed headers, any
// remaining client headers with the suppressed names stripped, and the
// terminating blank line.
func Request(host, path string, clientHeaders []string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "GET %s HTTP/1.0\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", UserAgent)
	b.WriteString("Connection: close\r\n")
	b.WriteString("Proxy-Connection: close\r\n")

	for _, h := range clientHeaders {
		if !isSuppressed(h) {
			b.WriteString(h)
			b.WriteString("\r\n")
		}
	}

	b.WriteString("\r\n")
	return []byte(b.String())
}

// isSuppressed reports whether header line h carries one of the fixed
// header names this package already injects, matched as a
// case-insensitive substring per spec.md §4.2.
func isSuppressed(h string) bool {
	lower := strings.ToLower(h)
	for _, name := range suppressed {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}
