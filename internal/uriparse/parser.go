// Package uriparse splits an absolute http URI as received from a proxy
// client into the host, port, and path the forwarding engine needs to
// reach the origin.
package uriparse

import (
	"errors"
	"strings"
)

// ErrMalformed is returned when the input does not contain the literal
// prefix "http" anywhere the parser can find it.
var ErrMalformed = errors.New("uriparse: malformed uri, missing http prefix")

// Result is the parsed form of an absolute-URI proxy request.
type Result struct {
	Host string
	Port string
	Path string
}

// Parse splits uri into host, port, and path.
//
// Accepted form: http://<host>[:<port>][<path>]. The scan for the "http"
// prefix is permissive — it need not be the first four bytes — which
// matches the source parser's use of strstr rather than a hard anchor.
// Host runs up to the first '/' or ':'; port defaults to "80"; path
// defaults to (and an empty or bare "/" normalizes to) "/index.html".
// This parser is ASCII-only and does not special-case IPv6 literals,
// userinfo, or query strings — a query string rides along inside Path.
func Parse(uri string) (Result, error) {
	idx := strings.Index(uri, "http")
	if idx < 0 {
		return Result{}, ErrMalformed
	}

	rest := uri[idx:]
	rest = strings.TrimPrefix(rest, "http")
	rest = strings.TrimPrefix(rest, "s")
	rest = strings.TrimPrefix(rest, "://")

	n := 0
	for n < len(rest) && rest[n] != '/' && rest[n] != ':' {
		n++
	}
	host := rest[:n]

	var port, path string
	if n < len(rest) && rest[n] == ':' {
		p := rest[n+1:]
		h := 0
		for h < len(p) && p[h] != '/' {
			h++
		}
		port = p[:h]
		path = p[h:]
	} else {
		port = "80"
		path = rest[n:]
	}

	if path == "" || path == "/" {
		path = "/index.html"
	}

	return Result{Host: host, Port: port, Path: path}, nil
}
