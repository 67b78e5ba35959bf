package forward

import "fmt"

// synthesizedError builds one of the two client-visible canonical error
// responses from spec.md §6: a status line, Content-type/Content-length
// headers, and an HTML body naming the failing cause. These are the
// only errors ever written back to a client; everything else is
// handled by closing the connection, with a log line for an unreachable
// origin or an origin read failure mid-stream.
func synthesizedError(code int, shortMsg, longMsg, cause string) []byte {
	body := fmt.Sprintf(
		"<html><title>proxy Error</title><body bgcolor=\"ffffff\">\r\n"+
			"%d: %s\r\n"+
			"<p>%s: %s\r\n"+
			"<hr><em>The Proxy server</em>\r\n",
		code, shortMsg, longMsg, cause,
	)

	head := fmt.Sprintf(
		"HTTP/1.0 %d %s\r\n"+
			"Content-type: text/html\r\n"+
			"Content-length: %d\r\n\r\n",
		code, shortMsg, len(body),
	)

	return append([]byte(head), body...)
}

// badRequest reports a malformed request line or an unparseable URI.
func badRequest(cause string) []byte {
	return synthesizedError(400, "Bad request", "request could not be understood by the proxy", cause)
}

// notImplemented reports a request method other than GET.
func notImplemented(cause string) []byte {
	return synthesizedError(501, "Not Implemented", "Proxy server does not implement this method", cause)
}
