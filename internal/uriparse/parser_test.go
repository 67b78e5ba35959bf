package uriparse

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		uri     string
		want    Result
		wantErr bool
	}{
		{
			name: "host and path",
			uri:  "http://example.com/foo/bar.html",
			want: Result{Host: "example.com", Port: "80", Path: "/foo/bar.html"},
		},
		{
			name: "host, port, and path",
			uri:  "http://192.0.2.7:8080/api",
			want: Result{Host: "192.0.2.7", Port: "8080", Path: "/api"},
		},
		{
			name: "empty path normalizes to index",
			uri:  "http://example.com",
			want: Result{Host: "example.com", Port: "80", Path: "/index.html"},
		},
		{
			name: "bare slash path normalizes to index",
			uri:  "http://example.com/",
			want: Result{Host: "example.com", Port: "80", Path: "/index.html"},
		},
		{
			name: "port with empty path normalizes to index",
			uri:  "http://example.com:9000",
			want: Result{Host: "example.com", Port: "9000", Path: "/index.html"},
		},
		{
			name:    "missing http prefix is malformed",
			uri:     "ftp://example.com/",
			wantErr: true,
		},
		{
			name: "prefix need not be at the start",
			uri:  "GET http://example.com/x HTTP/1.0",
			want: Result{Host: "example.com", Port: "80", Path: "/x HTTP/1.0"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.uri)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error", tc.uri, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tc.uri, err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.uri, got, tc.want)
			}
		})
	}
}
