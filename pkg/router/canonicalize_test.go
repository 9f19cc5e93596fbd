package router

import "testing"

func TestCanonicalizePath(t *testing.T) {
	tests := []struct {
		in      string
		path    string
		query   string
		changed bool
	}{
		{in: "/", path: "/"},
		{in: "", path: "/", changed: true},
		{in: "/blog/post", path: "/blog/post"},
		{in: "/blog/post/", path: "/blog/post", changed: true},
		{in: "/blog//post", path: "/blog/post", changed: true},
		{in: "/blog/./post", path: "/blog/post", changed: true},
		{in: "/blog/draft/../post", path: "/blog/post", changed: true},
		{in: "/blog/post?page=2", path: "/blog/post", query: "page=2"},
		{in: "///", path: "/", changed: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalizePath(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got.Path != tt.path || got.Query != tt.query || got.Changed != tt.changed {
				t.Errorf("= %+v, want {%s %s %v}", got, tt.path, tt.query, tt.changed)
			}
		})
	}
}

func TestCanonicalizePathRejections(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{in: "/a/../../etc/passwd", want: ErrPathEscapesRoot},
		{in: "/..", want: ErrPathEscapesRoot},
		{in: "/a\\b", want: ErrBackslashInPath},
		{in: "/a\x00b", want: ErrNullByteInPath},
		{in: "/a%00b", want: ErrNullByteInPath},
		{in: "/a%zzb", want: ErrInvalidPercentEscape},
		{in: "/a%2", want: ErrInvalidPercentEscape},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if _, err := CanonicalizePath(tt.in); err != tt.want {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeSegment(t *testing.T) {
	if got, err := DecodeSegment("caf%C3%A9", false); err != nil || got != "café" {
		t.Errorf("= %q, %v", got, err)
	}
	if _, err := DecodeSegment("a%2Fb", false); err != ErrEncodedSlashInSegment {
		t.Errorf("encoded slash in a plain segment must be rejected, got %v", err)
	}
	if got, err := DecodeSegment("a%2Fb", true); err != nil || got != "a/b" {
		t.Errorf("catch-all segment = %q, %v", got, err)
	}
}

func TestCanonicalizeNavPath(t *testing.T) {
	if got, err := CanonicalizeNavPath("/blog//post?x=1"); err != nil || got != "/blog/post?x=1" {
		t.Errorf("= %q, %v", got, err)
	}
	for _, in := range []string{"https://evil.test/x", "//evil.test/x", "relative/path"} {
		if _, err := CanonicalizeNavPath(in); err != ErrInvalidPath {
			t.Errorf("%s: err = %v, want ErrInvalidPath", in, err)
		}
	}
}
