package vfs

import (
	"mime"
	"strings"
)

// junkNames are artifacts desktop environments drop into shared folders;
// they never become archives.
var junkNames = map[string]bool{
	".ds_store":   true,
	"thumbs.db":   true,
	"desktop.ini": true,
	"icon\r":      true,
}

// isJunkName reports whether name is a platform artifact rather than a real
// upload.
func isJunkName(name string) bool {
	lower := strings.ToLower(name)
	if junkNames[lower] {
		return true
	}
	// AppleDouble resource forks and Office lock files.
	return strings.HasPrefix(name, "._") || strings.HasPrefix(name, "~$")
}

// contentTypeFor guesses a MIME type from a bare extension, defaulting to
// an opaque byte stream.
func contentTypeFor(ext string) string {
	if ext == "" {
		return "application/octet-stream"
	}
	t := mime.TypeByExtension("." + ext)
	if t == "" {
		return "application/octet-stream"
	}
	// TypeByExtension may append parameters ("text/plain; charset=utf-8").
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
