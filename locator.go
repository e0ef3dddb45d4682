package storekit

import (
	"runtime"
	"strings"
)

// ResolveLocator turns a locator into a filesystem path. Accepted forms are a
// bare path, "file:/path", "file:///path", and "file://localhost/path". Any
// other authority is rejected, and when the scheme is explicit the path must
// be absolute (RFC 8089). On Windows a leading slash before a drive letter is
// stripped, so "file:///C:/x" resolves to "C:/x".
func ResolveLocator(locator string) (string, error) {
	if len(locator) < 5 || !strings.EqualFold(locator[:5], "file:") {
		return locator, nil
	}

	rest := locator[5:]
	var path string
	switch {
	case strings.HasPrefix(rest, "//localhost/"):
		path = rest[len("//localhost"):]
	case strings.HasPrefix(rest, "///"):
		path = rest[2:]
	case !strings.HasPrefix(rest, "//"):
		path = rest
	default:
		return "", ErrUnsupportedAuthority
	}

	if !strings.HasPrefix(path, "/") {
		return "", ErrPathNotAbsolute
	}

	if runtime.GOOS == "windows" && len(path) >= 4 && path[2] == ':' && path[3] == '/' {
		path = path[1:]
	}

	return path, nil
}
