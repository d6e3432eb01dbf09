package auth

import (
	"path"
	"strings"
)

// IsPublicPath reports whether requestPath bypasses authentication. Paths
// with encoded separators never match; the rest are cleaned and matched per
// segment, so /api/User/login matches /api/User/login/ but not /api/User/loginx.
func IsPublicPath(requestPath string, publicPaths []string) bool {
	lower := strings.ToLower(requestPath)
	if strings.Contains(lower, "%2f") || strings.Contains(lower, "%2e") {
		return false
	}

	clean := rooted(requestPath)
	for _, p := range publicPaths {
		public := rooted(p)
		if public == "/" || clean == public || strings.HasPrefix(clean, public+"/") {
			return true
		}
	}
	return false
}

func rooted(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}
