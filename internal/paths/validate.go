package paths

import (
	"regexp"
	"strings"
)

const segment = `(?:[A-Za-z0-9\-._~!$&'()*+,;=:@]|%[0-9A-Fa-f]{2})+`

var (
	absolutePathPattern = regexp.MustCompile(`^(?:/|(?:/` + segment + `)+)$`)
	destinationPattern  = regexp.MustCompile(`^(?:/|(?:/` + segment + `)+)(?:\?[^\s#]*)?(?:#\S*)?$`)
)

// ValidAbsolutePath reports whether p is an absolute URL path without query or fragment.
func ValidAbsolutePath(p string) bool {
	return absolutePathPattern.MatchString(p)
}

// ValidRedirectDestination accepts internal absolute paths with an optional query and fragment.
func ValidRedirectDestination(p string) bool {
	return destinationPattern.MatchString(p)
}

// IsBelow reports whether p is basePath itself, nested under it, or a dotted
// variant of it such as a locale suffix (/foo.es-419).
func IsBelow(p, basePath string) bool {
	if basePath == "/" {
		return strings.HasPrefix(p, "/")
	}
	return p == basePath || strings.HasPrefix(p, basePath+"/") || strings.HasPrefix(p, basePath+".")
}
