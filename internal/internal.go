// Package internal provides the request builders and multistatus parser used
// by the tinydav client.
package internal

import (
	"fmt"
	"strings"
)

// Namespace is the default XML namespace of WebDAV elements.
const Namespace = "DAV:"

// Depth indicates whether a request applies to the resource's members. It's
// defined in RFC 4918 section 10.2.
type Depth int

const (
	// DepthZero indicates that the request applies only to the resource.
	DepthZero Depth = 0
	// DepthOne indicates that the request applies to the resource and its
	// internal members only.
	DepthOne Depth = 1
	// DepthInfinity indicates that the request applies to the resource and all
	// of its members.
	DepthInfinity Depth = -1
)

// DefaultDepths is the set of Depth header values accepted unless a method
// restricts it further.
var DefaultDepths = []string{"0", "1", "infinity"}

// ParseDepth parses a Depth header.
func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(s) {
	case "0":
		return DepthZero, nil
	case "1":
		return DepthOne, nil
	case "infinity":
		return DepthInfinity, nil
	}
	return 0, &ConfigError{Op: "depth", Msg: fmt.Sprintf("invalid Depth value %q", s)}
}

// String formats the depth.
func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "0"
	case DepthOne:
		return "1"
	case DepthInfinity:
		return "infinity"
	}
	return fmt.Sprintf("Depth(%d)", int(d))
}

// CheckDepth parses s as a Depth header and makes sure it is one of allowed.
// The normalized value is returned. With no allowed values, DefaultDepths is
// used.
func CheckDepth(s string, allowed ...string) (string, error) {
	if len(allowed) == 0 {
		allowed = DefaultDepths
	}
	if d, err := ParseDepth(strings.TrimSpace(s)); err == nil {
		s = d.String()
		for _, a := range allowed {
			if s == a {
				return s, nil
			}
		}
	}
	return "", &ConfigError{
		Op:  "depth",
		Msg: fmt.Sprintf("illegal depth %q, expected one of %s", s, strings.Join(allowed, ", ")),
	}
}

// IsCollection reports whether the path denotes a collection, i.e. ends with
// a slash.
func IsCollection(p string) bool {
	return strings.HasSuffix(p, "/")
}
