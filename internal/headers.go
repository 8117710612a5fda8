package internal

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// MaxTimeout is the largest "Second-" lock timeout value.
//
// https://tools.ietf.org/html/rfc4918#section-10.7
const MaxTimeout = 4294967295

// AbsPath makes sure p starts with a slash.
func AbsPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Destination builds the absolute URI for a Destination header from the
// scheme and host of base.
//
// https://tools.ietf.org/html/rfc4918#section-10.3
func Destination(base *url.URL, p string) string {
	u := url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   AbsPath(p),
	}
	return u.String()
}

// CopyMoveHeaders computes the headers shared by COPY and MOVE. Depth is
// only sent for collections, and must be "0" or "infinity". A nil overwrite
// omits the Overwrite header.
//
// https://tools.ietf.org/html/rfc4918#section-9.8.3
func CopyMoveHeaders(base *url.URL, source, destination, depth string, overwrite *bool) (http.Header, error) {
	depth, err := CheckDepth(depth, "0", "infinity")
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set("Destination", Destination(base, destination))
	if IsCollection(source) {
		h.Set("Depth", depth)
	}
	if overwrite != nil {
		if *overwrite {
			h.Set("Overwrite", "T")
		} else {
			h.Set("Overwrite", "F")
		}
	}
	return h, nil
}

// FormatTimeout formats a lock timeout: either a number of seconds or
// "infinite" in any case.
//
// https://tools.ietf.org/html/rfc4918#section-10.7
func FormatTimeout(timeout string) (string, error) {
	timeout = strings.TrimSpace(timeout)
	if strings.EqualFold(timeout, "infinite") {
		return "Infinite", nil
	}
	n, err := strconv.ParseUint(timeout, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return "", configErrorf("lock", "timeout %v too big", timeout)
		}
		return "", configErrorf("lock", "timeout must be a number of seconds or \"infinite\", got %q", timeout)
	}
	if n > MaxTimeout {
		return "", configErrorf("lock", "timeout %v too big", n)
	}
	return "Second-" + strconv.FormatUint(n, 10), nil
}

// LockHeaders computes the Timeout and Depth headers of a LOCK request. Empty
// values are omitted.
func LockHeaders(timeout, depth string) (http.Header, error) {
	h := make(http.Header)
	if timeout != "" {
		v, err := FormatTimeout(timeout)
		if err != nil {
			return nil, err
		}
		h.Set("Timeout", v)
	}
	// https://tools.ietf.org/html/rfc4918#section-9.10.3
	if depth != "" {
		v, err := CheckDepth(depth, "0", "infinity")
		if err != nil {
			return nil, err
		}
		h.Set("Depth", v)
	}
	return h, nil
}

// ParseCommaSeparatedSet parses header values such as DAV or Allow.
func ParseCommaSeparatedSet(values []string, upper bool) map[string]bool {
	m := make(map[string]bool)
	for _, v := range values {
		fields := strings.FieldsFunc(v, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		for _, f := range fields {
			if upper {
				f = strings.ToUpper(f)
			} else {
				f = strings.ToLower(f)
			}
			m[f] = true
		}
	}
	return m
}

// QuoteETag quotes an entity tag for If-Match and If-None-Match unless it's
// already quoted or weak.
//
// https://tools.ietf.org/html/rfc7232#section-2.3
func QuoteETag(etag string) string {
	if etag == "*" || strings.HasPrefix(etag, `"`) || strings.HasPrefix(etag, `W/"`) {
		return etag
	}
	return strconv.Quote(etag)
}
