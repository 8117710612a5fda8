package tinydav

import (
	"fmt"

	"github.com/em-/tinydav/internal"
)

// ConfigError reports invalid caller input: an illegal depth, mutually
// exclusive options, an illegal lock scope or timeout, and so on. It is
// always returned before any request is sent.
type ConfigError = internal.ConfigError

// ParseError is stored in Response.ParseError when a multi-status body isn't
// well-formed XML.
type ParseError = internal.ParseError

// PropNotFoundError is returned by Entry.Lookup for a missing property.
type PropNotFoundError = internal.PropNotFoundError

// HTTPError is returned by Response.Err for 4xx and 5xx replies.
type HTTPError = internal.HTTPError

// IsNotFound reports whether err is or wraps a *PropNotFoundError.
func IsNotFound(err error) bool {
	return internal.IsNotFound(err)
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	return internal.IsConfigError(err)
}

// RequestError is returned when a request couldn't be sent or its reply
// couldn't be read. Err holds the transport error.
type RequestError struct {
	Method string
	URL    string
	Err    error
}

func (err *RequestError) Error() string {
	return fmt.Sprintf("tinydav: %v %v failed: %v", err.Method, err.URL, err.Err)
}

func (err *RequestError) Unwrap() error {
	return err.Err
}

// XMLFragment is caller-supplied markup passed through a request body
// verbatim, such as a lock owner or an extra REPORT element.
type XMLFragment = internal.RawXMLValue

// ParseXML parses a fragment with a single root element.
func ParseXML(s string) (*XMLFragment, error) {
	return internal.ParseRawXML(s)
}
