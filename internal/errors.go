package internal

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
)

// ConfigError reports invalid caller input. It is always returned before any
// request is sent.
type ConfigError struct {
	Op  string
	Msg string
	// Err is the underlying error, if any.
	Err error
}

func configErrorf(op string, format string, a ...interface{}) *ConfigError {
	return &ConfigError{Op: op, Msg: fmt.Sprintf(format, a...)}
}

func (err *ConfigError) Error() string {
	if err.Op == "" {
		return fmt.Sprintf("tinydav: %v", err.Msg)
	}
	return fmt.Sprintf("tinydav: %v: %v", err.Op, err.Msg)
}

func (err *ConfigError) Unwrap() error {
	return err.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// ParseError reports a reply body that isn't well-formed XML.
type ParseError struct {
	Err error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("tinydav: malformed XML body: %v", err.Err)
}

func (err *ParseError) Unwrap() error {
	return err.Err
}

// PropNotFoundError is returned when a property is missing from a response.
type PropNotFoundError struct {
	Name xml.Name
}

func (err *PropNotFoundError) Error() string {
	return fmt.Sprintf("tinydav: missing property {%v}%v", err.Name.Space, err.Name.Local)
}

// IsNotFound reports whether err is or wraps a *PropNotFoundError.
func IsNotFound(err error) bool {
	var notFound *PropNotFoundError
	return errors.As(err, &notFound)
}

type HTTPError struct {
	Code int
	Err  error
}

func HTTPErrorf(code int, format string, a ...interface{}) *HTTPError {
	return &HTTPError{code, fmt.Errorf(format, a...)}
}

func (err *HTTPError) Error() string {
	s := fmt.Sprintf("%v %v", err.Code, http.StatusText(err.Code))
	if err.Err != nil {
		return fmt.Sprintf("%v: %v", s, err.Err)
	} else {
		return s
	}
}

func (err *HTTPError) Unwrap() error {
	return err.Err
}
