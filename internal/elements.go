package internal

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// https://tools.ietf.org/html/rfc4918#section-14.16
//
// The root element name isn't checked: responses are counted under whatever
// root the server sent.
type Multistatus struct {
	XMLName             xml.Name
	Responses           []Response `xml:"DAV: response"`
	ResponseDescription string     `xml:"DAV: responsedescription,omitempty"`
}

// https://tools.ietf.org/html/rfc4918#section-14.24
type Response struct {
	XMLName             xml.Name   `xml:"DAV: response"`
	Hrefs               []string   `xml:"DAV: href"`
	Propstats           []Propstat `xml:"DAV: propstat,omitempty"`
	Status              string     `xml:"DAV: status,omitempty"`
	ResponseDescription string     `xml:"DAV: responsedescription,omitempty"`
	// TODO: error?, location?
}

// Href returns the first href of the response.
func (resp *Response) Href() string {
	if len(resp.Hrefs) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Hrefs[0])
}

// HrefPath returns the unescaped path of an href. Absolute URIs are reduced
// to their path.
func HrefPath(href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("tinydav: invalid href %q: %w", href, err)
	}
	return u.Path, nil
}

// StatusLine returns the status line of the first propstat, falling back to
// the response-level status.
func (resp *Response) StatusLine() string {
	for _, propstat := range resp.Propstats {
		if s := strings.TrimSpace(propstat.Status); s != "" {
			return s
		}
	}
	return strings.TrimSpace(resp.Status)
}

// https://tools.ietf.org/html/rfc4918#section-14.22
type Propstat struct {
	XMLName             xml.Name    `xml:"DAV: propstat"`
	Prop                RawXMLValue `xml:"DAV: prop"`
	Status              string      `xml:"DAV: status"`
	ResponseDescription string      `xml:"DAV: responsedescription,omitempty"`
	// TODO: error?
}

func newDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	// Non UTF-8 documents are converted according to their XML declaration.
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// ParseMultistatus decodes a multistatus document.
func ParseMultistatus(r io.Reader) (*Multistatus, error) {
	var ms Multistatus
	if err := newDecoder(r).Decode(&ms); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &ms, nil
}

// DecodeXML decodes a reply body other than a multistatus document.
func DecodeXML(body []byte, v interface{}) error {
	if err := newDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// ParseStatusLine parses a status line such as "HTTP/1.1 200 OK".
//
// https://tools.ietf.org/html/rfc4918#section-14.28
func ParseStatusLine(s string) (code int, text string, err error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("tinydav: invalid status line %q", s)
	}
	code, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, "", fmt.Errorf("tinydav: invalid status code in %q: %v", s, err)
	}
	return code, strings.Join(fields[2:], " "), nil
}
