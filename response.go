package tinydav

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"sort"

	"github.com/em-/tinydav/internal"
)

// Response is the reply to one request.
//
// A 207 Multi-Status reply holds one Entry per DAV:response element. Any other
// reply holds a single Entry standing for the reply itself.
type Response struct {
	// Method and Path identify the request.
	Method string
	Path   string

	StatusCode int
	// Status is the status line, e.g. "HTTP/1.1 207 Multi-Status".
	Status string
	Header http.Header
	Body   []byte

	// ParseError is set when a multi-status body isn't well-formed XML. The
	// reply then has no entries.
	ParseError error

	description string
	entries     []*Entry
}

func newResponse(method, path string, raw *internal.RawReply) *Response {
	resp := &Response{
		Method:     method,
		Path:       path,
		StatusCode: raw.StatusCode,
		Status:     raw.StatusLine(),
		Header:     raw.Header,
		Body:       raw.Body,
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}

	if !resp.IsMultiStatus() {
		resp.entries = []*Entry{{
			reply:      resp,
			self:       true,
			href:       path,
			statusLine: resp.Status,
			status:     resp.StatusCode,
		}}
		return resp
	}

	ms, err := internal.ParseMultistatus(bytes.NewReader(raw.Body))
	if err != nil {
		resp.ParseError = err
		ms = &internal.Multistatus{}
	}
	resp.description = ms.ResponseDescription
	resp.entries = make([]*Entry, 0, len(ms.Responses))
	for i := range ms.Responses {
		resp.entries = append(resp.entries, newEntry(resp, &ms.Responses[i]))
	}
	return resp
}

// IsMultiStatus reports whether the status is 207 Multi-Status.
func (resp *Response) IsMultiStatus() bool {
	return resp.StatusCode == http.StatusMultiStatus
}

// Len returns the number of entries: the number of DAV:response elements of
// a multi-status reply, 1 otherwise.
func (resp *Response) Len() int {
	return len(resp.entries)
}

// Entries returns the entries in document order.
func (resp *Response) Entries() []*Entry {
	l := make([]*Entry, len(resp.entries))
	copy(l, resp.entries)
	return l
}

// Entry returns the i-th entry, or nil if i is out of range.
func (resp *Response) Entry(i int) *Entry {
	if i < 0 || i >= len(resp.entries) {
		return nil
	}
	return resp.entries[i]
}

// ResponseDescription returns the DAV:responsedescription of a multi-status
// reply.
func (resp *Response) ResponseDescription() string {
	return resp.description
}

// Err returns an *HTTPError for 4xx and 5xx replies, nil otherwise.
func (resp *Response) Err() error {
	if !resp.IsClientError() && !resp.IsServerError() {
		return nil
	}
	return internal.HTTPErrorf(resp.StatusCode, "%v %v", resp.Method, resp.Path)
}

// IsClientError reports whether the status is 4xx.
func (resp *Response) IsClientError() bool {
	return resp.StatusCode/100 == 4
}

// IsServerError reports whether the status is 5xx.
func (resp *Response) IsServerError() bool {
	return resp.StatusCode/100 == 5
}

// DAVClasses returns the compliance classes of the DAV header, as returned
// by OPTIONS.
//
// https://tools.ietf.org/html/rfc4918#section-10.1
func (resp *Response) DAVClasses() map[string]bool {
	return internal.ParseCommaSeparatedSet(resp.Header.Values("Dav"), false)
}

// AllowedMethods returns the methods of the Allow header.
func (resp *Response) AllowedMethods() map[string]bool {
	return internal.ParseCommaSeparatedSet(resp.Header.Values("Allow"), true)
}

// Property is a property returned in a multi-status entry.
type Property struct {
	Name xml.Name
	// Value is the character data directly inside the property element.
	Value string
	// Status is the status code of the propstat the property was found in.
	Status int

	raw *internal.RawXMLValue
}

// Key returns the property name in Clark notation, without namespace for
// DAV: properties.
func (p *Property) Key() string {
	return internal.FormatName(p.Name, true)
}

// Decode decodes the property element into v.
func (p *Property) Decode(v interface{}) error {
	return p.raw.Decode(v)
}

// Entry is the result for one resource. Entries are immutable and remain
// valid as long as their Response.
type Entry struct {
	reply      *Response
	self       bool
	href       string
	statusLine string
	status     int
	props      []Property
	namespaces []string
}

func newEntry(reply *Response, resp *internal.Response) *Entry {
	e := &Entry{
		reply:      reply,
		href:       resp.Href(),
		statusLine: resp.StatusLine(),
	}
	// Only the first propstat status is representative of the entry.
	e.status, _, _ = internal.ParseStatusLine(e.statusLine)

	seen := make(map[string]bool)
	for i := range resp.Propstats {
		propstat := &resp.Propstats[i]
		code, _, _ := internal.ParseStatusLine(propstat.Status)
		for _, raw := range propstat.Prop.Elements() {
			name, _ := raw.XMLName()
			e.props = append(e.props, Property{
				Name:   name,
				Value:  raw.Text(),
				Status: code,
				raw:    raw,
			})
			if name.Space != "" && name.Space != internal.Namespace && !seen[name.Space] {
				seen[name.Space] = true
				e.namespaces = append(e.namespaces, name.Space)
			}
		}
	}
	sort.Strings(e.namespaces)
	return e
}

// Reply returns the response holding the entry.
func (e *Entry) Reply() *Response {
	return e.reply
}

// Status returns the status code of the entry. For multi-status entries,
// it's the status of the first DAV:propstat, or of the DAV:response if it
// has no propstat. It's 0 if the status line can't be parsed.
func (e *Entry) Status() int {
	return e.status
}

// StatusLine returns the raw status line the status code is parsed from.
func (e *Entry) StatusLine() string {
	return e.statusLine
}

// Href returns the first DAV:href of the entry. For a reply without
// multi-status body, it's the request path.
func (e *Entry) Href() string {
	return e.href
}

// Path returns the href as an unescaped path that can be passed back to the
// client methods.
func (e *Entry) Path() (string, error) {
	if e.self {
		return e.href, nil
	}
	return internal.HrefPath(e.href)
}

// Namespaces returns the sorted set of namespaces of the entry's
// properties, DAV: excluded.
func (e *Entry) Namespaces() []string {
	l := make([]string, len(e.namespaces))
	copy(l, e.namespaces)
	return l
}

// Props returns the properties in document order.
func (e *Entry) Props() []Property {
	l := make([]Property, len(e.props))
	copy(l, e.props)
	return l
}

// Keys returns the property names in document order, in Clark notation
// with DAV: names left bare.
func (e *Entry) Keys() []string {
	l := make([]string, 0, len(e.props))
	for i := range e.props {
		l = append(l, e.props[i].Key())
	}
	return l
}

// QualifiedKeys is like Keys, but keeps the DAV: namespace.
func (e *Entry) QualifiedKeys() []string {
	l := make([]string, 0, len(e.props))
	for i := range e.props {
		l = append(l, internal.FormatName(e.props[i].Name, false))
	}
	return l
}

// Lookup returns the first property named name. It returns a
// *PropNotFoundError if the entry has no such property.
func (e *Entry) Lookup(name xml.Name) (*Property, error) {
	for i := range e.props {
		if e.props[i].Name == name {
			p := e.props[i]
			return &p, nil
		}
	}
	return nil, &PropNotFoundError{Name: name}
}

// Get returns the value of a property, or def if the entry doesn't have it.
// The name is either in Clark notation or a bare DAV: name.
func (e *Entry) Get(name, def string) string {
	return e.get(ParseName(name), def)
}

// GetNS is like Get for a property in namespace.
func (e *Entry) GetNS(namespace, name, def string) string {
	if namespace == "" {
		return e.Get(name, def)
	}
	return e.get(xml.Name{Space: namespace, Local: name}, def)
}

func (e *Entry) get(name xml.Name, def string) string {
	p, err := e.Lookup(name)
	if err != nil {
		return def
	}
	return p.Value
}

// DecodeProp decodes the property named name into v.
func (e *Entry) DecodeProp(name xml.Name, v interface{}) error {
	p, err := e.Lookup(name)
	if err != nil {
		return err
	}
	return p.Decode(v)
}

// ParseName resolves a property name. Names in Clark notation
// ("{urn:example}color") keep their namespace, bare names are in DAV:.
func ParseName(s string) xml.Name {
	return internal.ParseName(s)
}
