package tinydav

import (
	"encoding/xml"
	"strings"

	"github.com/em-/tinydav/internal"
)

// Live properties defined in RFC 4918 section 15.
var (
	CreationDateName     = xml.Name{Space: internal.Namespace, Local: "creationdate"}
	DisplayNameName      = xml.Name{Space: internal.Namespace, Local: "displayname"}
	GetContentLengthName = xml.Name{Space: internal.Namespace, Local: "getcontentlength"}
	GetContentTypeName   = xml.Name{Space: internal.Namespace, Local: "getcontenttype"}
	GetETagName          = xml.Name{Space: internal.Namespace, Local: "getetag"}
	GetLastModifiedName  = xml.Name{Space: internal.Namespace, Local: "getlastmodified"}
	LockDiscoveryName    = xml.Name{Space: internal.Namespace, Local: "lockdiscovery"}
	ResourceTypeName     = xml.Name{Space: internal.Namespace, Local: "resourcetype"}
	SupportedLockName    = xml.Name{Space: internal.Namespace, Local: "supportedlock"}

	CollectionName = xml.Name{Space: internal.Namespace, Local: "collection"}

	// https://tools.ietf.org/html/rfc5397#section-3
	CurrentUserPrincipalName = xml.Name{Space: internal.Namespace, Local: "current-user-principal"}
)

type currentUserPrincipalProp struct {
	XMLName         xml.Name  `xml:"DAV: current-user-principal"`
	Href            string    `xml:"href"`
	Unauthenticated *struct{} `xml:"unauthenticated"`
}

// https://tools.ietf.org/html/rfc4918#section-15.9
type resourceType struct {
	XMLName xml.Name               `xml:"DAV: resourcetype"`
	Raw     []internal.RawXMLValue `xml:",any"`
}

func (t *resourceType) Is(name xml.Name) bool {
	for _, raw := range t.Raw {
		if n, ok := raw.XMLName(); ok && name == n {
			return true
		}
	}
	return false
}

// ResourceType returns the names of the elements of the DAV:resourcetype
// property, e.g. CollectionName.
func (e *Entry) ResourceType() ([]xml.Name, error) {
	var rt resourceType
	if err := e.DecodeProp(ResourceTypeName, &rt); err != nil {
		return nil, err
	}
	var l []xml.Name
	for _, raw := range rt.Raw {
		if name, ok := raw.XMLName(); ok {
			l = append(l, name)
		}
	}
	return l, nil
}

// https://tools.ietf.org/html/rfc4918#section-14.1
type ActiveLock struct {
	XMLName   xml.Name              `xml:"DAV: activelock"`
	LockScope lockScope             `xml:"lockscope"`
	LockType  lockType              `xml:"locktype"`
	Depth     string                `xml:"depth"`
	Owner     *internal.RawXMLValue `xml:"owner,omitempty"`
	Timeout   string                `xml:"timeout,omitempty"`
	LockToken string                `xml:"locktoken>href,omitempty"`
	LockRoot  string                `xml:"lockroot>href,omitempty"`
}

type lockScope struct {
	Exclusive *struct{} `xml:"exclusive,omitempty"`
	Shared    *struct{} `xml:"shared,omitempty"`
}

type lockType struct {
	Write *struct{} `xml:"write,omitempty"`
}

// Scope returns "exclusive", "shared" or "".
func (l *ActiveLock) Scope() string {
	switch {
	case l.LockScope.Exclusive != nil:
		return "exclusive"
	case l.LockScope.Shared != nil:
		return "shared"
	}
	return ""
}

// https://tools.ietf.org/html/rfc4918#section-15.8
type lockDiscovery struct {
	XMLName     xml.Name     `xml:"DAV: lockdiscovery"`
	ActiveLocks []ActiveLock `xml:"activelock"`
}

// ActiveLocks decodes the DAV:lockdiscovery property of the entry.
func (e *Entry) ActiveLocks() ([]ActiveLock, error) {
	var ld lockDiscovery
	if err := e.DecodeProp(LockDiscoveryName, &ld); err != nil {
		return nil, err
	}
	return ld.ActiveLocks, nil
}

// https://tools.ietf.org/html/rfc4918#section-9.10.1
type lockReply struct {
	XMLName       xml.Name      `xml:"DAV: prop"`
	LockDiscovery lockDiscovery `xml:"lockdiscovery"`
}

// ActiveLocks decodes the body of a successful LOCK reply.
func (resp *Response) ActiveLocks() ([]ActiveLock, error) {
	var reply lockReply
	if err := internal.DecodeXML(resp.Body, &reply); err != nil {
		return nil, err
	}
	return reply.LockDiscovery.ActiveLocks, nil
}

// LockToken returns the token of the Lock-Token header of a LOCK reply,
// without the enclosing angle brackets.
//
// https://tools.ietf.org/html/rfc4918#section-10.5
func (resp *Response) LockToken() string {
	s := strings.TrimSpace(resp.Header.Get("Lock-Token"))
	return strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
}
