package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// HTTPClient performs HTTP requests. It's implemented by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one outgoing call. It's built once and not modified
// afterwards.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// RawReply is a reply read in full from the transport.
type RawReply struct {
	StatusCode int
	Status     string
	Proto      string
	Header     http.Header
	Body       []byte
}

// StatusLine formats the reply's status line, e.g. "HTTP/1.1 200 OK".
func (r *RawReply) StatusLine() string {
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	status := r.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
	}
	return strings.TrimSpace(proto + " " + status)
}

type Client struct {
	http     HTTPClient
	endpoint *url.URL
}

func NewClient(c HTTPClient, endpoint *url.URL) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	u := *endpoint
	u.Path = "/"
	return &Client{http: c, endpoint: &u}
}

// Endpoint returns the scheme and host requests are sent to.
func (c *Client) Endpoint() *url.URL {
	u := *c.endpoint
	return &u
}

func (c *Client) ResolveHref(p string) *url.URL {
	return &url.URL{
		Scheme: c.endpoint.Scheme,
		User:   c.endpoint.User,
		Host:   c.endpoint.Host,
		Path:   AbsPath(p),
	}
}

func (c *Client) NewRequest(ctx context.Context, r *Request) (*http.Request, error) {
	u := c.ResolveHref(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if r.Header != nil {
		req.Header = r.Header.Clone()
	}
	return req, nil
}

// Do sends the request and reads the whole reply. Any status is a valid
// reply, only transport failures are returned as errors.
func (c *Client) Do(req *http.Request) (*RawReply, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &RawReply{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Proto:      resp.Proto,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Discover performs a DNS-based CalDAV/CardDAV service discovery as described
// in RFC 6764 section 6. It returns the URL to the CalDAV/CardDAV server.
func Discover(ctx context.Context, c HTTPClient, service string, host string) (*url.URL, error) {
	if service != "caldav" && service != "carddav" {
		return nil, fmt.Errorf("tinydav: service discovery of type %v not supported", service)
	}
	if c == nil {
		c = http.DefaultClient
	}

	path := ""

	// Check for SRV records for the service we want, only lookup secure versions
	// (caldavs, carddavs), plaintext connections are insecure
	_, addrs, err := net.DefaultResolver.LookupSRV(ctx, fmt.Sprintf("%vs", service), "tcp", host)
	if dnsErr, ok := err.(*net.DNSError); ok {
		if dnsErr.IsTemporary {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if len(addrs) > 0 {
		srvTarget := strings.TrimSuffix(addrs[0].Target, ".")

		// If we found one, check for a TXT record specifying the path
		if srvTarget != "" {
			txtRecs, err := net.DefaultResolver.LookupTXT(ctx, fmt.Sprintf("_%vs._tcp.%v", service, host))
			if dnsErr, ok := err.(*net.DNSError); ok {
				if dnsErr.IsTemporary {
					return nil, err
				}
			} else if err != nil {
				return nil, err
			}

			for _, txtRec := range txtRecs {
				// This is not correct according to RFC 6763 sections 6.3 to 6.5,
				// but LookupTXT merges all constituent strings together
				for _, txtRecKeyVal := range strings.Split(txtRec, " ") {
					if strings.HasPrefix(strings.ToLower(txtRecKeyVal), "path=") {
						path = txtRecKeyVal[5:]
						break
					}
				}

				if path != "" {
					break
				}
			}

			if addrs[0].Port == 443 {
				host = srvTarget
			} else {
				host = fmt.Sprintf("%v:%v", srvTarget, addrs[0].Port)
			}
		}
	}

	// If we didn't get a path from TXT records, use the default well-known location
	if path == "" {
		path = fmt.Sprintf("/.well-known/%v", service)
	}

	u := &url.URL{Scheme: "https", Host: host, Path: path}

	// Check if the resulting URL hosts a service
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	// Servers might require authentication to perform an OPTIONS request
	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusUnauthorized {
		return nil, fmt.Errorf("HTTP request to %v failed: %v %v", u, resp.StatusCode, resp.Status)
	}

	return u, nil
}
