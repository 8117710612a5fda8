package tinydav

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/em-/tinydav/internal"
)

//go:generate mockgen -destination=mock_httpclient_test.go -package=tinydav . HTTPClient

// HTTPClient performs HTTP requests. It's implemented by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	http   HTTPClient
	header http.Header
	logger *slog.Logger
}

// WithHTTPClient sets the client used to send requests. The default is
// http.DefaultClient.
func WithHTTPClient(c HTTPClient) ClientOption {
	return func(o *clientOptions) {
		o.http = c
	}
}

// WithBasicAuth adds a basic authentication header to every request.
func WithBasicAuth(username, password string) ClientOption {
	return func(o *clientOptions) {
		// https://tools.ietf.org/html/rfc7617#section-2
		creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		o.header.Set("Authorization", "Basic "+creds)
	}
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(o *clientOptions) {
		o.header.Set(key, value)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// Client is a WebDAV client bound to one server. It's safe for concurrent
// use: only the HTTP client carries state between calls.
type Client struct {
	ic     *internal.Client
	header http.Header
	logger *slog.Logger
}

// NewClient creates a client for the server at host. A zero port selects
// the scheme's default port.
func NewClient(scheme, host string, port int, opts ...ClientOption) (*Client, error) {
	scheme = strings.ToLower(scheme)
	switch scheme {
	case "":
		scheme = "http"
	case "http", "https":
	default:
		return nil, &ConfigError{Op: "client", Msg: fmt.Sprintf("unsupported scheme %q", scheme)}
	}
	if host == "" {
		return nil, &ConfigError{Op: "client", Msg: "missing host"}
	}
	if port == 0 {
		port = defaultPort(scheme)
	}
	if port < 0 || port > 65535 {
		return nil, &ConfigError{Op: "client", Msg: fmt.Sprintf("invalid port %v", port)}
	}

	o := clientOptions{header: make(http.Header)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	endpoint := &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/",
	}
	return &Client{
		ic:     internal.NewClient(o.http, endpoint),
		header: o.header,
		logger: o.logger,
	}, nil
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// Endpoint returns the base URL requests are sent to.
func (c *Client) Endpoint() *url.URL {
	return c.ic.Endpoint()
}

// Header returns a copy of the default headers.
func (c *Client) Header() http.Header {
	return c.header.Clone()
}

// prepare merges the caller's headers over the client defaults.
func (c *Client) prepare(header http.Header) http.Header {
	h := c.header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	for k, v := range header {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return h
}

func (c *Client) do(ctx context.Context, r *internal.Request) (*Response, error) {
	req, err := c.ic.NewRequest(ctx, r)
	if err != nil {
		return nil, &RequestError{Method: r.Method, URL: r.Path, Err: err}
	}

	start := time.Now()
	raw, err := c.ic.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "request failed",
			"method", r.Method,
			"url", req.URL.String(),
			"error", err)
		return nil, &RequestError{Method: r.Method, URL: req.URL.String(), Err: err}
	}
	c.logger.DebugContext(ctx, "request complete",
		"method", r.Method,
		"url", req.URL.String(),
		"status", raw.StatusCode,
		"duration", time.Since(start))

	resp := newResponse(r.Method, internal.AbsPath(r.Path), raw)
	if resp.ParseError != nil {
		c.logger.DebugContext(ctx, "malformed multistatus body",
			"method", r.Method,
			"url", req.URL.String(),
			"error", resp.ParseError)
	}
	return resp, nil
}

func readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("tinydav: failed to read request body: %w", err)
	}
	return b, nil
}

// Options sends an OPTIONS request.
func (c *Client) Options(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.do(ctx, &internal.Request{
		Method: http.MethodOptions,
		Path:   path,
		Header: c.prepare(header),
	})
}

// Get sends a GET request. The query is appended to the URI.
func (c *Client) Get(ctx context.Context, path string, query url.Values, header http.Header) (*Response, error) {
	return c.do(ctx, &internal.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Header: c.prepare(header),
	})
}

// Head sends a HEAD request. The query is appended to the URI.
func (c *Client) Head(ctx context.Context, path string, query url.Values, header http.Header) (*Response, error) {
	return c.do(ctx, &internal.Request{
		Method: http.MethodHead,
		Path:   path,
		Query:  query,
		Header: c.prepare(header),
	})
}

// Post sends a POST request with the content of body.
func (c *Client) Post(ctx context.Context, path string, body io.Reader, query url.Values, header http.Header) (*Response, error) {
	b, err := readBody(body)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return c.do(ctx, &internal.Request{
		Method: http.MethodPost,
		Path:   path,
		Query:  query,
		Header: c.prepare(header),
		Body:   b,
	})
}

// PostForm sends a POST request with fields encoded as multipart/form-data.
// Values implementing io.Reader are sent as files, anything else as text
// encoded in charset ("utf-8" if empty).
func (c *Client) PostForm(ctx context.Context, path string, fields map[string]interface{}, charset string, query url.Values, header http.Header) (*Response, error) {
	body, contentType, err := internal.NewMultipartForm(fields, charset)
	if err != nil {
		return nil, err
	}
	h := c.prepare(header)
	h.Set("Content-Type", contentType)
	return c.do(ctx, &internal.Request{
		Method: http.MethodPost,
		Path:   path,
		Query:  query,
		Header: h,
		Body:   body,
	})
}

// Put sends a PUT request with the content of body.
func (c *Client) Put(ctx context.Context, path string, body io.Reader, header http.Header) (*Response, error) {
	b, err := readBody(body)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return c.do(ctx, &internal.Request{
		Method: http.MethodPut,
		Path:   path,
		Header: c.prepare(header),
		Body:   b,
	})
}

// Delete sends a DELETE request. Collections (paths ending with a slash) are
// always deleted with "Depth: infinity".
//
// https://tools.ietf.org/html/rfc4918#section-9.6.1
func (c *Client) Delete(ctx context.Context, path string, header http.Header) (*Response, error) {
	h := c.prepare(header)
	if internal.IsCollection(path) {
		h.Set("Depth", "infinity")
	}
	return c.do(ctx, &internal.Request{
		Method: http.MethodDelete,
		Path:   path,
		Header: h,
	})
}

// TraceOptions holds the optional parameters of a TRACE request.
type TraceOptions struct {
	// MaxForwards sets the Max-Forwards header when non-nil.
	MaxForwards *int
	// Via lists the stations of the Via header, in the form of RFC 7230
	// section 5.7.1.
	Via    []string
	Header http.Header
}

// Trace sends a TRACE request.
func (c *Client) Trace(ctx context.Context, path string, opts *TraceOptions) (*Response, error) {
	if opts == nil {
		opts = &TraceOptions{}
	}
	h := c.prepare(opts.Header)
	if opts.MaxForwards != nil {
		if *opts.MaxForwards < 0 {
			return nil, &ConfigError{Op: "trace", Msg: fmt.Sprintf("invalid Max-Forwards %v", *opts.MaxForwards)}
		}
		h.Set("Max-Forwards", strconv.Itoa(*opts.MaxForwards))
	}
	if len(opts.Via) > 0 {
		h.Set("Via", strings.Join(opts.Via, ", "))
	}
	return c.do(ctx, &internal.Request{
		Method: http.MethodTrace,
		Path:   path,
		Header: h,
	})
}

// Connect sends a CONNECT request.
func (c *Client) Connect(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.do(ctx, &internal.Request{
		Method: http.MethodConnect,
		Path:   path,
		Header: c.prepare(header),
	})
}

// Mkcol creates a collection.
//
// https://tools.ietf.org/html/rfc4918#section-9.3
func (c *Client) Mkcol(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.do(ctx, &internal.Request{
		Method: "MKCOL",
		Path:   path,
		Header: c.prepare(header),
	})
}

// PropfindOptions holds the parameters of a PROPFIND request.
type PropfindOptions struct {
	// Depth is "0" (the default), "1" or "infinity".
	Depth string
	// Names requests property names only.
	Names bool
	// Props lists the requested properties. Names are either bare DAV:
	// names, prefixed names declared in Namespaces, or in Clark notation.
	Props []string
	// Include lists properties returned in addition to an allprop request.
	// It can't be combined with Props.
	Include []string
	// Namespaces maps prefixes to namespace URIs.
	Namespaces map[string]string
	Header     http.Header
}

// Propfind retrieves properties.
//
// https://tools.ietf.org/html/rfc4918#section-9.1
func (c *Client) Propfind(ctx context.Context, path string, opts *PropfindOptions) (*Response, error) {
	if opts == nil {
		opts = &PropfindOptions{}
	}
	depth, err := internal.CheckDepth(orDefault(opts.Depth, "0"))
	if err != nil {
		return nil, err
	}
	body, err := internal.NewPropfind(opts.Names, opts.Props, opts.Include, opts.Namespaces)
	if err != nil {
		return nil, err
	}

	h := c.prepare(opts.Header)
	h.Set("Depth", depth)
	h.Set("Content-Type", "application/xml")
	return c.do(ctx, &internal.Request{
		Method: "PROPFIND",
		Path:   path,
		Header: h,
		Body:   body,
	})
}

// ProppatchOptions holds the parameters of a PROPPATCH request. At least one
// of Set and Remove must be non-empty.
type ProppatchOptions struct {
	Set        map[string]string
	Remove     []string
	Namespaces map[string]string
	Header     http.Header
}

// Proppatch sets and removes properties.
//
// https://tools.ietf.org/html/rfc4918#section-9.2
func (c *Client) Proppatch(ctx context.Context, path string, opts *ProppatchOptions) (*Response, error) {
	if opts == nil {
		opts = &ProppatchOptions{}
	}
	body, err := internal.NewProppatch(opts.Set, opts.Remove, opts.Namespaces)
	if err != nil {
		return nil, err
	}

	h := c.prepare(opts.Header)
	h.Set("Content-Type", "application/xml")
	return c.do(ctx, &internal.Request{
		Method: "PROPPATCH",
		Path:   path,
		Header: h,
		Body:   body,
	})
}

// CopyOptions holds the parameters of COPY and MOVE requests.
type CopyOptions struct {
	// Depth is "infinity" (the default) or "0". It's only sent for
	// collections.
	Depth string
	// Overwrite sets the Overwrite header when non-nil.
	Overwrite *bool
	Header    http.Header
}

func (c *Client) copyMove(ctx context.Context, method, source, destination string, opts *CopyOptions) (*Response, error) {
	h, err := internal.CopyMoveHeaders(c.ic.Endpoint(), source, destination, orDefault(opts.Depth, "infinity"), opts.Overwrite)
	if err != nil {
		return nil, err
	}

	header := c.prepare(opts.Header)
	for k, v := range h {
		header[k] = v
	}
	return c.do(ctx, &internal.Request{
		Method: method,
		Path:   source,
		Header: header,
	})
}

// Copy copies source to destination.
//
// https://tools.ietf.org/html/rfc4918#section-9.8
func (c *Client) Copy(ctx context.Context, source, destination string, opts *CopyOptions) (*Response, error) {
	if opts == nil {
		opts = &CopyOptions{}
	}
	return c.copyMove(ctx, "COPY", source, destination, opts)
}

// Move moves source to destination. Collections can only be moved with
// "Depth: infinity".
//
// https://tools.ietf.org/html/rfc4918#section-9.9
func (c *Client) Move(ctx context.Context, source, destination string, opts *CopyOptions) (*Response, error) {
	if opts == nil {
		opts = &CopyOptions{}
	}
	if internal.IsCollection(source) && !strings.EqualFold(orDefault(opts.Depth, "infinity"), "infinity") {
		return nil, &ConfigError{Op: "move", Msg: "depth must be infinity when moving collections"}
	}
	return c.copyMove(ctx, "MOVE", source, destination, opts)
}

// LockOptions holds the parameters of a LOCK request.
type LockOptions struct {
	// Scope is "exclusive" (the default) or "shared".
	Scope string
	// Type is the lock type, "write" by default.
	Type string
	// Owner is the text of the owner element. OwnerXML takes precedence and
	// is sent as-is.
	Owner    string
	OwnerXML *XMLFragment
	// Timeout is a number of seconds or "infinite". Empty omits the Timeout
	// header.
	Timeout string
	// Depth is "0" or "infinity". Empty omits the Depth header.
	Depth  string
	Header http.Header
}

// Lock locks a resource. The lock token is returned by the server in the
// Lock-Token header and the DAV:lockdiscovery property.
//
// https://tools.ietf.org/html/rfc4918#section-9.10
func (c *Client) Lock(ctx context.Context, path string, opts *LockOptions) (*Response, error) {
	if opts == nil {
		opts = &LockOptions{}
	}
	lh, err := internal.LockHeaders(opts.Timeout, opts.Depth)
	if err != nil {
		return nil, err
	}

	var owner *internal.Owner
	if opts.OwnerXML != nil || opts.Owner != "" {
		owner = &internal.Owner{Text: opts.Owner, XML: opts.OwnerXML}
	}
	body, err := internal.NewLock(orDefault(opts.Scope, "exclusive"), orDefault(opts.Type, "write"), owner)
	if err != nil {
		return nil, err
	}

	h := c.prepare(opts.Header)
	for k, v := range lh {
		h[k] = v
	}
	h.Set("Content-Type", "application/xml")
	return c.do(ctx, &internal.Request{
		Method: "LOCK",
		Path:   path,
		Header: h,
		Body:   body,
	})
}

// Unlock releases the lock identified by token, as returned by
// Response.LockToken.
//
// https://tools.ietf.org/html/rfc4918#section-9.11
func (c *Client) Unlock(ctx context.Context, path, token string, header http.Header) (*Response, error) {
	if token == "" {
		return nil, &ConfigError{Op: "unlock", Msg: "missing lock token"}
	}
	h := c.prepare(header)
	h.Set("Lock-Token", "<"+token+">")
	return c.do(ctx, &internal.Request{
		Method: "UNLOCK",
		Path:   path,
		Header: h,
	})
}

// IfLockToken formats an If header value submitting a lock token, for
// requests modifying a locked resource.
//
// https://tools.ietf.org/html/rfc4918#section-10.4
func IfLockToken(token string) string {
	return "(<" + token + ">)"
}

// ReportOptions holds the parameters of a version-tree REPORT request.
type ReportOptions struct {
	// Depth is "0" (the default), "1" or "infinity".
	Depth string
	Props []string
	// Elements are appended to the report body as-is.
	Elements   []*XMLFragment
	Namespaces map[string]string
	Header     http.Header
}

// Report sends a DAV:version-tree REPORT request.
//
// https://tools.ietf.org/html/rfc3253#section-3.6
func (c *Client) Report(ctx context.Context, path string, opts *ReportOptions) (*Response, error) {
	if opts == nil {
		opts = &ReportOptions{}
	}
	depth, err := internal.CheckDepth(orDefault(opts.Depth, "0"))
	if err != nil {
		return nil, err
	}
	body, err := internal.NewReport(opts.Props, opts.Elements, opts.Namespaces)
	if err != nil {
		return nil, err
	}

	h := c.prepare(opts.Header)
	h.Set("Depth", depth)
	h.Set("Content-Type", "application/xml")
	return c.do(ctx, &internal.Request{
		Method: "REPORT",
		Path:   path,
		Header: h,
		Body:   body,
	})
}

// FindCurrentUserPrincipal returns the principal of the authenticated user.
//
// https://tools.ietf.org/html/rfc5397
func (c *Client) FindCurrentUserPrincipal(ctx context.Context) (string, error) {
	resp, err := c.Propfind(ctx, "/", &PropfindOptions{
		Props: []string{CurrentUserPrincipalName.Local},
	})
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	e := resp.Entry(0)
	if e == nil {
		return "", fmt.Errorf("tinydav: empty PROPFIND reply")
	}

	var prop currentUserPrincipalProp
	if err := e.DecodeProp(CurrentUserPrincipalName, &prop); err != nil {
		return "", err
	}
	if prop.Unauthenticated != nil {
		return "", fmt.Errorf("tinydav: unauthenticated")
	}
	return internal.HrefPath(prop.Href)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var _ HTTPClient = (*http.Client)(nil)
