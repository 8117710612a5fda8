package caldav

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/emersion/go-ical"

	"github.com/em-/tinydav"
	"github.com/em-/tinydav/internal"
)

// Discover performs a DNS-based CalDAV service discovery as described in
// RFC 6764. It returns the URL to the CalDAV server.
func Discover(ctx context.Context, c tinydav.HTTPClient, domain string) (*url.URL, error) {
	return internal.Discover(ctx, c, "caldav", domain)
}

// Client provides access to a remote CalDAV server.
type Client struct {
	*tinydav.Client
}

func NewClient(c *tinydav.Client) *Client {
	return &Client{c}
}

func (c *Client) FindCalendarHomeSet(ctx context.Context, principal string) (string, error) {
	resp, err := c.Propfind(ctx, principal, &tinydav.PropfindOptions{
		Props: []string{clark(calendarHomeSetName)},
	})
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	e := resp.Entry(0)
	if e == nil {
		return "", fmt.Errorf("caldav: empty PROPFIND reply for %q", principal)
	}

	var prop calendarHomeSet
	if err := e.DecodeProp(calendarHomeSetName, &prop); err != nil {
		return "", err
	}
	return internal.HrefPath(prop.Href)
}

func (c *Client) FindCalendars(ctx context.Context, calendarHomeSet string) ([]Calendar, error) {
	resp, err := c.Propfind(ctx, calendarHomeSet, &tinydav.PropfindOptions{
		Depth: "1",
		Props: []string{
			"resourcetype",
			"displayname",
			clark(calendarDescriptionName),
			clark(maxResourceSizeName),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	l := make([]Calendar, 0, resp.Len())
	for _, e := range resp.Entries() {
		types, err := e.ResourceType()
		if tinydav.IsNotFound(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		if !contains(types, calendarName) {
			continue
		}

		hrefPath, err := e.Path()
		if err != nil {
			return nil, err
		}

		var maxResSize maxResourceSize
		if p, err := e.Lookup(maxResourceSizeName); err == nil && p.Status/100 == 2 {
			if err := p.Decode(&maxResSize); err != nil {
				return nil, err
			}
			if maxResSize.Size < 0 {
				return nil, fmt.Errorf("caldav: max-resource-size must be a positive integer")
			}
		}

		l = append(l, Calendar{
			Path:            hrefPath,
			Name:            e.Get("displayname", ""),
			Description:     e.GetNS(namespace, calendarDescriptionName.Local, ""),
			MaxResourceSize: maxResSize.Size,
		})
	}

	return l, nil
}

func contains(names []xml.Name, name xml.Name) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// DecodeCalendarData decodes the calendar-data property of an entry.
func DecodeCalendarData(e *tinydav.Entry) (*ical.Calendar, error) {
	p, err := e.Lookup(CalendarDataName)
	if err != nil {
		return nil, err
	}
	return ical.NewDecoder(strings.NewReader(p.Value)).Decode()
}

func populateCalendarObject(co *CalendarObject, h http.Header) error {
	if loc := h.Get("Location"); loc != "" {
		u, err := url.Parse(loc)
		if err != nil {
			return err
		}
		co.Path = u.Path
	}
	if etag := h.Get("ETag"); etag != "" {
		if unquoted, err := strconv.Unquote(etag); err == nil {
			etag = unquoted
		}
		co.ETag = etag
	}
	if lastModified := h.Get("Last-Modified"); lastModified != "" {
		t, err := http.ParseTime(lastModified)
		if err != nil {
			return err
		}
		co.ModTime = t
	}

	return nil
}

func (c *Client) GetCalendarObject(ctx context.Context, path string) (*CalendarObject, error) {
	resp, err := c.Get(ctx, path, nil, http.Header{"Accept": {ical.MIMEType}})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("caldav: malformed Content-Type: %v", err)
		}
		if !strings.EqualFold(mediaType, ical.MIMEType) {
			return nil, fmt.Errorf("caldav: expected Content-Type %q, got %q", ical.MIMEType, mediaType)
		}
	}

	cal, err := ical.NewDecoder(bytes.NewReader(resp.Body)).Decode()
	if err != nil {
		return nil, err
	}

	co := &CalendarObject{Path: path, Data: cal}
	if err := populateCalendarObject(co, resp.Header); err != nil {
		return nil, err
	}
	return co, nil
}

// PutCalendarObject uploads a calendar object. A non-empty ifMatch makes the
// upload conditional on the current ETag of the resource.
func (c *Client) PutCalendarObject(ctx context.Context, path string, cal *ical.Calendar, ifMatch string) (*CalendarObject, error) {
	// Some servers want a Content-Length header, so the body is buffered.
	// See the Radicale issue: https://github.com/Kozea/Radicale/issues/1016
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set("Content-Type", mime.FormatMediaType(ical.MIMEType, map[string]string{"charset": "utf-8"}))
	if ifMatch != "" {
		h.Set("If-Match", internal.QuoteETag(ifMatch))
	}

	resp, err := c.Put(ctx, path, &buf, h)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	co := &CalendarObject{Path: path, Data: cal}
	if err := populateCalendarObject(co, resp.Header); err != nil {
		return nil, err
	}
	return co, nil
}
