package carddav

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

	"github.com/emersion/go-vcard"

	"github.com/em-/tinydav"
	"github.com/em-/tinydav/internal"
)

// Discover performs a DNS-based CardDAV service discovery as described in
// RFC 6352 section 11. It returns the URL to the CardDAV server.
func Discover(ctx context.Context, c tinydav.HTTPClient, domain string) (*url.URL, error) {
	return internal.Discover(ctx, c, "carddav", domain)
}

// Client provides access to a remote CardDAV server.
type Client struct {
	*tinydav.Client
}

func NewClient(c *tinydav.Client) *Client {
	return &Client{c}
}

func (c *Client) FindAddressBookHomeSet(ctx context.Context, principal string) (string, error) {
	resp, err := c.Propfind(ctx, principal, &tinydav.PropfindOptions{
		Props: []string{clark(addressBookHomeSetName)},
	})
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	e := resp.Entry(0)
	if e == nil {
		return "", fmt.Errorf("carddav: empty PROPFIND reply for %q", principal)
	}

	var prop addressbookHomeSet
	if err := e.DecodeProp(addressBookHomeSetName, &prop); err != nil {
		return "", err
	}
	return internal.HrefPath(prop.Href)
}

func (c *Client) FindAddressBooks(ctx context.Context, addressBookHomeSet string) ([]AddressBook, error) {
	resp, err := c.Propfind(ctx, addressBookHomeSet, &tinydav.PropfindOptions{
		Depth: "1",
		Props: []string{
			"resourcetype",
			"displayname",
			clark(addressBookDescriptionName),
			clark(maxResourceSizeName),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	l := make([]AddressBook, 0, resp.Len())
	for _, e := range resp.Entries() {
		types, err := e.ResourceType()
		if tinydav.IsNotFound(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		if !isAddressBook(types) {
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
				return nil, fmt.Errorf("carddav: max-resource-size must be a positive integer")
			}
		}

		l = append(l, AddressBook{
			Path:            hrefPath,
			Name:            e.Get("displayname", ""),
			Description:     e.GetNS(namespace, addressBookDescriptionName.Local, ""),
			MaxResourceSize: maxResSize.Size,
		})
	}

	return l, nil
}

func isAddressBook(types []xml.Name) bool {
	for _, t := range types {
		if t == addressBookName {
			return true
		}
	}
	return false
}

// DecodeAddressData decodes the address-data property of an entry.
func DecodeAddressData(e *tinydav.Entry) (vcard.Card, error) {
	p, err := e.Lookup(AddressDataName)
	if err != nil {
		return nil, err
	}
	return vcard.NewDecoder(strings.NewReader(p.Value)).Decode()
}

func populateAddressObject(ao *AddressObject, h http.Header) error {
	if loc := h.Get("Location"); loc != "" {
		u, err := url.Parse(loc)
		if err != nil {
			return err
		}
		ao.Path = u.Path
	}
	if etag := h.Get("ETag"); etag != "" {
		if unquoted, err := strconv.Unquote(etag); err == nil {
			etag = unquoted
		}
		ao.ETag = etag
	}
	if lastModified := h.Get("Last-Modified"); lastModified != "" {
		t, err := http.ParseTime(lastModified)
		if err != nil {
			return err
		}
		ao.ModTime = t
	}

	return nil
}

func (c *Client) GetAddressObject(ctx context.Context, path string) (*AddressObject, error) {
	resp, err := c.Get(ctx, path, nil, http.Header{"Accept": {vcard.MIMEType}})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("carddav: malformed Content-Type: %v", err)
		}
		if !strings.EqualFold(mediaType, vcard.MIMEType) {
			return nil, fmt.Errorf("carddav: expected Content-Type %q, got %q", vcard.MIMEType, mediaType)
		}
	}

	card, err := vcard.NewDecoder(bytes.NewReader(resp.Body)).Decode()
	if err != nil {
		return nil, err
	}

	ao := &AddressObject{Path: path, Card: card}
	if err := populateAddressObject(ao, resp.Header); err != nil {
		return nil, err
	}
	return ao, nil
}

// PutAddressObject uploads a vCard. A non-empty ifMatch makes the upload
// conditional on the current ETag of the resource.
func (c *Client) PutAddressObject(ctx context.Context, path string, card vcard.Card, ifMatch string) (*AddressObject, error) {
	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set("Content-Type", mime.FormatMediaType(vcard.MIMEType, map[string]string{"charset": "utf-8"}))
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

	ao := &AddressObject{Path: path, Card: card}
	if err := populateAddressObject(ao, resp.Header); err != nil {
		return nil, err
	}
	return ao, nil
}
