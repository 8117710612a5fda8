package carddav_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/emersion/go-vcard"

	"github.com/em-/tinydav"
	"github.com/em-/tinydav/carddav"
)

const exampleCard = `BEGIN:VCARD
VERSION:4.0
UID:urn:uuid:4fbe8971-0bc3-424c-9c26-36c3e1eff6b1
FN:J. Doe
N:Doe;J.;;;
EMAIL;PID=1.1:jdoe@example.com
END:VCARD
`

const addressBooksBody = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">
  <D:response>
    <D:href>/dav/jane/</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype><D:collection/></D:resourcetype>
        <C:addressbook-home-set><D:href>/dav/jane/</D:href></C:addressbook-home-set>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/dav/jane/contacts/</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype><D:collection/><C:addressbook/></D:resourcetype>
        <D:displayname>Contacts</D:displayname>
        <C:addressbook-description>Friends and family</C:addressbook-description>
        <C:max-resource-size>10240</C:max-resource-size>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/dav/jane/contacts/jdoe.vcf</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype/>
        <C:address-data>` + exampleCard + `</C:address-data>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

func newTestClient(t *testing.T, h http.Handler) *carddav.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	c, err := tinydav.NewClient(u.Scheme, u.Hostname(), port, tinydav.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return carddav.NewClient(c)
}

func TestClient_FindAddressBooks(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, addressBooksBody)
	}))
	ctx := context.Background()

	homeSet, err := c.FindAddressBookHomeSet(ctx, "/dav/jane/")
	if err != nil {
		t.Fatalf("FindAddressBookHomeSet() = %v", err)
	}
	if homeSet != "/dav/jane/" {
		t.Errorf("FindAddressBookHomeSet() = %q", homeSet)
	}

	abs, err := c.FindAddressBooks(ctx, homeSet)
	if err != nil {
		t.Fatalf("FindAddressBooks() = %v", err)
	}
	want := carddav.AddressBook{
		Path:            "/dav/jane/contacts/",
		Name:            "Contacts",
		Description:     "Friends and family",
		MaxResourceSize: 10240,
	}
	if len(abs) != 1 || abs[0] != want {
		t.Errorf("FindAddressBooks() = %+v, want [%+v]", abs, want)
	}
}

func TestDecodeAddressData(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, addressBooksBody)
	}))

	resp, err := c.Propfind(context.Background(), "/dav/jane/", &tinydav.PropfindOptions{Depth: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Len() != 3 {
		t.Fatalf("got %v entries, want 3", resp.Len())
	}

	if _, err := carddav.DecodeAddressData(resp.Entry(0)); !tinydav.IsNotFound(err) {
		t.Errorf("DecodeAddressData() without address-data = %v, want a not found error", err)
	}

	card, err := carddav.DecodeAddressData(resp.Entry(2))
	if err != nil {
		t.Fatalf("DecodeAddressData() = %v", err)
	}
	if fn := card.PreferredValue(vcard.FieldFormattedName); fn != "J. Doe" {
		t.Errorf("FN = %q, want %q", fn, "J. Doe")
	}
}

func TestClient_GetPutAddressObject(t *testing.T) {
	var stored, ifMatch string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
			w.Header().Set("ETag", `W/"1"`)
			io.WriteString(w, stored)
		case http.MethodPut:
			if ct := r.Header.Get("Content-Type"); ct != "text/vcard; charset=utf-8" {
				http.Error(w, "bad content type "+ct, http.StatusUnsupportedMediaType)
				return
			}
			b, _ := io.ReadAll(r.Body)
			stored = string(b)
			ifMatch = r.Header.Get("If-Match")
			w.Header().Set("Location", "/dav/jane/contacts/4fbe8971.vcf")
			w.WriteHeader(http.StatusCreated)
		}
	}))
	ctx := context.Background()

	card, err := vcard.NewDecoder(strings.NewReader(exampleCard)).Decode()
	if err != nil {
		t.Fatal(err)
	}

	ao, err := c.PutAddressObject(ctx, "/dav/jane/contacts/new.vcf", card, `W/"0"`)
	if err != nil {
		t.Fatalf("PutAddressObject() = %v", err)
	}
	if ao.Path != "/dav/jane/contacts/4fbe8971.vcf" {
		t.Errorf("Path = %q, want the Location header", ao.Path)
	}
	if ifMatch != `W/"0"` {
		t.Errorf("If-Match = %q, want %q", ifMatch, `W/"0"`)
	}

	ao, err = c.GetAddressObject(ctx, ao.Path)
	if err != nil {
		t.Fatalf("GetAddressObject() = %v", err)
	}
	if ao.ETag != `W/"1"` {
		t.Errorf("ETag = %q, want %q", ao.ETag, `W/"1"`)
	}
	if got := ao.Card.Value(vcard.FieldEmail); got != "jdoe@example.com" {
		t.Errorf("EMAIL = %q, want %q", got, "jdoe@example.com")
	}
}
