package internal

import (
	"errors"
	"strings"
	"testing"
)

// https://tools.ietf.org/html/rfc4918#section-9.6.2
const exampleDeleteMultistatusStr = `<?xml version="1.0" encoding="utf-8" ?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>http://www.example.com/container/resource3</d:href>
    <d:status>HTTP/1.1 423 Locked</d:status>
    <d:error><d:lock-token-submitted/></d:error>
  </d:response>
</d:multistatus>`

// https://tools.ietf.org/html/rfc4918#section-9.1.3
const examplePropfindMultistatusStr = `<?xml version="1.0" encoding="utf-8" ?>
<D:multistatus xmlns:D="DAV:">
  <D:response xmlns:R="http://ns.example.com/boxschema/">
    <D:href>
      http://www.example.com/file
    </D:href>
    <D:propstat>
      <D:prop>
        <R:bigbox/>
        <R:author/>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
    <D:propstat>
      <D:prop><R:DingALing/><R:Random/></D:prop>
      <D:status>HTTP/1.1 403 Forbidden</D:status>
      <D:responsedescription> The user does not have access to the DingALing property.
      </D:responsedescription>
    </D:propstat>
  </D:response>
  <D:responsedescription> There has been an access violation error.
  </D:responsedescription>
</D:multistatus>`

func TestParseMultistatus(t *testing.T) {
	ms, err := ParseMultistatus(strings.NewReader(examplePropfindMultistatusStr))
	if err != nil {
		t.Fatalf("ParseMultistatus() = %v", err)
	}
	if len(ms.Responses) != 1 {
		t.Fatalf("len(Responses) = %v, want 1", len(ms.Responses))
	}
	if !strings.Contains(ms.ResponseDescription, "access violation") {
		t.Errorf("ResponseDescription = %q", ms.ResponseDescription)
	}

	resp := &ms.Responses[0]
	if got, want := resp.Href(), "http://www.example.com/file"; got != want {
		t.Errorf("Href() = %q, want %q", got, want)
	}
	if got, want := resp.StatusLine(), "HTTP/1.1 200 OK"; got != want {
		t.Errorf("StatusLine() = %q, want %q", got, want)
	}
	if len(resp.Propstats) != 2 {
		t.Fatalf("len(Propstats) = %v, want 2", len(resp.Propstats))
	}

	var names []string
	for _, propstat := range resp.Propstats {
		for _, el := range propstat.Prop.Elements() {
			name, _ := el.XMLName()
			names = append(names, FormatName(name, true))
		}
	}
	want := []string{
		"{http://ns.example.com/boxschema/}bigbox",
		"{http://ns.example.com/boxschema/}author",
		"{http://ns.example.com/boxschema/}DingALing",
		"{http://ns.example.com/boxschema/}Random",
	}
	if strings.Join(names, " ") != strings.Join(want, " ") {
		t.Errorf("properties = %v, want %v", names, want)
	}
}

func TestParseMultistatus_responseStatus(t *testing.T) {
	ms, err := ParseMultistatus(strings.NewReader(exampleDeleteMultistatusStr))
	if err != nil {
		t.Fatalf("ParseMultistatus() = %v", err)
	}
	if len(ms.Responses) != 1 {
		t.Fatalf("len(Responses) = %v, want 1", len(ms.Responses))
	}

	resp := &ms.Responses[0]
	code, text, err := ParseStatusLine(resp.StatusLine())
	if err != nil {
		t.Fatalf("ParseStatusLine() = %v", err)
	}
	if code != 423 || text != "Locked" {
		t.Errorf("ParseStatusLine() = %v, %q, want 423, \"Locked\"", code, text)
	}
}

func TestParseMultistatus_charset(t *testing.T) {
	body := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<multistatus xmlns=\"DAV:\"><response><href>/caf\xe9</href>" +
		"<status>HTTP/1.1 200 OK</status></response></multistatus>"
	ms, err := ParseMultistatus(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseMultistatus() = %v", err)
	}
	if got, want := ms.Responses[0].Href(), "/café"; got != want {
		t.Errorf("Href() = %q, want %q", got, want)
	}
}

func TestParseMultistatus_malformed(t *testing.T) {
	for _, s := range []string{
		"",
		"not xml",
		"<multistatus xmlns=\"DAV:\"><response>",
	} {
		_, err := ParseMultistatus(strings.NewReader(s))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("ParseMultistatus(%q) = %v, want a *ParseError", s, err)
		}
	}
}

func TestParseStatusLine(t *testing.T) {
	tests := []struct {
		s    string
		code int
		text string
		err  bool
	}{
		{s: "HTTP/1.1 200 OK", code: 200, text: "OK"},
		{s: "HTTP/1.1 424 Failed Dependency", code: 424, text: "Failed Dependency"},
		{s: "  HTTP/1.0   404  ", code: 404},
		{s: "HTTP/1.1", err: true},
		{s: "", err: true},
		{s: "HTTP/1.1 abc OK", err: true},
	}

	for _, tc := range tests {
		code, text, err := ParseStatusLine(tc.s)
		if tc.err {
			if err == nil {
				t.Errorf("ParseStatusLine(%q) = %v, %q, want an error", tc.s, code, text)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatusLine(%q) = %v", tc.s, err)
		} else if code != tc.code || text != tc.text {
			t.Errorf("ParseStatusLine(%q) = %v, %q, want %v, %q", tc.s, code, text, tc.code, tc.text)
		}
	}
}

func TestHrefPath(t *testing.T) {
	for href, want := range map[string]string{
		"/dir/a.txt":                         "/dir/a.txt",
		" /my%20file.txt\n":                  "/my file.txt",
		"http://example.org/dav/caf%C3%A9/":  "/dav/café/",
		"https://example.org:8443/a%2Fb?q=1": "/a/b",
	} {
		got, err := HrefPath(href)
		if err != nil {
			t.Errorf("HrefPath(%q) = %v", href, err)
		} else if got != want {
			t.Errorf("HrefPath(%q) = %q, want %q", href, got, want)
		}
	}

	if _, err := HrefPath("/bad%zz"); err == nil {
		t.Errorf("HrefPath() with a broken escape succeeded")
	}
}
