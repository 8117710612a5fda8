package internal

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
)

func TestNewMultipartForm(t *testing.T) {
	body, contentType, err := NewMultipartForm(map[string]interface{}{
		"name":  "Jane",
		"file":  strings.NewReader("\x00\x01binary"),
		"count": 42,
	}, "")
	if err != nil {
		t.Fatalf("NewMultipartForm() = %v", err)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("mime.ParseMediaType(%q) = %v", contentType, err)
	}
	if mediaType != "multipart/form-data" {
		t.Errorf("media type = %q, want multipart/form-data", mediaType)
	}

	type part struct {
		name, contentType, value string
	}
	want := []part{
		{"count", "text/plain; charset=utf-8", "42"},
		{"file", "application/octet-stream", "\x00\x01binary"},
		{"name", "text/plain; charset=utf-8", "Jane"},
	}

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for i := 0; ; i++ {
		p, err := mr.NextPart()
		if err == io.EOF {
			if i != len(want) {
				t.Errorf("got %v parts, want %v", i, len(want))
			}
			break
		} else if err != nil {
			t.Fatalf("NextPart() = %v", err)
		}
		if i >= len(want) {
			t.Fatalf("unexpected part %q", p.FormName())
		}

		b, err := io.ReadAll(p)
		if err != nil {
			t.Fatalf("ReadAll() = %v", err)
		}
		got := part{p.FormName(), p.Header.Get("Content-Type"), string(b)}
		if got != want[i] {
			t.Errorf("part %v = %q, want %q", i, got, want[i])
		}
	}
}

func TestNewMultipartForm_charset(t *testing.T) {
	body, contentType, err := NewMultipartForm(map[string]interface{}{"q": "café"}, "iso-8859-1")
	if err != nil {
		t.Fatalf("NewMultipartForm() = %v", err)
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("mime.ParseMediaType(%q) = %v", contentType, err)
	}

	p, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).NextPart()
	if err != nil {
		t.Fatalf("NextPart() = %v", err)
	}
	if ct := p.Header.Get("Content-Type"); ct != "text/plain; charset=iso-8859-1" {
		t.Errorf("Content-Type = %q", ct)
	}
	b, err := io.ReadAll(p)
	if err != nil {
		t.Fatalf("ReadAll() = %v", err)
	}
	if want := []byte("caf\xe9"); !bytes.Equal(b, want) {
		t.Errorf("part = %q, want %q", b, want)
	}
}

func TestNewMultipartForm_unknownCharset(t *testing.T) {
	_, _, err := NewMultipartForm(map[string]interface{}{"q": "x"}, "no-such-charset")
	if !IsConfigError(err) {
		t.Errorf("NewMultipartForm() = %v, want a *ConfigError", err)
	}

	_, _, err = NewMultipartForm(map[string]interface{}{"q": "日本"}, "iso-8859-1")
	if !IsConfigError(err) {
		t.Errorf("NewMultipartForm() with unencodable text = %v, want a *ConfigError", err)
	}
}
