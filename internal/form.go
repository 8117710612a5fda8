package internal

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"sort"

	"golang.org/x/net/html/charset"
)

// NewMultipartForm encodes fields as multipart/form-data. Values implementing
// io.Reader are sent as application/octet-stream, everything else as text
// encoded in the charset with the given label. Fields are written in name
// order.
//
// https://tools.ietf.org/html/rfc2388
func NewMultipartForm(fields map[string]interface{}, label string) (body []byte, contentType string, err error) {
	if label == "" {
		label = "utf-8"
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, "", configErrorf("form", "unknown charset %q", label)
	}
	textType := mime.FormatMediaType("text/plain", map[string]string{"charset": label})

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": name}))

		var r io.Reader
		switch v := fields[name].(type) {
		case io.Reader:
			h.Set("Content-Type", "application/octet-stream")
			r = v
		default:
			s, ok := v.(string)
			if !ok {
				s = fmt.Sprint(v)
			}
			encoded, err := enc.NewEncoder().String(s)
			if err != nil {
				return nil, "", configErrorf("form", "field %q cannot be encoded as %v: %v", name, label, err)
			}
			h.Set("Content-Type", textType)
			r = bytes.NewReader([]byte(encoded))
		}

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, r); err != nil {
			return nil, "", fmt.Errorf("tinydav: failed to read form field %q: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
