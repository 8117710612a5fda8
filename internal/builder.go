package internal

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strings"
	"unicode"
)

// ParseName resolves a property name. Names in Clark notation
// ("{urn:example}color") keep their namespace, bare names are in DAV:.
func ParseName(s string) xml.Name {
	if strings.HasPrefix(s, "{") {
		if i := strings.Index(s, "}"); i > 0 {
			return xml.Name{Space: s[1:i], Local: s[i+1:]}
		}
	}
	return xml.Name{Space: Namespace, Local: s}
}

// FormatName formats a name in Clark notation. With short set, DAV: names
// are returned without their namespace.
func FormatName(name xml.Name, short bool) string {
	if name.Space == "" || (short && name.Space == Namespace) {
		return name.Local
	}
	return "{" + name.Space + "}" + name.Local
}

// Owner is the content of a lock owner element: either plain text or an XML
// fragment.
type Owner struct {
	Text string
	XML  *RawXMLValue
}

// bodyWriter writes a request body token by token. The root element declares
// DAV: as default namespace so that bare names need no prefix.
type bodyWriter struct {
	op  string
	buf bytes.Buffer
	enc *xml.Encoder
	err error
}

func newBodyWriter(op string) *bodyWriter {
	w := &bodyWriter{op: op}
	w.buf.WriteString(xml.Header)
	w.enc = xml.NewEncoder(&w.buf)
	return w
}

func (w *bodyWriter) root(local string, namespaces map[string]string) {
	attr := []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: Namespace}}

	prefixes := make([]string, 0, len(namespaces))
	for prefix := range namespaces {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		if !isValidName(prefix) || strings.Contains(prefix, ":") {
			w.fail(configErrorf(w.op, "invalid namespace prefix %q", prefix))
			return
		}
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: namespaces[prefix]})
	}

	w.token(xml.StartElement{Name: xml.Name{Local: local}, Attr: attr})
}

func (w *bodyWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *bodyWriter) token(tok xml.Token) {
	if w.err != nil {
		return
	}
	if err := w.enc.EncodeToken(tok); err != nil {
		w.fail(err)
	}
}

func (w *bodyWriter) start(local string) {
	w.token(xml.StartElement{Name: xml.Name{Local: local}})
}

func (w *bodyWriter) end(local string) {
	w.token(xml.EndElement{Name: xml.Name{Local: local}})
}

func (w *bodyWriter) empty(local string) {
	w.start(local)
	w.end(local)
}

// prop writes a property element. Prefixed names ("foo:bar") are written
// as-is and rely on the root namespace declarations; names in Clark notation
// get an explicit default namespace.
func (w *bodyWriter) prop(name string, text *string) {
	if w.err != nil {
		return
	}

	var el xml.Name
	if strings.HasPrefix(name, "{") {
		el = ParseName(name)
		if el.Space == Namespace {
			el.Space = ""
		}
	} else {
		el = xml.Name{Local: name}
	}
	if !isValidName(el.Local) || (el.Space != "" && strings.Contains(el.Local, ":")) {
		w.fail(configErrorf(w.op, "invalid property name %q", name))
		return
	}

	w.token(xml.StartElement{Name: el})
	if text != nil {
		w.token(xml.CharData(*text))
	}
	w.token(xml.EndElement{Name: el})
}

func (w *bodyWriter) props(names []string) {
	for _, name := range names {
		w.prop(name, nil)
	}
}

func (w *bodyWriter) raw(val *RawXMLValue) {
	if w.err != nil {
		return
	}
	if val == nil {
		w.fail(configErrorf(w.op, "nil XML fragment"))
		return
	}
	if err := w.enc.Encode(val); err != nil {
		w.fail(err)
	}
}

func (w *bodyWriter) bytes() ([]byte, error) {
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

func isValidName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune(`<>&"'/=`, r) {
			return false
		}
	}
	return true
}

// NewPropfind builds a PROPFIND body. With names set a propname request is
// built, with props a prop request, otherwise an allprop request optionally
// followed by an include element.
//
// https://tools.ietf.org/html/rfc4918#section-14.20
func NewPropfind(names bool, props, include []string, namespaces map[string]string) ([]byte, error) {
	if len(props) > 0 && len(include) > 0 {
		return nil, configErrorf("propfind", "properties and include are mutually exclusive")
	}

	w := newBodyWriter("propfind")
	w.root("propfind", namespaces)
	switch {
	case names:
		w.empty("propname")
	case len(props) > 0:
		w.start("prop")
		w.props(props)
		w.end("prop")
	default:
		w.empty("allprop")
		// https://tools.ietf.org/html/rfc4918#section-14.8
		if len(include) > 0 {
			w.start("include")
			w.props(include)
			w.end("include")
		}
	}
	w.end("propfind")
	return w.bytes()
}

// NewProppatch builds a PROPPATCH body. Properties to set are written in name
// order.
//
// https://tools.ietf.org/html/rfc4918#section-14.19
func NewProppatch(set map[string]string, remove []string, namespaces map[string]string) ([]byte, error) {
	if len(set) == 0 && len(remove) == 0 {
		return nil, configErrorf("proppatch", "properties to set and/or remove must be given")
	}

	w := newBodyWriter("proppatch")
	w.root("propertyupdate", namespaces)
	if len(set) > 0 {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)

		w.start("set")
		w.start("prop")
		for _, name := range names {
			value := set[name]
			w.prop(name, &value)
		}
		w.end("prop")
		w.end("set")
	}
	if len(remove) > 0 {
		w.start("remove")
		w.start("prop")
		w.props(remove)
		w.end("prop")
		w.end("remove")
	}
	w.end("propertyupdate")
	return w.bytes()
}

// NewLock builds a LOCK body.
//
// https://tools.ietf.org/html/rfc4918#section-14.11
func NewLock(scope, lockType string, owner *Owner) ([]byte, error) {
	if scope != "exclusive" && scope != "shared" {
		return nil, configErrorf("lock", "scope must be either exclusive or shared, got %q", scope)
	}
	if !isValidName(lockType) {
		return nil, configErrorf("lock", "invalid lock type %q", lockType)
	}

	w := newBodyWriter("lock")
	w.root("lockinfo", nil)
	w.start("lockscope")
	w.empty(scope)
	w.end("lockscope")
	w.start("locktype")
	w.empty(lockType)
	w.end("locktype")
	if owner != nil {
		content := NewRawXMLText(owner.Text)
		if owner.XML != nil {
			content = owner.XML
		}
		w.raw(NewRawXMLElement(xml.Name{Local: "owner"}, nil, []RawXMLValue{*content}))
	}
	w.end("lockinfo")
	return w.bytes()
}

// NewReport builds a DAV:version-tree REPORT body. Extra elements are
// appended after the prop element.
//
// https://tools.ietf.org/html/rfc3253#section-3.7
func NewReport(props []string, elements []*RawXMLValue, namespaces map[string]string) ([]byte, error) {
	w := newBodyWriter("report")
	w.root("version-tree", namespaces)
	if len(props) > 0 {
		w.start("prop")
		w.props(props)
		w.end("prop")
	}
	for _, el := range elements {
		w.raw(el)
	}
	w.end("version-tree")
	return w.bytes()
}
