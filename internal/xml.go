package internal

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// RawXMLValue is a raw XML value. It implements xml.Unmarshaler and
// xml.Marshaler and can be used to delay XML decoding or to pass caller
// supplied markup through a request body.
type RawXMLValue struct {
	tok      xml.Token // guaranteed not to be xml.EndElement
	children []RawXMLValue
}

// NewRawXMLElement creates a new RawXMLValue for an element.
func NewRawXMLElement(name xml.Name, attr []xml.Attr, children []RawXMLValue) *RawXMLValue {
	return &RawXMLValue{tok: xml.StartElement{Name: name, Attr: attr}, children: children}
}

// NewRawXMLText creates a new RawXMLValue holding character data.
func NewRawXMLText(s string) *RawXMLValue {
	return &RawXMLValue{tok: xml.CharData(s)}
}

// ParseRawXML parses a single XML element. Namespace declarations are
// dropped since element and attribute names carry their resolved namespace.
func ParseRawXML(s string) (*RawXMLValue, error) {
	d := xml.NewDecoder(strings.NewReader(s))
	var val *RawXMLValue
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, configErrorf("xml", "malformed fragment: %v", err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if val != nil {
				return nil, configErrorf("xml", "fragment has more than one root element")
			}
			val = &RawXMLValue{}
			if err := val.UnmarshalXML(d, tok); err != nil {
				return nil, configErrorf("xml", "malformed fragment: %v", err)
			}
		case xml.CharData:
			if strings.TrimSpace(string(tok)) != "" {
				return nil, configErrorf("xml", "text outside of the fragment root element")
			}
		}
	}
	if val == nil {
		return nil, configErrorf("xml", "fragment has no element")
	}
	if err := checkPrefixes(s); err != nil {
		return nil, err
	}
	val.stripNamespaceDecls()
	return val, nil
}

// checkPrefixes makes sure every prefix used in s is declared in scope.
func checkPrefixes(s string) error {
	d := xml.NewDecoder(strings.NewReader(s))
	var scopes [][]string
	bound := func(prefix string) bool {
		switch prefix {
		case "", "xml", "xmlns":
			return true
		}
		for i := len(scopes) - 1; i >= 0; i-- {
			for _, p := range scopes[i] {
				if p == prefix {
					return true
				}
			}
		}
		return false
	}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return configErrorf("xml", "malformed fragment: %v", err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			var scope []string
			for _, a := range tok.Attr {
				if a.Name.Space == "xmlns" {
					scope = append(scope, a.Name.Local)
				}
			}
			scopes = append(scopes, scope)

			if !bound(tok.Name.Space) {
				return configErrorf("xml", "undeclared namespace prefix %q in <%v:%v>", tok.Name.Space, tok.Name.Space, tok.Name.Local)
			}
			for _, a := range tok.Attr {
				if !bound(a.Name.Space) {
					return configErrorf("xml", "undeclared namespace prefix %q in attribute %v:%v", a.Name.Space, a.Name.Space, a.Name.Local)
				}
			}
		case xml.EndElement:
			scopes = scopes[:len(scopes)-1]
		}
	}
}

func (val *RawXMLValue) stripNamespaceDecls() {
	if start, ok := val.tok.(xml.StartElement); ok {
		attr := start.Attr[:0:0]
		for _, a := range start.Attr {
			if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
				continue
			}
			attr = append(attr, a)
		}
		start.Attr = attr
		val.tok = start
	}
	for i := range val.children {
		val.children[i].stripNamespaceDecls()
	}
}

// UnmarshalXML implements xml.Unmarshaler.
func (val *RawXMLValue) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	val.tok = start.Copy()
	val.children = nil

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			child := RawXMLValue{}
			if err := child.UnmarshalXML(d, tok); err != nil {
				return err
			}
			val.children = append(val.children, child)
		case xml.EndElement:
			return nil
		default:
			val.children = append(val.children, RawXMLValue{tok: xml.CopyToken(tok)})
		}
	}
}

// MarshalXML implements xml.Marshaler.
func (val *RawXMLValue) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	switch tok := val.tok.(type) {
	case xml.StartElement:
		if err := e.EncodeToken(tok); err != nil {
			return err
		}
		for _, child := range val.children {
			// TODO: find a sensible value for the start argument?
			if err := child.MarshalXML(e, xml.StartElement{}); err != nil {
				return err
			}
		}
		return e.EncodeToken(tok.End())
	case xml.EndElement:
		panic("unexpected end element")
	case nil:
		return fmt.Errorf("tinydav: cannot marshal empty RawXMLValue")
	default:
		return e.EncodeToken(tok)
	}
}

var _ xml.Marshaler = (*RawXMLValue)(nil)
var _ xml.Unmarshaler = (*RawXMLValue)(nil)

// XMLName returns the element name, if the value is an element.
func (val *RawXMLValue) XMLName() (name xml.Name, ok bool) {
	if start, ok := val.tok.(xml.StartElement); ok {
		return start.Name, true
	}
	return xml.Name{}, false
}

// Elements returns the child elements, skipping character data, comments and
// other non-element tokens.
func (val *RawXMLValue) Elements() []*RawXMLValue {
	var l []*RawXMLValue
	for i := range val.children {
		if _, ok := val.children[i].tok.(xml.StartElement); ok {
			l = append(l, &val.children[i])
		}
	}
	return l
}

// Text returns the concatenated character data directly inside the element.
// Text nested in child elements is not included.
func (val *RawXMLValue) Text() string {
	if data, ok := val.tok.(xml.CharData); ok {
		return string(data)
	}
	var sb strings.Builder
	for _, child := range val.children {
		if data, ok := child.tok.(xml.CharData); ok {
			sb.Write(data)
		}
	}
	return sb.String()
}

// Decode decodes the element into v.
func (val *RawXMLValue) Decode(v interface{}) error {
	return xml.NewTokenDecoder(val.TokenReader()).Decode(v)
}

// TokenReader returns a stream of tokens for the XML value.
func (val *RawXMLValue) TokenReader() xml.TokenReader {
	return &rawXMLValueReader{val: val}
}

type rawXMLValueReader struct {
	val         *RawXMLValue
	start, end  bool
	child       int
	childReader xml.TokenReader
}

func (tr *rawXMLValueReader) Token() (xml.Token, error) {
	if tr.end {
		return nil, io.EOF
	}

	start, ok := tr.val.tok.(xml.StartElement)
	if !ok {
		tr.end = true
		return tr.val.tok, nil
	}

	if !tr.start {
		tr.start = true
		return start, nil
	}

	for tr.child < len(tr.val.children) {
		if tr.childReader == nil {
			tr.childReader = tr.val.children[tr.child].TokenReader()
		}

		tok, err := tr.childReader.Token()
		if err == io.EOF {
			tr.childReader = nil
			tr.child++
		} else {
			return tok, err
		}
	}

	tr.end = true
	return start.End(), nil
}
