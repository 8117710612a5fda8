package carddav

import (
	"encoding/xml"
)

const namespace = "urn:ietf:params:xml:ns:carddav"

var (
	addressBookHomeSetName = xml.Name{Space: namespace, Local: "addressbook-home-set"}

	addressBookName            = xml.Name{Space: namespace, Local: "addressbook"}
	addressBookDescriptionName = xml.Name{Space: namespace, Local: "addressbook-description"}
	maxResourceSizeName        = xml.Name{Space: namespace, Local: "max-resource-size"}

	// AddressDataName is the address-data property returned by address book
	// REPORTs and PROPFIND.
	AddressDataName = xml.Name{Space: namespace, Local: "address-data"}
)

func clark(name xml.Name) string {
	return "{" + name.Space + "}" + name.Local
}

// https://tools.ietf.org/html/rfc6352#section-7.1.1
type addressbookHomeSet struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:carddav addressbook-home-set"`
	Href    string   `xml:"DAV: href"`
}

// https://tools.ietf.org/html/rfc6352#section-6.2.3
type maxResourceSize struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:carddav max-resource-size"`
	Size    int64    `xml:",chardata"`
}
