package caldav

import (
	"encoding/xml"
)

const namespace = "urn:ietf:params:xml:ns:caldav"

var (
	calendarHomeSetName = xml.Name{Space: namespace, Local: "calendar-home-set"}

	calendarName            = xml.Name{Space: namespace, Local: "calendar"}
	calendarDescriptionName = xml.Name{Space: namespace, Local: "calendar-description"}
	maxResourceSizeName     = xml.Name{Space: namespace, Local: "max-resource-size"}

	// CalendarDataName is the calendar-data property returned by calendar
	// REPORTs and PROPFIND.
	CalendarDataName = xml.Name{Space: namespace, Local: "calendar-data"}
)

func clark(name xml.Name) string {
	return "{" + name.Space + "}" + name.Local
}

// https://tools.ietf.org/html/rfc4791#section-6.2.1
type calendarHomeSet struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:caldav calendar-home-set"`
	Href    string   `xml:"DAV: href"`
}

// https://tools.ietf.org/html/rfc4791#section-5.2.5
type maxResourceSize struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:caldav max-resource-size"`
	Size    int64    `xml:",chardata"`
}
