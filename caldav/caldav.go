// Package caldav provides CalDAV helpers on top of the tinydav client.
//
// CalDAV is defined in RFC 4791.
package caldav

import (
	"time"

	"github.com/emersion/go-ical"
)

type Calendar struct {
	Path            string
	Name            string
	Description     string
	MaxResourceSize int64
}

type CalendarObject struct {
	Path    string
	ModTime time.Time
	ETag    string
	Data    *ical.Calendar
}
