// Package tinydav provides a small WebDAV client.
//
// WebDAV is defined in RFC 4918, the version-tree report in RFC 3253.
package tinydav

import (
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

type FileInfo struct {
	Path     string
	Size     int64
	ModTime  time.Time
	IsDir    bool
	MIMEType string
	ETag     string
}

type fileInfo struct {
	FileInfo
}

var (
	_ fs.FileInfo = (*fileInfo)(nil)
	_ fs.DirEntry = (*fileInfo)(nil)
)

func (fi *fileInfo) Name() string {
	return path.Base(fi.Path)
}

func (fi *fileInfo) Size() int64 {
	return fi.FileInfo.Size
}

func (fi *fileInfo) Mode() fs.FileMode {
	var mode fs.FileMode
	if fi.FileInfo.IsDir {
		mode |= fs.ModeDir
	}
	return mode
}

func (fi *fileInfo) ModTime() time.Time {
	return fi.FileInfo.ModTime
}

func (fi *fileInfo) IsDir() bool {
	return fi.FileInfo.IsDir
}

func (fi *fileInfo) Sys() interface{} {
	return &fi.FileInfo
}

func (fi *fileInfo) Type() fs.FileMode {
	return fi.Mode()
}

func (fi *fileInfo) Info() (fs.FileInfo, error) {
	return fi, nil
}

// FileInfo maps the live properties of the entry to a file description.
// Missing properties are left zero. Sys returns the *FileInfo.
func (e *Entry) FileInfo() (fs.FileInfo, error) {
	p, err := e.Path()
	if err != nil {
		return nil, err
	}
	fi := FileInfo{Path: p}

	var rt resourceType
	if err := e.DecodeProp(ResourceTypeName, &rt); err == nil {
		fi.IsDir = rt.Is(CollectionName)
	} else if !IsNotFound(err) {
		return nil, err
	}
	if !fi.IsDir && strings.HasSuffix(fi.Path, "/") {
		fi.IsDir = true
	}

	if s := strings.TrimSpace(e.get(GetContentLengthName, "")); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("tinydav: invalid getcontentlength %q: %v", s, err)
		}
		fi.Size = n
	}
	if s := strings.TrimSpace(e.get(GetLastModifiedName, "")); s != "" {
		t, err := http.ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("tinydav: invalid getlastmodified %q: %v", s, err)
		}
		fi.ModTime = t
	}
	fi.MIMEType = strings.TrimSpace(e.get(GetContentTypeName, ""))
	fi.ETag = strings.TrimSpace(e.get(GetETagName, ""))

	return &fileInfo{fi}, nil
}
