// Package sciencebase provides a client for the ScienceBase catalog API.
package sciencebase

import "strings"

// Item is a ScienceBase catalog item. Only the fields the archive workflow
// reads or writes are modeled.
type Item struct {
	ID          string       `json:"id,omitempty"`
	ParentID    string       `json:"parentId,omitempty"`
	Title       string       `json:"title,omitempty"`
	Files       []File       `json:"files,omitempty"`
	WebLinks    []WebLink    `json:"webLinks,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
}

// File is a file attached to an item.
type File struct {
	Name        string   `json:"name"`
	URL         string   `json:"url,omitempty"`
	Size        int64    `json:"size,omitempty"`
	ContentType string   `json:"contentType,omitempty"`
	Checksum    Checksum `json:"checksum,omitempty"`
}

// Checksum is the digest ScienceBase records for an uploaded file.
type Checksum struct {
	Value string `json:"value,omitempty"`
	Type  string `json:"type,omitempty"`
}

// WebLink is a link shown on the item's landing page.
type WebLink struct {
	Type      string `json:"type"`
	TypeLabel string `json:"typeLabel,omitempty"`
	URI       string `json:"uri"`
	Title     string `json:"title,omitempty"`
	Hidden    bool   `json:"hidden"`
}

// Identifier is an external identifier recorded on an item.
type Identifier struct {
	Type   string `json:"type"`
	Scheme string `json:"scheme,omitempty"`
	Key    string `json:"key"`
}

// FileID returns the storage identifier at the end of a file download URL,
// e.g. the last %2F-separated segment of ...?f=__disk__ab%2Fcd%2F<id>.
func FileID(fileURL string) string {
	if i := strings.LastIndex(fileURL, "%2F"); i >= 0 {
		return fileURL[i+len("%2F"):]
	}
	if i := strings.LastIndex(fileURL, "/"); i >= 0 {
		return fileURL[i+1:]
	}
	return fileURL
}

// FileByMD5 returns the item's file with the given md5 checksum, or nil.
func (it *Item) FileByMD5(md5sum string) *File {
	for i := range it.Files {
		if strings.EqualFold(it.Files[i].Checksum.Value, md5sum) {
			return &it.Files[i]
		}
	}
	return nil
}
