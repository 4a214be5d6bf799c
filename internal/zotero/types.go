// Package zotero provides a client for the Zotero Web API (v3).
package zotero

import (
	"strconv"
)

// MaxPageSize is the largest number of items Zotero returns per page and
// accepts per multi-object write.
const MaxPageSize = 50

// Library identifies the library an item belongs to.
type Library struct {
	Type string `json:"type"` // group or user
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Item is a Zotero item as returned with format=json.
type Item struct {
	Key     string         `json:"key"`
	Version int            `json:"version"`
	Library Library        `json:"library"`
	Data    map[string]any `json:"data"`
}

// LibraryID returns the owning library's identifier as a string.
func (i Item) LibraryID() string {
	return strconv.FormatInt(i.Library.ID, 10)
}

// ItemType returns data.itemType.
func (i Item) ItemType() string {
	return i.stringField("itemType")
}

// Title returns data.title.
func (i Item) Title() string {
	return i.stringField("title")
}

// URL returns data.url.
func (i Item) URL() string {
	return i.stringField("url")
}

func (i Item) stringField(name string) string {
	if i.Data == nil {
		return ""
	}
	s, _ := i.Data[name].(string)
	return s
}

// UpdateRequest sets the url field of one item. Version must be the version
// the item had when it was read; Zotero rejects the write otherwise.
type UpdateRequest struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	URL     string `json:"url"`
}

// FailedWrite describes one object Zotero refused in a multi-object write.
type FailedWrite struct {
	Key     string `json:"key,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteResult is the response to a multi-object write. Maps are keyed by the
// object's index in the request.
type WriteResult struct {
	Successful map[string]Item        `json:"successful"`
	Success    map[string]string      `json:"success"`
	Unchanged  map[string]string      `json:"unchanged"`
	Failed     map[string]FailedWrite `json:"failed"`
}

// OK reports whether every object in the write was accepted.
func (r *WriteResult) OK() bool {
	return r != nil && len(r.Failed) == 0
}
