package zotero

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
)

// ErrNotListing is returned by Collection.NextPage before ListItems was called.
var ErrNotListing = errors.New("no item listing in progress")

// Collection adapts a Client to the page-at-a-time contract used by the batch
// URL updater. Each ListItems call restarts the listing from the first page.
type Collection struct {
	client *Client
	pager  *Pager
	log    zerolog.Logger

	// LastWrite holds the response to the most recent SubmitUpdates call.
	LastWrite *WriteResult
}

// NewCollection wraps a client. Objects Zotero refuses are logged to log at
// warn level.
func NewCollection(c *Client, log zerolog.Logger) *Collection {
	return &Collection{client: c, log: log}
}

// LibraryID returns the library the collection belongs to.
func (c *Collection) LibraryID() string {
	return c.client.LibraryID()
}

// ListItems fetches the first page of items of the given type.
func (c *Collection) ListItems(ctx context.Context, itemType string, pageSize int) ([]Item, error) {
	p, err := c.client.Items(ctx, itemType, pageSize)
	if err != nil {
		return nil, err
	}
	c.pager = p
	return p.Page(), nil
}

// NextPage fetches the page after the last one returned.
func (c *Collection) NextPage(ctx context.Context) ([]Item, bool, error) {
	if c.pager == nil {
		return nil, false, ErrNotListing
	}
	return c.pager.Next(ctx)
}

// SubmitUpdates writes one batch and reports whether Zotero accepted every
// object in it. Per-object failures are logged and kept in LastWrite.
func (c *Collection) SubmitUpdates(ctx context.Context, updates []UpdateRequest) (bool, error) {
	res, err := c.client.UpdateItems(ctx, updates)
	if err != nil {
		return false, err
	}
	c.LastWrite = res
	if !res.OK() {
		c.logFailures(updates)
	}
	return res.OK(), nil
}

// logFailures logs every object LastWrite reports as failed, in request order.
func (c *Collection) logFailures(updates []UpdateRequest) {
	indexes := make([]string, 0, len(c.LastWrite.Failed))
	for idx := range c.LastWrite.Failed {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool {
		if len(indexes[i]) != len(indexes[j]) {
			return len(indexes[i]) < len(indexes[j])
		}
		return indexes[i] < indexes[j]
	})

	for _, idx := range indexes {
		f := c.LastWrite.Failed[idx]
		key := f.Key
		if key == "" {
			if i, err := strconv.Atoi(idx); err == nil && i >= 0 && i < len(updates) {
				key = updates[i].Key
			}
		}
		c.log.Warn().
			Str("index", idx).
			Str("key", key).
			Int("code", f.Code).
			Str("message", f.Message).
			Msg("Zotero refused item update")
	}
}
