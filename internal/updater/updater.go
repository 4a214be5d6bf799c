// Package updater points every item of a Zotero library at its permanent
// identifier URL, one page at a time.
//
// Pages are fetched and submitted strictly in sequence. Running them in
// parallel trips Zotero's abuse protection, so nothing here overlaps requests.
package updater

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"github.com/geoarchive/geoarchive/internal/permalink"
	"github.com/geoarchive/geoarchive/internal/zotero"
)

// DefaultItemType is the item type the archive workflow creates.
const DefaultItemType = "report"

// ErrNoCollection is returned by New when no collaborator is supplied.
var ErrNoCollection = errors.New("updater: no collection handle")

// Collaborator is the remote library the updater reads from and writes to.
type Collaborator interface {
	// ListItems returns the first page of items of the given type.
	ListItems(ctx context.Context, itemType string, pageSize int) ([]zotero.Item, error)

	// NextPage returns the page after the last one returned, with ok=false once
	// the listing is exhausted.
	NextPage(ctx context.Context) (page []zotero.Item, ok bool, err error)

	// SubmitUpdates writes one batch and reports whether it was accepted.
	SubmitUpdates(ctx context.Context, updates []zotero.UpdateRequest) (bool, error)
}

// Recorder receives the outcome of every submitted batch.
type Recorder interface {
	RecordBatch(ctx context.Context, page, items int, ok bool) error
}

// Result summarizes a run.
//
// Total counts every item that was part of a submitted batch, including
// batches the collaborator reported as failed. FailedBatches and FailedItems
// count the failed ones so Confirmed can give the accepted count.
type Result struct {
	Pages         int `json:"pages"`
	Total         int `json:"total"`
	FailedBatches int `json:"failed_batches"`
	FailedItems   int `json:"failed_items"`
}

// Confirmed returns the number of items in batches that were accepted.
func (r Result) Confirmed() int {
	return r.Total - r.FailedItems
}

// Updater runs the paginated derive-and-submit loop.
type Updater struct {
	col       Collaborator
	itemType  string
	pageSize  int
	libraryID string
	log       zerolog.Logger
	recorder  Recorder
}

// Option configures an Updater.
type Option func(*Updater)

// WithItemType sets the item type filter. Default is "report".
func WithItemType(t string) Option {
	return func(u *Updater) {
		u.itemType = t
	}
}

// WithPageSize sets the page size, clamped to [1, zotero.MaxPageSize].
func WithPageSize(n int) Option {
	return func(u *Updater) {
		u.pageSize = n
	}
}

// WithLibraryID sets the library used for items whose snapshot carries no
// library id.
func WithLibraryID(id string) Option {
	return func(u *Updater) {
		u.libraryID = id
	}
}

// WithLogger sets the progress logger.
func WithLogger(l zerolog.Logger) Option {
	return func(u *Updater) {
		u.log = l
	}
}

// WithRecorder records each batch outcome.
func WithRecorder(r Recorder) Option {
	return func(u *Updater) {
		u.recorder = r
	}
}

// New creates an updater over col.
func New(col Collaborator, opts ...Option) (*Updater, error) {
	if col == nil {
		return nil, ErrNoCollection
	}

	u := &Updater{
		col:      col,
		itemType: DefaultItemType,
		pageSize: zotero.MaxPageSize,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.pageSize = clampPageSize(u.pageSize)

	return u, nil
}

func clampPageSize(n int) int {
	if n < 1 || n > zotero.MaxPageSize {
		return zotero.MaxPageSize
	}
	return n
}

// Pages returns the listing as a lazy sequence. Iteration stops after the
// first error, which is yielded with a nil page. Ranging over the sequence
// again restarts the listing from the first page.
func Pages(ctx context.Context, col Collaborator, itemType string, pageSize int) iter.Seq2[[]zotero.Item, error] {
	return func(yield func([]zotero.Item, error) bool) {
		page, err := col.ListItems(ctx, itemType, clampPageSize(pageSize))
		if err != nil {
			yield(nil, err)
			return
		}

		for {
			if len(page) > 0 && !yield(page, nil) {
				return
			}

			var ok bool
			page, ok, err = col.NextPage(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
		}
	}
}

// Requests maps a page of items to url updates. Items keep the version they
// were read at.
func Requests(items []zotero.Item, fallbackLibraryID string) []zotero.UpdateRequest {
	reqs := make([]zotero.UpdateRequest, len(items))
	for i, it := range items {
		lib := fallbackLibraryID
		if it.Library.ID != 0 {
			lib = it.LibraryID()
		}
		reqs[i] = zotero.UpdateRequest{
			Key:     it.Key,
			Version: it.Version,
			URL:     permalink.ZoteroItem(lib, it.Key),
		}
	}
	return reqs
}

// Run updates every matching item. A fetch or submit error stops the run and
// is returned along with the counts accumulated so far. A batch the
// collaborator rejects is logged and counted but does not stop the run.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	var res Result

	for page, err := range Pages(ctx, u.col, u.itemType, u.pageSize) {
		if err != nil {
			return res, fmt.Errorf("fetching page %d: %w", res.Pages+1, err)
		}

		res.Pages++
		ok, err := u.col.SubmitUpdates(ctx, Requests(page, u.libraryID))
		if err != nil {
			return res, fmt.Errorf("submitting page %d: %w", res.Pages, err)
		}

		res.Total += len(page)
		if !ok {
			res.FailedBatches++
			res.FailedItems += len(page)
		}

		ev := u.log.Info()
		if !ok {
			ev = u.log.Warn()
		}
		ev.Int("page", res.Pages).
			Int("items", len(page)).
			Bool("ok", ok).
			Int("total", res.Total).
			Msg("submitted url batch")

		if u.recorder != nil {
			if err := u.recorder.RecordBatch(ctx, res.Pages, len(page), ok); err != nil {
				return res, fmt.Errorf("recording page %d: %w", res.Pages, err)
			}
		}
	}

	return res, nil
}
