package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/geoarchive/geoarchive/internal/zotero"
)

// stubCollection serves fixed pages and records every submitted batch.
type stubCollection struct {
	pages     [][]zotero.Item
	next      int
	listCalls int

	// failSubmit lists 1-based submit calls that report ok=false.
	failSubmit map[int]bool
	// errSubmit lists 1-based submit calls that return an error.
	errSubmit map[int]error
	// errNext makes the n-th NextPage call (1-based) fail.
	errNext map[int]error
	nextCalls int

	submitted [][]zotero.UpdateRequest
	gotType   string
	gotSize   int
}

func (s *stubCollection) ListItems(ctx context.Context, itemType string, pageSize int) ([]zotero.Item, error) {
	s.listCalls++
	s.gotType = itemType
	s.gotSize = pageSize
	s.next = 1
	if len(s.pages) == 0 {
		return nil, nil
	}
	return s.pages[0], nil
}

func (s *stubCollection) NextPage(ctx context.Context) ([]zotero.Item, bool, error) {
	s.nextCalls++
	if err := s.errNext[s.nextCalls]; err != nil {
		return nil, false, err
	}
	if s.next >= len(s.pages) {
		return nil, false, nil
	}
	p := s.pages[s.next]
	s.next++
	return p, true, nil
}

func (s *stubCollection) SubmitUpdates(ctx context.Context, updates []zotero.UpdateRequest) (bool, error) {
	s.submitted = append(s.submitted, updates)
	n := len(s.submitted)
	if err := s.errSubmit[n]; err != nil {
		return false, err
	}
	return !s.failSubmit[n], nil
}

func (s *stubCollection) submittedSizes() []int {
	sizes := make([]int, len(s.submitted))
	for i, b := range s.submitted {
		sizes[i] = len(b)
	}
	return sizes
}

// pagesOf builds pages of the given sizes with unique keys.
func pagesOf(sizes ...int) [][]zotero.Item {
	var pages [][]zotero.Item
	n := 0
	for _, size := range sizes {
		page := make([]zotero.Item, size)
		for i := range page {
			page[i] = zotero.Item{
				Key:     fmt.Sprintf("KEY%04d", n),
				Version: n + 1,
				Library: zotero.Library{Type: "group", ID: 4530692},
			}
			n++
		}
		pages = append(pages, page)
	}
	return pages
}

func TestRun_ThreePages(t *testing.T) {
	col := &stubCollection{pages: pagesOf(50, 50, 12)}
	u, err := New(col)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := u.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := fmt.Sprint(col.submittedSizes()); got != "[50 50 12]" {
		t.Errorf("submitted batch sizes = %s, want [50 50 12]", got)
	}
	if res.Total != 112 || res.Pages != 3 {
		t.Errorf("Result = %+v, want Total 112 over 3 pages", res)
	}
	if res.FailedBatches != 0 || res.Confirmed() != 112 {
		t.Errorf("Result = %+v, want no failures", res)
	}
	if col.gotType != "report" || col.gotSize != 50 {
		t.Errorf("ListItems(%q, %d), want (report, 50)", col.gotType, col.gotSize)
	}
}

func TestRun_RequestsCarryKeyVersionAndURL(t *testing.T) {
	col := &stubCollection{pages: pagesOf(2, 1)}
	u, _ := New(col)

	if _, err := u.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var all []zotero.UpdateRequest
	for _, b := range col.submitted {
		all = append(all, b...)
	}
	if len(all) != 3 {
		t.Fatalf("submitted %d requests, want 3", len(all))
	}
	for i, r := range all {
		wantKey := fmt.Sprintf("KEY%04d", i)
		if r.Key != wantKey || r.Version != i+1 {
			t.Errorf("request %d = %+v, want key %s version %d", i, r, wantKey, i+1)
		}
		if r.URL != "https://w3id.org/usgs/z/4530692/"+wantKey {
			t.Errorf("request %d url = %q", i, r.URL)
		}
	}
}

func TestRun_FailedBatchIsCountedAndRunContinues(t *testing.T) {
	col := &stubCollection{
		pages:      pagesOf(50, 50, 12),
		failSubmit: map[int]bool{2: true},
	}
	u, _ := New(col)

	res, err := u.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(col.submitted) != 3 {
		t.Fatalf("submit calls = %d, want 3", len(col.submitted))
	}
	if res.Total != 112 {
		t.Errorf("Total = %d, want 112 (failed batch included)", res.Total)
	}
	if res.FailedBatches != 1 || res.FailedItems != 50 {
		t.Errorf("FailedBatches = %d, FailedItems = %d, want 1, 50", res.FailedBatches, res.FailedItems)
	}
	if res.Confirmed() != 62 {
		t.Errorf("Confirmed() = %d, want 62", res.Confirmed())
	}
}

func TestRun_NoItems(t *testing.T) {
	col := &stubCollection{}
	u, _ := New(col)

	res, err := u.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(col.submitted) != 0 {
		t.Errorf("submit calls = %d, want 0", len(col.submitted))
	}
	if res.Total != 0 || res.Pages != 0 {
		t.Errorf("Result = %+v, want zero", res)
	}
}

func TestRun_SubmitErrorStopsRun(t *testing.T) {
	boom := errors.New("connection reset")
	col := &stubCollection{
		pages:     pagesOf(50, 50, 12),
		errSubmit: map[int]error{2: boom},
	}
	u, _ := New(col)

	res, err := u.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if len(col.submitted) != 2 {
		t.Errorf("submit calls = %d, want 2", len(col.submitted))
	}
	if res.Total != 50 {
		t.Errorf("partial Total = %d, want 50", res.Total)
	}
	if col.nextCalls != 1 {
		t.Errorf("NextPage calls = %d, want 1 (no fetch after failure)", col.nextCalls)
	}
}

func TestRun_FetchErrorStopsRun(t *testing.T) {
	boom := errors.New("timeout")
	col := &stubCollection{
		pages:   pagesOf(50, 50, 12),
		errNext: map[int]error{2: boom},
	}
	u, _ := New(col)

	res, err := u.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if res.Total != 100 || len(col.submitted) != 2 {
		t.Errorf("Total = %d after %d submits, want 100 after 2", res.Total, len(col.submitted))
	}
}

func TestNew_NilCollection(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoCollection) {
		t.Errorf("New(nil) error = %v, want ErrNoCollection", err)
	}
}

func TestNew_PageSizeClamped(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 50}, {-3, 50}, {51, 50}, {1, 1}, {25, 25}, {50, 50},
	}
	for _, tt := range tests {
		col := &stubCollection{}
		u, _ := New(col, WithPageSize(tt.in), WithItemType("journalArticle"))
		if _, err := u.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if col.gotSize != tt.want {
			t.Errorf("page size %d requested as %d, want %d", tt.in, col.gotSize, tt.want)
		}
		if col.gotType != "journalArticle" {
			t.Errorf("item type = %q", col.gotType)
		}
	}
}

func TestPages_RestartsOnEachRange(t *testing.T) {
	col := &stubCollection{pages: pagesOf(3, 2)}
	seq := Pages(context.Background(), col, "report", 50)

	for range 2 {
		count := 0
		for page, err := range seq {
			if err != nil {
				t.Fatalf("Pages() error = %v", err)
			}
			count += len(page)
		}
		if count != 5 {
			t.Errorf("items = %d, want 5", count)
		}
	}
	if col.listCalls != 2 {
		t.Errorf("ListItems calls = %d, want 2", col.listCalls)
	}
}

func TestPages_EarlyBreak(t *testing.T) {
	col := &stubCollection{pages: pagesOf(1, 1, 1)}
	for range Pages(context.Background(), col, "report", 50) {
		break
	}
	if col.nextCalls != 0 {
		t.Errorf("NextPage calls = %d after break, want 0", col.nextCalls)
	}
}

func TestRequests_FallbackLibrary(t *testing.T) {
	items := []zotero.Item{{Key: "ABC123", Version: 4}}
	reqs := Requests(items, "4530692")
	if reqs[0].URL != "https://w3id.org/usgs/z/4530692/ABC123" {
		t.Errorf("URL = %q", reqs[0].URL)
	}
}

type recordedBatch struct {
	page, items int
	ok          bool
}

type memRecorder struct {
	batches []recordedBatch
}

func (m *memRecorder) RecordBatch(ctx context.Context, page, items int, ok bool) error {
	m.batches = append(m.batches, recordedBatch{page, items, ok})
	return nil
}

func TestRun_RecorderAndLogging(t *testing.T) {
	var buf bytes.Buffer
	rec := &memRecorder{}
	col := &stubCollection{pages: pagesOf(2, 1), failSubmit: map[int]bool{1: true}}

	u, _ := New(col, WithRecorder(rec), WithLogger(zerolog.New(&buf)))
	if _, err := u.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []recordedBatch{{1, 2, false}, {2, 1, true}}
	if fmt.Sprint(rec.batches) != fmt.Sprint(want) {
		t.Errorf("recorded %v, want %v", rec.batches, want)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("logged %d lines, want 2: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"warn"`) || !strings.Contains(lines[0], `"ok":false`) {
		t.Errorf("first line = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"total":3`) {
		t.Errorf("second line = %s", lines[1])
	}
}
