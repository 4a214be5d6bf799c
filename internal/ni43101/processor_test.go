package ni43101

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/geoarchive/geoarchive/internal/geokb"
	"github.com/geoarchive/geoarchive/internal/pagetext"
	"github.com/geoarchive/geoarchive/internal/permalink"
	"github.com/geoarchive/geoarchive/internal/schemaorg"
	"github.com/geoarchive/geoarchive/internal/sciencebase"
	"github.com/geoarchive/geoarchive/internal/textmine"
	"github.com/geoarchive/geoarchive/internal/zotero"
)

const (
	testFileName = `000012345 Acme Mining Corp (formerly "Acme Gold Ltd") / Acme Mining Corp (Vancouver) / 03619254 2023-05-01 Technical Report`
	testFileURL  = "https://www.sciencebase.gov/catalog/file/get/dropbox?f=__disk__ab%2Fcd%2Ff00d"
)

// stubScienceBase keeps uploads in memory and checksums uploaded files the
// way ScienceBase does.
type stubScienceBase struct {
	dropbox   *sciencebase.Item
	badChecks bool
	downloads int
	shell     *sciencebase.Item
	uploaded  []string
	replaced  []*schemaorg.CreativeWork
	updated   *sciencebase.Item
	item      *sciencebase.Item
	upsertErr error
}

func (s *stubScienceBase) GetItem(ctx context.Context, id string) (*sciencebase.Item, error) {
	if s.dropbox == nil || s.dropbox.ID != id {
		return nil, sciencebase.ErrNotFound
	}
	return s.dropbox, nil
}

func (s *stubScienceBase) DownloadFile(ctx context.Context, fileURL, dest, name string) (string, error) {
	s.downloads++
	path := filepath.Join(dest, name)
	return path, os.WriteFile(path, []byte("%PDF-1.4 fake report"), 0o644)
}

func (s *stubScienceBase) UpsertItem(ctx context.Context, item *sciencebase.Item, paths []string) (*sciencebase.Item, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.shell = item
	out := &sciencebase.Item{ID: "new1", ParentID: item.ParentID, Title: item.Title, Identifiers: item.Identifiers}
	for _, p := range paths {
		sum, err := textmine.Checksum(p, textmine.MD5)
		if err != nil {
			return nil, err
		}
		if s.badChecks {
			sum = "0000"
		}
		name := filepath.Base(p)
		s.uploaded = append(s.uploaded, name)
		out.Files = append(out.Files, sciencebase.File{
			Name:     name,
			URL:      "https://www.sciencebase.gov/catalog/file/get/new1?f=__disk__11%2F22%2F" + name,
			Checksum: sciencebase.Checksum{Value: sum, Type: "MD5"},
		})
	}
	s.item = out
	return out, nil
}

func (s *stubScienceBase) ReplaceFile(ctx context.Context, item *sciencebase.Item, path string) (*sciencebase.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc schemaorg.CreativeWork
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	s.replaced = append(s.replaced, &doc)
	return item, nil
}

func (s *stubScienceBase) UpdateItem(ctx context.Context, item *sciencebase.Item) (*sciencebase.Item, error) {
	s.updated = item
	return item, nil
}

type stubReporter struct {
	docs []*schemaorg.CreativeWork
}

func (r *stubReporter) CreateReport(ctx context.Context, doc *schemaorg.CreativeWork) (*zotero.Item, error) {
	r.docs = append(r.docs, doc)
	return &zotero.Item{
		Key:     "ZKEY0001",
		Library: zotero.Library{Type: "group", ID: 4530692},
		Data:    map[string]any{"url": permalink.ZoteroItem("4530692", "ZKEY0001")},
	}, nil
}

// repeat returns term n times separated by spaces.
func repeat(term string, n int) string {
	return strings.Repeat(term+" ", n)
}

// testRef has one dominant place and commodity among ten of each.
func testRef() *geokb.Ref {
	ref := &geokb.Ref{
		Places:      map[string]string{"Nevada": "https://geokb.wikibase.cloud/entity/Q10"},
		Commodities: map[string]string{"gold": "https://geokb.wikibase.cloud/entity/Q1"},
	}
	for i := range 9 {
		ref.Places[fmt.Sprintf("Place%d", i)] = fmt.Sprintf("https://geokb.wikibase.cloud/entity/Q2%d", i)
		ref.Commodities[fmt.Sprintf("metal%d", i)] = fmt.Sprintf("https://geokb.wikibase.cloud/entity/Q3%d", i)
	}
	return ref
}

// seedCache writes the page text a previous run would have left behind so
// processing does not need a real PDF.
func seedCache(t *testing.T, dir string) {
	t.Helper()
	var others strings.Builder
	for i := range 9 {
		fmt.Fprintf(&others, "Place%d metal%d ", i, i)
	}
	pages := []pagetext.Page{
		{PageNum: 1, Content: "NI 43-101 Technical Report\nEffective Date: March 1, 2023\nSigned 2022-12-15"},
		{PageNum: 2, Content: repeat("Nevada", 20) + repeat("Gold", 20) + others.String()},
	}
	if err := pagetext.WriteParquet(filepath.Join(dir, "f00d.parquet"), pages); err != nil {
		t.Fatal(err)
	}
}

func newTestDropbox() *sciencebase.Item {
	return &sciencebase.Item{
		ID:    "dropbox",
		Files: []sciencebase.File{{Name: testFileName, URL: testFileURL}},
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)

	sb := &stubScienceBase{dropbox: newTestDropbox()}
	rep := &stubReporter{}
	p := NewProcessor(sb, rep,
		WithRef(testRef()),
		WithCachePath(dir),
		WithDropboxItemID("dropbox"),
		WithArchiveItemID("archive"),
	)

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	res := results[0]

	wantURL := "https://w3id.org/usgs/z/4530692/ZKEY0001"
	if res.FilingID != "03619254" || res.ArchiveItemID != "new1" || res.ZoteroKey != "ZKEY0001" || res.URL != wantURL {
		t.Errorf("result = %+v", res)
	}
	if sb.downloads != 1 {
		t.Errorf("downloads = %d, want 1", sb.downloads)
	}

	// archive item shell
	if sb.shell.ParentID != "archive" || sb.shell.Title != "file archive for SEDAR+ filing ID: 03619254" {
		t.Errorf("shell = %+v", sb.shell)
	}
	if id := sb.shell.Identifiers[0]; id.Key != "03619254" || id.Scheme != SEDARFilingIDScheme {
		t.Errorf("shell identifier = %+v", id)
	}
	if got := strings.Join(sb.uploaded, ","); got != "03619254.pdf,03619254.parquet,03619254.json" {
		t.Errorf("uploaded = %s", got)
	}

	// document as last stored in ScienceBase
	if len(sb.replaced) != 2 {
		t.Fatalf("schema document replaced %d times, want 2", len(sb.replaced))
	}
	doc := sb.replaced[1]
	if doc.URL != wantURL {
		t.Errorf("doc url = %q", doc.URL)
	}
	wantName := "NI 43-101 Filing (Report) filed for Acme Mining Corp (effective date 2023-03-01T00:00:00)"
	if doc.Name != wantName {
		t.Errorf("doc name = %q, want %q", doc.Name, wantName)
	}
	if doc.NumberOfPages != 2 {
		t.Errorf("numberOfPages = %d", doc.NumberOfPages)
	}
	sbID, ok := doc.IdentifierByName(schemaorg.IDScienceBaseItem)
	if !ok || sbID.Value != "new1" || sbID.URL != "https://w3id.org/usgs/sb/new1" {
		t.Errorf("ScienceBase identifier = %+v, %v", sbID, ok)
	}
	for _, m := range doc.AssociatedMedia {
		if m.MD5 != "" || !strings.HasPrefix(m.URL, "https://www.sciencebase.gov/catalog/file/get/new1") {
			t.Errorf("media %q url = %q md5 = %q", m.Name, m.URL, m.MD5)
		}
	}
	if pdf := doc.MediaByType(schemaorg.MediaMainContent); pdf == nil || pdf.AlternateName != testFileName || pdf.Identifier.Value != "f00d" {
		t.Errorf("pdf media = %+v", pdf)
	}

	// linkages
	if len(doc.SpatialCoverage) != 1 || doc.SpatialCoverage[0].Name != "Nevada" {
		t.Errorf("spatialCoverage = %+v", doc.SpatialCoverage)
	}
	commodity := doc.AboutByType("commodity")
	if commodity == nil || commodity.Name != "gold" || commodity.Identifier.Value != "https://geokb.wikibase.cloud/entity/Q1" {
		t.Errorf("commodity = %+v", commodity)
	}
	company := doc.AboutByType("company")
	if company == nil || company.AlternateName != "Acme Gold Ltd" || company.Identifier.Value != "000012345" {
		t.Errorf("company = %+v", company)
	}

	// Zotero and web link
	if len(rep.docs) != 1 || rep.docs[0].Name != wantName {
		t.Errorf("reported docs = %d", len(rep.docs))
	}
	if sb.updated == nil || len(sb.updated.WebLinks) != 1 {
		t.Fatalf("updated item = %+v", sb.updated)
	}
	if wl := sb.updated.WebLinks[0]; wl.Type != "metadata URL" || wl.URI != wantURL || wl.Title != "Zotero metadata landing page" {
		t.Errorf("web link = %+v", wl)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache not cleaned: %d entries left", len(entries))
	}
}

func TestRun_WithoutRef(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)

	sb := &stubScienceBase{dropbox: newTestDropbox()}
	p := NewProcessor(sb, &stubReporter{}, WithCachePath(dir), WithDropboxItemID("dropbox"))

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	doc := results[0].Document
	if len(doc.SpatialCoverage) != 0 || doc.AboutByType("commodity") != nil {
		t.Errorf("linkages without ref: places %v about %v", doc.SpatialCoverage, doc.About)
	}
}

func TestRun_EmptyDropbox(t *testing.T) {
	sb := &stubScienceBase{dropbox: &sciencebase.Item{ID: "dropbox"}}
	p := NewProcessor(sb, &stubReporter{}, WithDropboxItemID("dropbox"))

	if _, err := p.Run(context.Background()); !errors.Is(err, ErrEmptyDropbox) {
		t.Errorf("Run() error = %v, want ErrEmptyDropbox", err)
	}
}

func TestRun_MissingDropbox(t *testing.T) {
	p := NewProcessor(&stubScienceBase{}, &stubReporter{}, WithDropboxItemID("nope"))

	if _, err := p.Run(context.Background()); !errors.Is(err, sciencebase.ErrNotFound) {
		t.Errorf("Run() error = %v, want ErrNotFound", err)
	}
}

func TestProcessFile_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)

	sb := &stubScienceBase{badChecks: true}
	rep := &stubReporter{}
	p := NewProcessor(sb, rep, WithCachePath(dir))

	_, err := p.ProcessFile(context.Background(), newTestDropbox().Files[0])
	if !errors.Is(err, ErrMediaNotUploaded) {
		t.Fatalf("ProcessFile() error = %v, want ErrMediaNotUploaded", err)
	}
	if len(rep.docs) != 0 {
		t.Error("Zotero report created after failed upload")
	}
}

func TestProcessFile_UploadErrorKeepsCache(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)

	boom := errors.New("upload refused")
	sb := &stubScienceBase{upsertErr: boom}
	p := NewProcessor(sb, &stubReporter{}, WithCachePath(dir))

	if _, err := p.ProcessFile(context.Background(), newTestDropbox().Files[0]); !errors.Is(err, boom) {
		t.Fatalf("ProcessFile() error = %v, want %v", err, boom)
	}
	if _, err := os.Stat(filepath.Join(dir, "03619254.pdf")); err != nil {
		t.Errorf("renamed pdf missing after failure: %v", err)
	}
}

func TestProcessFile_ResumesAfterUploadError(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)

	sb := &stubScienceBase{upsertErr: errors.New("upload refused")}
	p := NewProcessor(sb, &stubReporter{}, WithCachePath(dir))
	f := newTestDropbox().Files[0]

	if _, err := p.ProcessFile(context.Background(), f); err == nil {
		t.Fatal("first ProcessFile() succeeded with upload refused")
	}

	// The second pass must reuse the renamed files: the cached PDF is not a
	// real PDF, so re-extracting its text would fail.
	sb.upsertErr = nil
	res, err := p.ProcessFile(context.Background(), f)
	if err != nil {
		t.Fatalf("second ProcessFile() error = %v", err)
	}
	if sb.downloads != 1 {
		t.Errorf("downloads = %d, want 1", sb.downloads)
	}
	if res.Document.NumberOfPages != 2 {
		t.Errorf("numberOfPages = %d, want 2 from cached page text", res.Document.NumberOfPages)
	}
	if got := strings.Join(sb.uploaded, ","); got != "03619254.pdf,03619254.parquet,03619254.json" {
		t.Errorf("uploaded = %s", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache not cleaned: %d entries left", len(entries))
	}
}

func TestProcessFile_BadName(t *testing.T) {
	p := NewProcessor(&stubScienceBase{}, &stubReporter{}, WithCachePath(t.TempDir()))
	if _, err := p.ProcessFile(context.Background(), sciencebase.File{Name: "report.pdf"}); !errors.Is(err, ErrUnparseableName) {
		t.Errorf("ProcessFile() error = %v, want ErrUnparseableName", err)
	}
}

type failingQuerier struct{}

func (failingQuerier) Query(ctx context.Context, sparql string) ([]geokb.Binding, error) {
	return nil, errors.New("endpoint down")
}

func TestLoadRef_DegradesToNil(t *testing.T) {
	var buf bytes.Buffer
	if ref := LoadRef(context.Background(), failingQuerier{}, zerolog.New(&buf)); ref != nil {
		t.Errorf("LoadRef() = %+v, want nil", ref)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("no warning logged: %s", buf.String())
	}
}

func TestReportName_NoDate(t *testing.T) {
	doc := NewDocument("x", Filing{CompanyName: "Acme", FilingType: "Report"})
	if got := ReportName(doc); got != "NI 43-101 Filing (Report) filed for Acme" {
		t.Errorf("ReportName() = %q", got)
	}
}
