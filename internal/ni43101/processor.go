package ni43101

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

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
	// SEDARFilingIDType is the ScienceBase identifier type for filing ids.
	SEDARFilingIDType = "SEDAR Filing ID"

	// SEDARFilingIDScheme is the ScienceBase vocabulary term for filing ids.
	SEDARFilingIDScheme = "https://www.sciencebase.gov/vocab/identifier/term/sedar-filing-id"
)

var (
	// ErrEmptyDropbox is returned when the dropbox item has no files.
	ErrEmptyDropbox = errors.New("no files found in the dropbox item")

	// ErrMediaNotUploaded is returned when an uploaded file cannot be matched
	// to its media object by checksum.
	ErrMediaNotUploaded = errors.New("no ScienceBase file matches media checksum")
)

// ScienceBase is the catalog the processor reads the dropbox from and writes
// archive items to.
type ScienceBase interface {
	GetItem(ctx context.Context, id string) (*sciencebase.Item, error)
	UpdateItem(ctx context.Context, item *sciencebase.Item) (*sciencebase.Item, error)
	UpsertItem(ctx context.Context, item *sciencebase.Item, paths []string) (*sciencebase.Item, error)
	ReplaceFile(ctx context.Context, item *sciencebase.Item, path string) (*sciencebase.Item, error)
	DownloadFile(ctx context.Context, fileURL, dest, name string) (string, error)
}

// Reporter creates the bibliographic record for a processed report.
type Reporter interface {
	CreateReport(ctx context.Context, doc *schemaorg.CreativeWork) (*zotero.Item, error)
}

// Result describes one archived report.
type Result struct {
	FilingID      string                  `json:"filing_id"`
	ArchiveItemID string                  `json:"archive_item_id"`
	ZoteroKey     string                  `json:"zotero_key"`
	URL           string                  `json:"url"`
	Document      *schemaorg.CreativeWork `json:"document"`
}

// Processor moves dropbox files into the archive.
type Processor struct {
	sb        ScienceBase
	reporter  Reporter
	ref       *geokb.Ref
	cachePath string
	dropboxID string
	archiveID string
	log       zerolog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithRef enables place and commodity linking.
func WithRef(ref *geokb.Ref) Option {
	return func(p *Processor) {
		p.ref = ref
	}
}

// WithCachePath sets the working directory for downloads.
func WithCachePath(path string) Option {
	return func(p *Processor) {
		p.cachePath = path
	}
}

// WithDropboxItemID sets the item holding files to process.
func WithDropboxItemID(id string) Option {
	return func(p *Processor) {
		p.dropboxID = id
	}
}

// WithArchiveItemID sets the parent of the archive items.
func WithArchiveItemID(id string) Option {
	return func(p *Processor) {
		p.archiveID = id
	}
}

// WithLogger sets the progress logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// NewProcessor creates a processor.
func NewProcessor(sb ScienceBase, reporter Reporter, opts ...Option) *Processor {
	p := &Processor{
		sb:        sb,
		reporter:  reporter,
		cachePath: os.TempDir(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadRef loads the GeoKB lookups. A failure is logged and yields nil, which
// leaves reports without place or commodity links.
func LoadRef(ctx context.Context, q geokb.Querier, log zerolog.Logger) *geokb.Ref {
	ref, err := geokb.LoadRef(ctx, q)
	if err != nil {
		log.Warn().Err(err).Msg("GeoKB unavailable, reports will not be linked")
		return nil
	}
	return ref
}

// Run processes every file in the dropbox, one at a time. It stops at the
// first failing file and returns the reports archived so far.
func (p *Processor) Run(ctx context.Context) ([]Result, error) {
	dropbox, err := p.sb.GetItem(ctx, p.dropboxID)
	if err != nil {
		return nil, fmt.Errorf("loading dropbox: %w", err)
	}
	if len(dropbox.Files) == 0 {
		return nil, ErrEmptyDropbox
	}

	var results []Result
	for _, f := range dropbox.Files {
		res, err := p.ProcessFile(ctx, f)
		if err != nil {
			return results, fmt.Errorf("processing %q: %w", f.Name, err)
		}
		p.log.Info().
			Str("filing", res.FilingID).
			Str("item", res.ArchiveItemID).
			Str("url", res.URL).
			Msg("archived report")
		results = append(results, *res)
	}
	return results, nil
}

// ProcessFile archives one dropbox file.
func (p *Processor) ProcessFile(ctx context.Context, f sciencebase.File) (*Result, error) {
	filing, err := ParseFilingName(f.Name)
	if err != nil {
		return nil, err
	}
	doc := NewDocument(f.Name, filing)
	fileID := sciencebase.FileID(f.URL)

	pdfPath, err := p.fetchPDF(ctx, f, fileID, filing.FilingID)
	if err != nil {
		return nil, err
	}
	pdfMedia, err := describeFile(pdfPath, schemaorg.MediaMainContent, fmt.Sprintf("PDF Content (%s)", fileID),
		encodingPDF, schemaorg.IDOriginalSBFile, fileID)
	if err != nil {
		return nil, err
	}
	pdfMedia.AlternateName = f.Name
	doc.AssociatedMedia = append(doc.AssociatedMedia, pdfMedia)

	pages, parquetPath, err := p.pageText(pdfPath, fileID, filing.FilingID, pdfMedia.SHA256)
	if err != nil {
		return nil, err
	}
	textMedia, err := describeFile(parquetPath, schemaorg.MediaExtractedText, fmt.Sprintf("Page Text Content (%s)", fileID),
		encodingParquet, schemaorg.IDScienceBaseSource, fileID)
	if err != nil {
		return nil, err
	}
	doc.AssociatedMedia = append(doc.AssociatedMedia, textMedia)
	doc.NumberOfPages = len(pages)

	if len(pages) > 0 {
		doc.DatePublished = textmine.ExtractDate(pages[0].Content)
	}
	if p.ref != nil {
		contents := pagetext.Contents(pages)
		AddPlaces(doc, contents, p.ref.Places)
		AddCommodities(doc, contents, p.ref.Commodities)
	}
	doc.Name = ReportName(doc)

	files, err := p.prepFiles(doc, filing.FilingID, pdfPath, parquetPath)
	if err != nil {
		return nil, err
	}

	item, err := p.archive(ctx, doc, filing.FilingID, files)
	if err != nil {
		return nil, err
	}

	report, err := p.reporter.CreateReport(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("creating Zotero report: %w", err)
	}
	doc.URL = report.URL()

	jsonPath := files[len(files)-1]
	if err := writeDocument(jsonPath, doc); err != nil {
		return nil, err
	}
	if item, err = p.sb.ReplaceFile(ctx, item, jsonPath); err != nil {
		return nil, fmt.Errorf("replacing schema document: %w", err)
	}

	item.WebLinks = []sciencebase.WebLink{{
		Type:      "metadata URL",
		TypeLabel: "metadata URL",
		URI:       doc.URL,
		Title:     "Zotero metadata landing page",
	}}
	if item, err = p.sb.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("linking archive item to Zotero: %w", err)
	}

	for _, path := range files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.log.Warn().Err(err).Str("path", path).Msg("removing cached file")
		}
	}

	return &Result{
		FilingID:      filing.FilingID,
		ArchiveItemID: item.ID,
		ZoteroKey:     report.Key,
		URL:           doc.URL,
		Document:      doc,
	}, nil
}

// cached returns the first of the named cache files that exists, or "".
// A run that fails after prepFiles leaves its files under the filing id.
func (p *Processor) cached(names ...string) string {
	for _, name := range names {
		path := filepath.Join(p.cachePath, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// fetchPDF downloads the dropbox file to the cache unless an earlier run
// already did.
func (p *Processor) fetchPDF(ctx context.Context, f sciencebase.File, fileID, filingID string) (string, error) {
	name := fileID + ".pdf"
	if path := p.cached(name, filingID+".pdf"); path != "" {
		return path, nil
	}
	path, err := p.sb.DownloadFile(ctx, f.URL, p.cachePath, name)
	if err != nil {
		return "", fmt.Errorf("downloading report: %w", err)
	}
	return path, nil
}

// pageText returns the page text of the PDF, reusing a cached parquet file.
func (p *Processor) pageText(pdfPath, fileID, filingID, sha256sum string) ([]pagetext.Page, string, error) {
	if path := p.cached(fileID+".parquet", filingID+".parquet"); path != "" {
		pages, err := pagetext.ReadParquet(path)
		return pages, path, err
	}
	path := filepath.Join(p.cachePath, fileID+".parquet")

	pages, err := pagetext.Extract(pdfPath, sha256sum)
	if err != nil {
		return nil, "", err
	}
	if err := pagetext.WriteParquet(path, pages); err != nil {
		return nil, "", err
	}
	return pages, path, nil
}

func describeFile(path, additionalType, name, encoding, idName, sourceID string) (schemaorg.MediaObject, error) {
	info, err := os.Stat(path)
	if err != nil {
		return schemaorg.MediaObject{}, fmt.Errorf("reading %s: %w", path, err)
	}
	md5sum, sha256sum, err := textmine.Checksums(path)
	if err != nil {
		return schemaorg.MediaObject{}, err
	}
	return mediaObject(additionalType, name, encoding, idName, sourceID, info.Size(), md5sum, sha256sum), nil
}

// prepFiles renames the cached files after the filing and writes the schema
// document next to them. The document path is last.
func (p *Processor) prepFiles(doc *schemaorg.CreativeWork, filingID, pdfPath, parquetPath string) ([]string, error) {
	var files []string
	for _, src := range []string{pdfPath, parquetPath} {
		dst := filepath.Join(p.cachePath, filingID+filepath.Ext(src))
		if src == dst {
			files = append(files, dst)
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return nil, fmt.Errorf("renaming %s: %w", src, err)
		}
		files = append(files, dst)
	}

	jsonPath := filepath.Join(p.cachePath, filingID+".json")
	if err := writeDocument(jsonPath, doc); err != nil {
		return nil, err
	}
	return append(files, jsonPath), nil
}

// archive creates the archive item with the report files, then records where
// each media object landed.
func (p *Processor) archive(ctx context.Context, doc *schemaorg.CreativeWork, filingID string, files []string) (*sciencebase.Item, error) {
	shell := &sciencebase.Item{
		ParentID: p.archiveID,
		Title:    "file archive for SEDAR+ filing ID: " + filingID,
		Identifiers: []sciencebase.Identifier{{
			Type:   SEDARFilingIDType,
			Scheme: SEDARFilingIDScheme,
			Key:    filingID,
		}},
	}

	item, err := p.sb.UpsertItem(ctx, shell, files)
	if err != nil {
		return nil, fmt.Errorf("creating archive item: %w", err)
	}

	doc.Identifier = append(doc.Identifier, schemaorg.PropertyValue{
		Type:  "PropertyValue",
		Name:  schemaorg.IDScienceBaseItem,
		Value: item.ID,
		URL:   permalink.ScienceBaseItem(item.ID),
	})

	for i := range doc.AssociatedMedia {
		media := &doc.AssociatedMedia[i]
		f := item.FileByMD5(media.MD5)
		if f == nil {
			return nil, fmt.Errorf("%w: %s", ErrMediaNotUploaded, media.Name)
		}
		media.URL = f.URL
		media.MD5 = ""
	}

	jsonPath := files[len(files)-1]
	if err := writeDocument(jsonPath, doc); err != nil {
		return nil, err
	}
	item, err = p.sb.ReplaceFile(ctx, item, jsonPath)
	if err != nil {
		return nil, fmt.Errorf("replacing schema document: %w", err)
	}
	return item, nil
}

func writeDocument(path string, doc *schemaorg.CreativeWork) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding schema document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
