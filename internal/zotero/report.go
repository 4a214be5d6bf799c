package zotero

import (
	"context"
	"fmt"
	"strings"

	"github.com/geoarchive/geoarchive/internal/permalink"
	"github.com/geoarchive/geoarchive/internal/schemaorg"
)

// ReportFromSchema builds the data object for a Zotero "report" item from a
// schema.org document. Places become location:<name> tags and every subject
// becomes a <additionalType>:<name> tag.
func ReportFromSchema(doc *schemaorg.CreativeWork) map[string]any {
	tags := make([]map[string]string, 0, len(doc.SpatialCoverage)+len(doc.About))
	for _, place := range doc.SpatialCoverage {
		tags = append(tags, map[string]string{"tag": "location:" + place.Name})
	}
	for _, about := range doc.About {
		tags = append(tags, map[string]string{"tag": about.AdditionalType + ":" + about.Name})
	}

	archiveLocation := ""
	if id, ok := doc.IdentifierByName(schemaorg.IDScienceBaseItem); ok {
		archiveLocation = id.URL
	}

	item := map[string]any{
		"itemType":        "report",
		"title":           doc.Name,
		"reportType":      doc.AdditionalType,
		"date":            publicationYear(doc.DatePublished),
		"language":        "en",
		"archive":         "ScienceBase",
		"archiveLocation": archiveLocation,
		"tags":            tags,
	}
	if doc.NumberOfPages > 0 {
		item["pages"] = doc.NumberOfPages
	}
	return item
}

// publicationYear returns the leading four-digit year of an ISO date.
func publicationYear(iso string) string {
	iso = strings.TrimSpace(iso)
	if len(iso) < 4 {
		return ""
	}
	for _, r := range iso[:4] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return iso[:4]
}

// CreateReport creates a report item for doc and then points the item's url
// at its permanent identifier. The returned item carries the final url and
// version.
func (c *Client) CreateReport(ctx context.Context, doc *schemaorg.CreativeWork) (*Item, error) {
	res, err := c.CreateItems(ctx, []map[string]any{ReportFromSchema(doc)})
	if err != nil {
		return nil, fmt.Errorf("creating report item: %w", err)
	}
	if f, ok := res.Failed["0"]; ok {
		return nil, &APIError{StatusCode: f.Code, Message: f.Message, Key: f.Key}
	}
	created, ok := res.Successful["0"]
	if !ok || created.Key == "" {
		return nil, fmt.Errorf("%w: create response has no successful item", ErrInvalidResponse)
	}

	link := permalink.ZoteroItem(c.libraryID, created.Key)
	version, err := c.UpdateItem(ctx, created.Key, created.Version, map[string]any{"url": link})
	if err != nil {
		return nil, fmt.Errorf("setting report url: %w", err)
	}

	if created.Data == nil {
		created.Data = map[string]any{}
	}
	created.Data["url"] = link
	created.Version = version
	return &created, nil
}
