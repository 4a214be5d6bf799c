package ni43101

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/geoarchive/geoarchive/internal/schemaorg"
	"github.com/geoarchive/geoarchive/internal/textmine"
)

const (
	// Abstract describes every report in the collection.
	Abstract = "an NI 43-101 Technical Report sourced from the GeoArchive collection"

	// SEDARCompanyID is the property id of a company's SEDAR+ identifier.
	SEDARCompanyID = "SEDAR Company ID"

	encodingPDF     = "application/pdf"
	encodingParquet = "application/vnd.apache.parquet"
)

// NewDocument builds the initial description of a dropbox file from its name.
func NewDocument(fileName string, f Filing) *schemaorg.CreativeWork {
	doc := schemaorg.NewCreativeWork(fmt.Sprintf("NI 43-101 Filing (%s)", f.FilingType), fileName)
	doc.Abstract = Abstract
	doc.Identifier = append(doc.Identifier, schemaorg.PropertyValue{
		Type:  "PropertyValue",
		Name:  schemaorg.IDSEDARFiling,
		Value: f.FilingID,
	})
	doc.About = append(doc.About, schemaorg.Thing{
		Type:           "Organization",
		AdditionalType: "company",
		Name:           f.CompanyName,
		AlternateName:  f.FormerName,
		Identifier: &schemaorg.PropertyValue{
			Type:       "PropertyValue",
			PropertyID: SEDARCompanyID,
			Value:      f.CompanyID,
		},
	})
	return doc
}

func geokbID(uri string) *schemaorg.PropertyValue {
	return &schemaorg.PropertyValue{
		Type:  "PropertyValue",
		Name:  schemaorg.IDGeoKB,
		Value: uri,
	}
}

// AddPlaces links the document to the places that stand out in its pages.
func AddPlaces(doc *schemaorg.CreativeWork, pages []string, places map[string]string) {
	found := textmine.LinkableTerms(pages, places)
	for _, name := range slices.Sorted(maps.Keys(found)) {
		doc.SpatialCoverage = append(doc.SpatialCoverage, schemaorg.Place{
			Type:       "Place",
			Name:       name,
			Identifier: geokbID(found[name]),
		})
	}
}

// AddCommodities links the document to the commodities that stand out in its
// pages. Commodity labels are lower case, so pages are matched lower-cased.
func AddCommodities(doc *schemaorg.CreativeWork, pages []string, commodities map[string]string) {
	lowered := make([]string, len(pages))
	for i, p := range pages {
		lowered[i] = strings.ToLower(p)
	}

	found := textmine.LinkableTerms(lowered, commodities)
	for _, name := range slices.Sorted(maps.Keys(found)) {
		doc.About = append(doc.About, schemaorg.Thing{
			Type:           "Thing",
			AdditionalType: "commodity",
			Name:           name,
			Identifier:     geokbID(found[name]),
		})
	}
}

// ReportName is the display name given to a processed report. Reports whose
// first page yielded no date are named without one.
func ReportName(doc *schemaorg.CreativeWork) string {
	subject := ""
	if len(doc.About) > 0 {
		subject = doc.About[0].Name
	}
	if doc.DatePublished == "" {
		return fmt.Sprintf("%s filed for %s", doc.AdditionalType, subject)
	}
	return fmt.Sprintf("%s filed for %s (effective date %s)", doc.AdditionalType, subject, doc.DatePublished)
}

// mediaObject describes a cached file. sourceID identifies the dropbox file it
// came from.
func mediaObject(additionalType, name, encoding, idName, sourceID string, size int64, md5sum, sha256sum string) schemaorg.MediaObject {
	return schemaorg.MediaObject{
		Type:           "MediaObject",
		AdditionalType: additionalType,
		Name:           name,
		ContentSize:    size,
		EncodingFormat: encoding,
		SHA256:         sha256sum,
		MD5:            md5sum,
		Identifier: schemaorg.PropertyValue{
			Type:  "PropertyValue",
			Name:  idName,
			Value: sourceID,
		},
	}
}
