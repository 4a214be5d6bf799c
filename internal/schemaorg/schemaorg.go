// Package schemaorg defines the schema.org document model used to describe
// archived reports as they move between ScienceBase, Zotero and the GeoKB.
package schemaorg

// Context is the JSON-LD context every document carries.
const Context = "https://schema.org"

// Identifier names used across the archive workflow.
const (
	IDSEDARFiling       = "SEDAR filing identifier"
	IDScienceBaseItem   = "ScienceBase Item ID"
	IDOriginalSBFile    = "Original ScienceBase File ID"
	IDScienceBaseSource = "ScienceBase File Source ID"
	IDGeoKB             = "GeoKB ID"
	IDZoteroKey         = "Zotero Key"
)

// Media types found in associatedMedia.
const (
	MediaMainContent   = "main content"
	MediaExtractedText = "extracted text content"
)

// CreativeWork is the top-level document describing one archived report.
type CreativeWork struct {
	Context         string          `json:"@context"`
	Type            string          `json:"@type"`
	AdditionalType  string          `json:"additionalType"`
	Name            string          `json:"name"`
	Abstract        string          `json:"abstract,omitempty"`
	URL             string          `json:"url,omitempty"`
	DatePublished   string          `json:"datePublished,omitempty"`
	NumberOfPages   int             `json:"numberOfPages,omitempty"`
	Identifier      []PropertyValue `json:"identifier"`
	AssociatedMedia []MediaObject   `json:"associatedMedia"`
	About           []Thing         `json:"about"`
	SpatialCoverage []Place         `json:"spatialCoverage"`
}

// PropertyValue is a named identifier value.
type PropertyValue struct {
	Type       string `json:"@type"`
	Name       string `json:"name,omitempty"`
	PropertyID string `json:"propertyID,omitempty"`
	Value      string `json:"value"`
	URL        string `json:"url,omitempty"`
}

// MediaObject describes one file associated with the report.
type MediaObject struct {
	Type           string        `json:"@type"`
	AdditionalType string        `json:"additionalType"`
	Name           string        `json:"name"`
	AlternateName  string        `json:"alternateName,omitempty"`
	ContentSize    int64         `json:"contentSize"`
	EncodingFormat string        `json:"encodingFormat"`
	SHA256         string        `json:"sha256,omitempty"`
	MD5            string        `json:"md5,omitempty"`
	URL            string        `json:"url,omitempty"`
	Identifier     PropertyValue `json:"identifier"`
}

// Thing is a subject the report is about: an organization or a commodity.
type Thing struct {
	Type           string         `json:"@type"`
	AdditionalType string         `json:"additionalType"`
	Name           string         `json:"name"`
	AlternateName  string         `json:"alternateName,omitempty"`
	Identifier     *PropertyValue `json:"identifier,omitempty"`
}

// Place is a named location covered by the report.
type Place struct {
	Type       string         `json:"@type"`
	Name       string         `json:"name"`
	Identifier *PropertyValue `json:"identifier,omitempty"`
}

// NewCreativeWork returns an empty document with its list fields initialized so
// they encode as [] rather than null.
func NewCreativeWork(additionalType, name string) *CreativeWork {
	return &CreativeWork{
		Context:         Context,
		Type:            "CreativeWork",
		AdditionalType:  additionalType,
		Name:            name,
		Identifier:      []PropertyValue{},
		AssociatedMedia: []MediaObject{},
		About:           []Thing{},
		SpatialCoverage: []Place{},
	}
}

// IdentifierByName returns the first identifier with the given name.
func (d *CreativeWork) IdentifierByName(name string) (PropertyValue, bool) {
	for _, id := range d.Identifier {
		if id.Name == name {
			return id, true
		}
	}
	return PropertyValue{}, false
}

// MediaByType returns a pointer to the first media object of the given
// additional type, or nil.
func (d *CreativeWork) MediaByType(additionalType string) *MediaObject {
	for i := range d.AssociatedMedia {
		if d.AssociatedMedia[i].AdditionalType == additionalType {
			return &d.AssociatedMedia[i]
		}
	}
	return nil
}

// AboutByType returns the first subject with the given additional type, or nil.
func (d *CreativeWork) AboutByType(additionalType string) *Thing {
	for i := range d.About {
		if d.About[i].AdditionalType == additionalType {
			return &d.About[i]
		}
	}
	return nil
}
