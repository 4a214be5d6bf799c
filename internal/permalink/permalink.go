// Package permalink builds the w3id.org permanent-identifier URLs that stand in
// front of Zotero and ScienceBase records.
package permalink

const (
	// ZoteroBase is the redirect namespace for Zotero library items.
	ZoteroBase = "https://w3id.org/usgs/z"

	// ScienceBaseBase is the redirect namespace for ScienceBase catalog items.
	ScienceBaseBase = "https://w3id.org/usgs/sb"
)

// ZoteroItem returns the permanent URL for the item with the given key in the
// given library.
func ZoteroItem(libraryID, key string) string {
	return ZoteroBase + "/" + libraryID + "/" + key
}

// ScienceBaseItem returns the permanent URL for a ScienceBase item.
func ScienceBaseItem(itemID string) string {
	return ScienceBaseBase + "/" + itemID
}
