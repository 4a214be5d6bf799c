package geokb

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const commodityQuery = `PREFIX wd: <https://geokb.wikibase.cloud/entity/>
PREFIX wdt: <https://geokb.wikibase.cloud/prop/direct/>

SELECT ?item ?itemLabel
WHERE {
    ?item wdt:P1 wd:Q406 .
    SERVICE wikibase:label { bd:serviceParam wikibase:language "en" . }
}`

const placeQuery = `PREFIX wd: <https://geokb.wikibase.cloud/entity/>
PREFIX wdt: <https://geokb.wikibase.cloud/prop/direct/>

SELECT ?item ?itemLabel ?geonames_feature_code
WHERE {
    ?item wdt:P211 ?geonames_feature_code .
    FILTER(STRSTARTS(STR(?geonames_feature_code), "ADM"))
    SERVICE wikibase:label { bd:serviceParam wikibase:language "en" . }
}`

// Querier runs SPARQL SELECT queries.
type Querier interface {
	Query(ctx context.Context, sparql string) ([]Binding, error)
}

// CommodityLookup maps lower-cased commodity labels to entity URIs.
func CommodityLookup(ctx context.Context, q Querier) (map[string]string, error) {
	rows, err := q.Query(ctx, commodityQuery)
	if err != nil {
		return nil, fmt.Errorf("querying commodities: %w", err)
	}
	return labelIndex(rows, strings.ToLower), nil
}

// PlaceLookup maps administrative area labels to entity URIs.
func PlaceLookup(ctx context.Context, q Querier) (map[string]string, error) {
	rows, err := q.Query(ctx, placeQuery)
	if err != nil {
		return nil, fmt.Errorf("querying places: %w", err)
	}
	return labelIndex(rows, nil), nil
}

// labelIndex keys item URIs by label. A later row wins on duplicate labels.
func labelIndex(rows []Binding, norm func(string) string) map[string]string {
	idx := make(map[string]string, len(rows))
	for _, row := range rows {
		label := row.Value("itemLabel")
		item := row.Value("item")
		if label == "" || item == "" {
			continue
		}
		if norm != nil {
			label = norm(label)
		}
		idx[label] = item
	}
	return idx
}

// Ref holds the reference lookups used to link reports to GeoKB entities.
type Ref struct {
	Commodities map[string]string
	Places      map[string]string
}

// LoadRef runs both lookups.
func LoadRef(ctx context.Context, q Querier) (*Ref, error) {
	commodities, err := CommodityLookup(ctx, q)
	if err != nil {
		return nil, err
	}
	places, err := PlaceLookup(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Ref{Commodities: commodities, Places: places}, nil
}

// CommodityNames returns the commodity labels in sorted order.
func (r *Ref) CommodityNames() []string {
	return keys(r.Commodities)
}

// PlaceNames returns the place labels in sorted order.
func (r *Ref) PlaceNames() []string {
	return keys(r.Places)
}

func keys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
