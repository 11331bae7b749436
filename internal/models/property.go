package models

import "encoding/json"

// Property объект недвижимости из каталога. Geometry хранится как GeoJSON.
type Property struct {
	FID           int64           `json:"fid"`
	ID            string          `json:"id"`
	Unit          string          `json:"unit"`
	ParentCompany string          `json:"parentCompany"`
	UnitType      string          `json:"unitType"`
	UnitUse       string          `json:"unitUse"`
	Area          float64         `json:"area"`
	NoOfBuildings int             `json:"noOfBuildings"`
	Condition     string          `json:"condition"`
	UnitManager   string          `json:"unitManager"`
	Address       string          `json:"address"`
	LastUpdated   string          `json:"lastUpdated"`
	Price         float64         `json:"price"`
	Contact       string          `json:"contact"`
	Geometry      json.RawMessage `json:"-"`
}

// Feature GeoJSON Feature для одного объекта.
type Feature struct {
	Type       string          `json:"type"`
	Properties Property        `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// FeatureCollection ответ списка объектов в формате GeoJSON.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection собирает FeatureCollection; пустой список даёт "features": [].
func NewFeatureCollection(props []*Property) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(props))}
	for _, p := range props {
		geometry := p.Geometry
		if len(geometry) == 0 {
			geometry = json.RawMessage("null")
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Properties: *p,
			Geometry:   geometry,
		})
	}
	return fc
}
