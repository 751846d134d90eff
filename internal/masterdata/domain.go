// Package masterdata serves the static Chilean geography catalog:
// regiones and their comunas, used by address forms.
package masterdata

// Region is one of Chile's administrative regions.
type Region struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
	Orden  int    `json:"orden"`
}

// Comuna belongs to exactly one region.
type Comuna struct {
	ID       int    `json:"id"`
	RegionID int    `json:"region_id"`
	Nombre   string `json:"nombre"`
}
