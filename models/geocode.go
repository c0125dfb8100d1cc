package models

import (
	"time"
)

// GeocodeCacheEntry stores one persisted geocoder result, keyed by the
// normalized "place||country" string. Entries never expire.
type GeocodeCacheEntry struct {
	Key       string    `db:"key" json:"key"`
	Lat       float64   `db:"lat" json:"lat"`
	Lon       float64   `db:"lon" json:"lon"`
	Country   *string   `db:"country" json:"country,omitempty"`
	Admin1    *string   `db:"admin1" json:"admin1,omitempty"`
	Admin2    *string   `db:"admin2" json:"admin2,omitempty"`
	Accuracy  *string   `db:"accuracy" json:"accuracy,omitempty"`
	Source    string    `db:"source" json:"source"` // "cache", "nominatim"
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GeocodeResult is what the location resolver hands back on success.
// Empty admin/accuracy fields mean the upstream source did not report them.
type GeocodeResult struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Admin1   string  `json:"admin1,omitempty"`
	Admin2   string  `json:"admin2,omitempty"`
	Accuracy string  `json:"accuracy,omitempty"`
	Source   string  `json:"source"`
}

// GazetteerPlace is one row of a per-country gazetteer file. Lat and
// Lon keep the raw CSV values so lookups can decide how strict to be
// about parsing them.
type GazetteerPlace struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Lat     string   `json:"lat"`
	Lon     string   `json:"lon"`
	Admin1  string   `json:"admin1,omitempty"`
	Admin2  string   `json:"admin2,omitempty"`
	Kind    string   `json:"kind,omitempty"`
}
