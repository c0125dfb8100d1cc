package models

import (
	"strings"
	"time"
)

type Category string

// Constants for the SICU incident taxonomy
const (
	CategoryConflictoArmado   Category = "Conflicto Armado"
	CategoryTerrorismo        Category = "Terrorismo"
	CategoryCriminalidad      Category = "Criminalidad"
	CategoryDisturbiosCiviles Category = "Disturbios Civiles"
	CategoryHazards           Category = "Hazards"
	CategoryOtros             Category = "Otros"
	CategorySinClasificar     Category = "Sin clasificar"
)

// Categories lists the six report categories in precedence order
var Categories = []Category{
	CategoryConflictoArmado,
	CategoryTerrorismo,
	CategoryCriminalidad,
	CategoryDisturbiosCiviles,
	CategoryHazards,
	CategoryOtros,
}

// Incident represents one persisted record of the incident ledger
type Incident struct {
	ID            int64     `db:"id" json:"id"`
	Pais          string    `db:"pais" json:"pais"`
	Categoria     Category  `db:"categoria" json:"categoria"`
	Descripcion   string    `db:"descripcion" json:"descripcion"`
	Fuente        string    `db:"fuente" json:"fuente"`
	Lat           *float64  `db:"lat" json:"lat,omitempty"`
	Lon           *float64  `db:"lon" json:"lon,omitempty"`
	Place         *string   `db:"place" json:"place,omitempty"`
	Admin1        *string   `db:"admin1" json:"admin1,omitempty"`
	Admin2        *string   `db:"admin2" json:"admin2,omitempty"`
	Accuracy      *string   `db:"accuracy" json:"accuracy,omitempty"`
	GeocodeSource *string   `db:"geocode_source" json:"geocode_source,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// IsPending reports whether the incident has a place string but no
// resolved coordinates yet
func (i *Incident) IsPending() bool {
	if i.Place == nil || strings.TrimSpace(*i.Place) == "" {
		return false
	}
	return i.Lat == nil || i.Lon == nil
}

// IncidentCandidate is an ephemeral record produced by parsing; it is
// never persisted directly, only handed to the registrar for
// dedup-on-insert
type IncidentCandidate struct {
	Categoria   Category `json:"categoria"`
	Descripcion string   `json:"descripcion"`
	Place       string   `json:"place,omitempty"`
	Fuente      string   `json:"fuente,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}
