package models

// SICURow is one day-scoped categorized record as used by the SICU
// deduplicator and the CSV/TXT report writers. Coordinates stay as
// strings so empty cells survive round-trips through CSV unchanged.
type SICURow struct {
	Fecha         string `json:"fecha"`
	Hora          string `json:"hora"`
	Pais          string `json:"pais"`
	CategoriaSICU string `json:"categoria_sicu"`
	Descripcion   string `json:"descripcion"`
	Localizacion  string `json:"localizacion"`
	Lat           string `json:"lat,omitempty"`
	Lon           string `json:"lon,omitempty"`
	FuenteURL     string `json:"fuente_URL,omitempty"`
}
