package testutils

import (
	"time"

	"opsintel/models"
)

func CreateTestIncident(pais string, categoria models.Category, descripcion string) *models.Incident {
	now := time.Now().UTC()

	return &models.Incident{
		Pais:        pais,
		Categoria:   categoria,
		Descripcion: descripcion,
		Fuente:      "Informe Diario",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func CreateTestIncidentWithPlace(pais string, categoria models.Category, descripcion, place string) *models.Incident {
	incident := CreateTestIncident(pais, categoria, descripcion)
	incident.Place = &place
	return incident
}

func CreateTestGeocodeEntry(key string, lat, lon float64) *models.GeocodeCacheEntry {
	admin1 := "Test Admin1"
	accuracy := "place"

	return &models.GeocodeCacheEntry{
		Key:       key,
		Lat:       lat,
		Lon:       lon,
		Admin1:    &admin1,
		Accuracy:  &accuracy,
		Source:    "nominatim",
		UpdatedAt: time.Now().UTC(),
	}
}

// SampleReportText is a minimal sectioned report covering two
// categories, three incidents.
const SampleReportText = `Conflicto armado:
- Enfrentamientos armados en Bengasi entre grupos rivales
- Ataque con dron contra un convoy en Sirte

Criminalidad:
- Robo a mano armada en el centro de Trípoli
`
