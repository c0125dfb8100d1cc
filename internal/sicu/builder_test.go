package sicu

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsintel/internal/gazetteer"
	"opsintel/models"
)

type fakeTranslator struct {
	out string
	err error
}

func (f fakeTranslator) SpanishExcerpt(text string, maxChars int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func libyaGazetteer() *gazetteer.Gazetteer {
	return gazetteer.New([]models.GazetteerPlace{
		{Name: "Trípoli", Lat: "32.8872", Lon: "13.1913", Kind: "city"},
	})
}

func TestFromFeed_BuildsRows(t *testing.T) {
	text := "--- @canal1 @ 2025-01-05 10:30:00 ---\n" +
		"Tiroteo con fusiles en Trípoli https://example.com/a #libia\n\n"

	rows := NewBuilder(nil, nil).FromFeed("libia", "2025-01-05", text, libyaGazetteer())

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "2025-01-05", row.Fecha)
	assert.Equal(t, "10:30:00", row.Hora)
	assert.Equal(t, "Libia", row.Pais)
	assert.Equal(t, "Conflicto Armado", row.CategoriaSICU)
	assert.Equal(t, "Tiroteo con fusiles en Trípoli  [Enlace: https://example.com/a]", row.Descripcion)
	assert.Equal(t, "Trípoli", row.Localizacion)
	assert.Equal(t, "32.8872", row.Lat)
	assert.Equal(t, "13.1913", row.Lon)
	assert.Equal(t, "@canal1", row.FuenteURL)
}

func TestFromFeed_SkipsRepeatedBodies(t *testing.T) {
	text := "--- @canal1 @ 2025-01-05 10:30:00 ---\n" +
		"Protesta frente al ayuntamiento\n\n" +
		"--- @canal2 @ 2025-01-05 11:00:00 ---\n" +
		"Protesta  frente al AYUNTAMIENTO\n\n"

	rows := NewBuilder(nil, nil).FromFeed("libia", "2025-01-05", text, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "@canal1", rows[0].FuenteURL)
}

func TestFromFeed_InvalidTimestampFallsBackToDay(t *testing.T) {
	text := "--- @canal1 @ 2025-13-45 27:00:00 ---\n" +
		"Atentado con bomba en el mercado\n\n"

	rows := NewBuilder(nil, nil).FromFeed("libia", "2025-01-05", text, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "2025-01-05", rows[0].Fecha)
	assert.Equal(t, "", rows[0].Hora)
	assert.Equal(t, "Terrorismo", rows[0].CategoriaSICU)
}

func TestFromFeed_TranslatorOutputUsed(t *testing.T) {
	text := "--- @canal1 @ 2025-01-05 10:30:00 ---\n" +
		"Gunfight near the airport\n\n"

	tr := fakeTranslator{out: "Tiroteo cerca del aeropuerto"}
	rows := NewBuilder(tr, nil).FromFeed("libia", "2025-01-05", text, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "Tiroteo cerca del aeropuerto", rows[0].Descripcion)
	assert.Equal(t, "Conflicto Armado", rows[0].CategoriaSICU)
}

func TestFromFeed_TranslatorFailureKeepsOriginal(t *testing.T) {
	text := "--- @canal1 @ 2025-01-05 10:30:00 ---\n" +
		"Tiroteo cerca del puerto\n\n"

	tr := fakeTranslator{err: errors.New("backend down")}
	rows := NewBuilder(tr, nil).FromFeed("libia", "2025-01-05", text, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "Tiroteo cerca del puerto", rows[0].Descripcion)
}

func TestFromFeed_EmptyTranslationKeepsOriginal(t *testing.T) {
	text := "--- @canal1 @ 2025-01-05 10:30:00 ---\n" +
		"Tiroteo cerca del puerto\n\n"

	tr := fakeTranslator{out: "   "}
	rows := NewBuilder(tr, nil).FromFeed("libia", "2025-01-05", text, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "Tiroteo cerca del puerto", rows[0].Descripcion)
}

func TestFromFeed_NoGazetteerLeavesLocationEmpty(t *testing.T) {
	text := "--- @canal1 @ 2025-01-05 10:30:00 ---\n" +
		"Tiroteo con fusiles en Trípoli\n\n"

	rows := NewBuilder(nil, nil).FromFeed("libia", "2025-01-05", text, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Localizacion)
	assert.Equal(t, "", rows[0].Lat)
	assert.Equal(t, "", rows[0].Lon)
}

func TestFromFeed_GazetteerFallsBackToOriginalBody(t *testing.T) {
	text := "--- @canal1 @ 2025-01-05 10:30:00 ---\n" +
		"Heavy gunfire reported in Trípoli tonight. Casualties unknown. Details pending. More to follow soon.\n\n"

	tr := fakeTranslator{out: "Tiroteo intenso durante la noche. Se desconocen las víctimas."}
	rows := NewBuilder(tr, nil).FromFeed("libia", "2025-01-05", text, libyaGazetteer())

	require.Len(t, rows, 1)
	assert.Equal(t, "Trípoli", rows[0].Localizacion)
}

func TestFromLedger(t *testing.T) {
	lat, lon := 32.8872, 13.1913
	place := "Trípoli"
	created := time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC)

	rows := FromLedger([]*models.Incident{
		{
			ID:          7,
			Pais:        "Libia",
			Categoria:   models.CategoryTerrorismo,
			Descripcion: "Atentado en el mercado",
			Fuente:      "Informe",
			Lat:         &lat,
			Lon:         &lon,
			Place:       &place,
			CreatedAt:   created,
		},
		{
			Pais:        "Libia",
			Categoria:   models.CategoryOtros,
			Descripcion: "Sin coordenadas",
			Fuente:      "Informe",
			CreatedAt:   created,
		},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "2025-01-05", rows[0].Fecha)
	assert.Equal(t, "14:30:00", rows[0].Hora)
	assert.Equal(t, "Terrorismo", rows[0].CategoriaSICU)
	assert.Equal(t, "32.887200", rows[0].Lat)
	assert.Equal(t, "13.191300", rows[0].Lon)
	assert.Equal(t, "Trípoli", rows[0].Localizacion)
	assert.Equal(t, "", rows[1].Lat)
	assert.Equal(t, "", rows[1].Localizacion)
}

func TestFilter(t *testing.T) {
	rows := []models.SICURow{
		{CategoriaSICU: "Terrorismo", Descripcion: "Atentado"},
		{CategoriaSICU: "Otros", Descripcion: "Nota sin categoría"},
		{CategoriaSICU: "OTROS", Descripcion: "Mayúsculas"},
		{CategoriaSICU: "", Descripcion: "Sin categoría"},
		{CategoriaSICU: "Hazards", Descripcion: "   "},
		{CategoriaSICU: "Criminalidad", Descripcion: "Robo a mano armada"},
	}

	out := Filter(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "Atentado", out[0].Descripcion)
	assert.Equal(t, "Robo a mano armada", out[1].Descripcion)
}

func TestSortRows(t *testing.T) {
	rows := []models.SICURow{
		{Fecha: "2025-01-06", Hora: "08:00", Descripcion: "c"},
		{Fecha: "2025-01-05", Hora: "22:00", Descripcion: "b"},
		{Fecha: "2025-01-05", Hora: "10:00", Descripcion: "a"},
		{Fecha: "2025-01-05", Hora: "10:00", Descripcion: "a-bis"},
	}

	SortRows(rows)

	assert.Equal(t, "a", rows[0].Descripcion)
	assert.Equal(t, "a-bis", rows[1].Descripcion)
	assert.Equal(t, "b", rows[2].Descripcion)
	assert.Equal(t, "c", rows[3].Descripcion)
}

func TestMergeRows(t *testing.T) {
	existing := []models.SICURow{
		{Fecha: "2025-01-05", Hora: "10:00", Pais: "Libia", Descripcion: "Atentado", FuenteURL: "@canal1"},
	}
	fresh := []models.SICURow{
		{Fecha: "2025-01-05", Hora: "10:00", Pais: "LIBIA", Descripcion: "ATENTADO", FuenteURL: "@CANAL1"},
		{Fecha: "2025-01-05", Hora: "11:00", Pais: "Libia", Descripcion: "Protesta", FuenteURL: "@canal2"},
	}

	out := MergeRows(existing, fresh)

	require.Len(t, out, 2)
	assert.Equal(t, "Atentado", out[0].Descripcion)
	assert.Equal(t, "@canal1", out[0].FuenteURL)
	assert.Equal(t, "Protesta", out[1].Descripcion)
}
