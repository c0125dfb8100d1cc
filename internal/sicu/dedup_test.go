package sicu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsintel/models"
)

func TestParseTimeToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"14:30", 870, true},
		{"7", 420, true},
		{" 9:05 ", 545, true},
		{"00:00", 0, true},
		{"14:30:59", 870, true},
		{"", 0, false},
		{"   ", 0, false},
		{"ab:cd", 0, false},
		{"14:", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseTimeToMinutes(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "input %q", c.in)
		}
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Ataque en Derna", "ataque en derna"), 1e-9)
	assert.Equal(t, 0.0, Similarity("", "algo"))
	assert.Equal(t, 0.0, Similarity("algo", "  "))
	assert.GreaterOrEqual(t,
		Similarity(
			"Enfrentamiento armado cerca del aeropuerto",
			"Enfrentamiento armado cerca del aeropuerto de Trípoli",
		),
		0.75)
	assert.Less(t, Similarity("Ataque con dron", "Corte de electricidad"), 0.75)
}

func sicuRow(desc, hora, fuente string) models.SICURow {
	return models.SICURow{
		Fecha:         "2025-01-05",
		Hora:          hora,
		Pais:          "Libia",
		CategoriaSICU: "Conflicto Armado",
		Descripcion:   desc,
		Localizacion:  "Trípoli",
		FuenteURL:     fuente,
	}
}

func TestDeduplicate_MergesSimilarRows(t *testing.T) {
	second := sicuRow("Enfrentamiento armado cerca del aeropuerto de Trípoli", "15:30", "https://x.example/post")
	second.Lat = "32.8872"
	second.Lon = "13.1913"

	out := Deduplicate([]models.SICURow{
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal1"),
		second,
	})

	require.Len(t, out, 1)
	assert.Equal(t, "Enfrentamiento armado cerca del aeropuerto", out[0].Descripcion)
	assert.Equal(t, "14:00", out[0].Hora)
	assert.Equal(t, "@canal1 | https://x.example/post", out[0].FuenteURL)
	assert.Equal(t, "32.8872", out[0].Lat)
	assert.Equal(t, "13.1913", out[0].Lon)
}

func TestDeduplicate_TimeGapBlocksMerge(t *testing.T) {
	out := Deduplicate([]models.SICURow{
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "08:00", "@canal1"),
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal2"),
	})
	assert.Len(t, out, 2)
}

func TestDeduplicate_BlankHoraActsAsWildcard(t *testing.T) {
	out := Deduplicate([]models.SICURow{
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "", "@canal1"),
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "23:59", "@canal2"),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "@canal1 | @canal2", out[0].FuenteURL)
}

func TestDeduplicate_GroupKeyIsCaseInsensitive(t *testing.T) {
	a := sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal1")
	b := sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:30", "@canal2")
	b.Pais = "LIBIA"
	b.Localizacion = "TRÍPOLI"
	b.CategoriaSICU = "conflicto armado"

	out := Deduplicate([]models.SICURow{a, b})
	assert.Len(t, out, 1)
}

func TestDeduplicate_DifferentLocationStaysSeparate(t *testing.T) {
	a := sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal1")
	b := sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:30", "@canal2")
	b.Localizacion = "Bengasi"

	out := Deduplicate([]models.SICURow{a, b})
	assert.Len(t, out, 2)
}

func TestDeduplicate_DissimilarDescriptionsStaySeparate(t *testing.T) {
	out := Deduplicate([]models.SICURow{
		sicuRow("Ataque con dron contra el puerto", "14:00", "@canal1"),
		sicuRow("Corte de electricidad en toda la ciudad", "14:10", "@canal2"),
	})
	assert.Len(t, out, 2)
}

func TestDeduplicate_PreservesGroupOrder(t *testing.T) {
	benghazi := sicuRow("Protesta frente al ayuntamiento", "12:00", "@canal2")
	benghazi.Localizacion = "Bengasi"

	out := Deduplicate([]models.SICURow{
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal1"),
		benghazi,
		sicuRow("Enfrentamiento armado cerca del aeropuerto de Trípoli", "15:00", "@canal3"),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "Trípoli", out[0].Localizacion)
	assert.Equal(t, "@canal1 | @canal3", out[0].FuenteURL)
	assert.Equal(t, "Bengasi", out[1].Localizacion)
}

func TestDeduplicate_FuenteOrderAndUniqueness(t *testing.T) {
	out := Deduplicate([]models.SICURow{
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal1"),
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:20", "@canal2"),
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:40", "@canal1"),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "@canal1 | @canal2", out[0].FuenteURL)
}

func TestDeduplicate_BaseCoordinatesKeepPriority(t *testing.T) {
	first := sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal1")
	first.Lat = "32.0"
	first.Lon = "13.0"
	second := sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:30", "@canal2")
	second.Lat = "99.0"
	second.Lon = "99.0"

	out := Deduplicate([]models.SICURow{first, second})
	require.Len(t, out, 1)
	assert.Equal(t, "32.0", out[0].Lat)
	assert.Equal(t, "13.0", out[0].Lon)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	rows := []models.SICURow{
		sicuRow("Enfrentamiento armado cerca del aeropuerto", "14:00", "@canal1"),
		sicuRow("Enfrentamiento armado cerca del aeropuerto de Trípoli", "15:30", "@canal2"),
		sicuRow("Protesta frente al ayuntamiento", "12:00", "@canal3"),
	}
	once := Deduplicate(rows)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}
