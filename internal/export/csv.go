// Package export renders pipeline output for distribution: the per-day
// feed CSV, the categorized SICU CSV/TXT pair, the daily report and the
// broad incident ledger dump. Readers are tolerant of the header
// variants that appear in hand-edited copies of these files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"opsintel/internal/gazetteer"
	"opsintel/models"
)

var sicuFields = []string{
	"fecha", "hora", "pais", "categoria_sicu", "descripcion",
	"localizacion", "lat", "lon", "fuente_URL",
}

var feedFields = []string{
	"fecha", "hora", "pais", "categoria_sicu", "descripcion",
	"localizacion", "lat", "lon", "fuente",
}

// headerAliases maps the lowercase header spellings seen in the wild to
// canonical column names. Unknown headers fall through to themselves.
var headerAliases = map[string]string{
	"categoría sicu":    "categoria_sicu",
	"categoria sicu":    "categoria_sicu",
	"categoría_sicu":    "categoria_sicu",
	"categoria":         "categoria_sicu",
	"categoría":         "categoria_sicu",
	"breve descripción": "descripcion",
	"breve descripcion": "descripcion",
	"descripción":       "descripcion",
	"localización":      "localizacion",
	"país":              "pais",
	"fuente":            "fuente_URL",
	"fuente_url":        "fuente_URL",
}

// WriteSICUCSV writes categorized rows with the fuente_URL column last.
// Coordinate cells pass through as stored so gazetteer-sourced strings
// survive verbatim.
func WriteSICUCSV(w io.Writer, rows []models.SICURow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sicuFields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Fecha, row.Hora, row.Pais, row.CategoriaSICU, row.Descripcion,
			row.Localizacion, row.Lat, row.Lon, row.FuenteURL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeedCSV writes the per-day feed rows. The layout matches the
// SICU CSV except the source column is named fuente.
func WriteFeedCSV(w io.Writer, rows []models.SICURow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(feedFields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Fecha, row.Hora, row.Pais, row.CategoriaSICU, row.Descripcion,
			row.Localizacion, row.Lat, row.Lon, row.FuenteURL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSICUCSV reads a feed or SICU CSV back into rows. Headers are
// lowercased and resolved through the alias table, values are trimmed,
// and short records leave the remaining fields empty.
func ReadSICUCSV(r io.Reader) ([]models.SICURow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := make([]string, len(records[0]))
	for i, header := range records[0] {
		low := strings.ToLower(strings.TrimSpace(header))
		if dest, ok := headerAliases[low]; ok {
			low = dest
		}
		columns[i] = low
	}

	rows := make([]models.SICURow, 0, len(records)-1)
	for _, record := range records[1:] {
		var row models.SICURow
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			value = strings.TrimSpace(value)
			switch columns[i] {
			case "fecha":
				row.Fecha = value
			case "hora":
				row.Hora = value
			case "pais":
				row.Pais = value
			case "categoria_sicu":
				row.CategoriaSICU = value
			case "descripcion":
				row.Descripcion = value
			case "localizacion":
				row.Localizacion = value
			case "lat":
				row.Lat = value
			case "lon":
				row.Lon = value
			case "fuente_URL":
				row.FuenteURL = value
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCoord parses a coordinate cell, accepting a decimal comma when
// the value carries no decimal point.
func ParseCoord(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FillCoordinates completes rows whose coordinate cells do not parse.
// It tries the comma-segment lookup on localizacion, then the substring
// lookup on descripcion, then the fixed-city heuristic when the country
// is Libya. Heuristic hits on rows without a location also label the
// row as estimated.
func FillCoordinates(rows []models.SICURow, gaz *gazetteer.Gazetteer, country string) {
	if gaz == nil || gaz.Len() == 0 {
		return
	}
	countryNorm := strings.ToLower(strings.TrimSpace(country))
	libya := countryNorm == "libia" || countryNorm == "libya"

	for i := range rows {
		row := &rows[i]
		if _, latOK := ParseCoord(row.Lat); latOK {
			if _, lonOK := ParseCoord(row.Lon); lonOK {
				continue
			}
		}
		lat, lon, ok := gaz.LookupSegments(row.Localizacion)
		if !ok {
			lat, lon, ok = gaz.LookupSubstring(row.Descripcion)
		}
		if !ok && libya {
			hlat, hlon, city, hit := gaz.HeuristicLibya(row.Localizacion, row.Descripcion)
			if hit {
				lat, lon, ok = hlat, hlon, true
				if strings.TrimSpace(row.Localizacion) == "" {
					row.Localizacion = city + " (estimado)"
				}
			}
		}
		if ok {
			row.Lat = fmt.Sprintf("%.6f", lat)
			row.Lon = fmt.Sprintf("%.6f", lon)
		}
	}
}
