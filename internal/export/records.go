package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"opsintel/internal/classify"
	"opsintel/internal/mgrs"
	"opsintel/internal/parser"
	"opsintel/internal/places"
	"opsintel/internal/textnorm"
	"opsintel/internal/translate"
	"opsintel/models"
)

const (
	timestampLayout    = "2006-01-02T15:04:05"
	recordExcerptChars = 400
)

var incidentFields = []string{
	"id", "pais", "categoria", "descripcion", "fuente", "lat", "lon",
	"mgrs", "place", "admin1", "admin2", "accuracy", "geocode_source",
	"created_at", "updated_at",
}

// IncidentRecord is one row of the broad incident dump. All cells are
// strings so the CSV round-trips without loss.
type IncidentRecord struct {
	ID            string
	Pais          string
	Categoria     string
	Descripcion   string
	Fuente        string
	Lat           string
	Lon           string
	MGRS          string
	Place         string
	Admin1        string
	Admin2        string
	Accuracy      string
	GeocodeSource string
	CreatedAt     string
	UpdatedAt     string

	// CountryHint carries the country slug used for geocoding. It is
	// not a CSV column.
	CountryHint string
}

// PlaceResolver is the slice of the geocode resolver that record
// completion needs.
type PlaceResolver interface {
	Resolve(ctx context.Context, place, country string) (*models.GeocodeResult, error)
}

// RecordsFromLedger converts persisted incidents into dump rows.
// Coordinates render as %.6f and zero timestamps stay empty.
func RecordsFromLedger(incidents []*models.Incident) []IncidentRecord {
	records := make([]IncidentRecord, 0, len(incidents))
	for _, inc := range incidents {
		rec := IncidentRecord{
			ID:            strconv.FormatInt(inc.ID, 10),
			Pais:          inc.Pais,
			Categoria:     string(inc.Categoria),
			Descripcion:   inc.Descripcion,
			Fuente:        inc.Fuente,
			Place:         deref(inc.Place),
			Admin1:        deref(inc.Admin1),
			Admin2:        deref(inc.Admin2),
			Accuracy:      deref(inc.Accuracy),
			GeocodeSource: deref(inc.GeocodeSource),
		}
		if inc.Lat != nil {
			rec.Lat = fmt.Sprintf("%.6f", *inc.Lat)
		}
		if inc.Lon != nil {
			rec.Lon = fmt.Sprintf("%.6f", *inc.Lon)
		}
		if !inc.CreatedAt.IsZero() {
			rec.CreatedAt = inc.CreatedAt.Format(timestampLayout)
		}
		if !inc.UpdatedAt.IsZero() {
			rec.UpdatedAt = inc.UpdatedAt.Format(timestampLayout)
		}
		records = append(records, rec)
	}
	return records
}

// RecordsFromFeed builds dump rows straight from a raw channel feed,
// bypassing the ledger. Bodies are excerpted, deduplicated on their
// normalized text and classified with the general ruleset; place
// extraction sees both the excerpt and the original body.
func RecordsFromFeed(pais, text string, translator translate.Translator) []IncidentRecord {
	slug := textnorm.SlugCountry(pais)
	display := textnorm.Capitalize(slug)
	if display == "" {
		display = textnorm.Capitalize(pais)
	}

	seen := make(map[string]bool)
	var records []IncidentRecord
	for _, entry := range parser.ParseFeed(text) {
		original := strings.TrimSpace(entry.Body)
		if original == "" {
			continue
		}
		body := original
		if translator != nil {
			if out, err := translator.SpanishExcerpt(original, recordExcerptChars); err == nil && strings.TrimSpace(out) != "" {
				body = out
			}
		}
		key := textnorm.NormalizeKey(body)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		var timestamp string
		if !entry.Datetime.IsZero() {
			timestamp = entry.Datetime.Format(timestampLayout)
		}
		records = append(records, IncidentRecord{
			ID:            strconv.Itoa(len(records) + 1),
			Pais:          display,
			Categoria:     string(classify.Classify(body)),
			Descripcion:   body,
			Fuente:        strings.TrimSpace(entry.Channel),
			Place:         places.Extract(body, original),
			GeocodeSource: "mensajes",
			CreatedAt:     timestamp,
			UpdatedAt:     timestamp,
			CountryHint:   slug,
		})
	}
	return records
}

// FillRecordCoordinates resolves coordinates for records that carry a
// place but no lat/lon yet. Failures leave the record untouched; the
// return value counts the records that got coordinates.
func FillRecordCoordinates(ctx context.Context, records []IncidentRecord, resolver PlaceResolver) int {
	if resolver == nil {
		return 0
	}
	filled := 0
	for i := range records {
		rec := &records[i]
		if rec.Lat != "" && rec.Lon != "" {
			continue
		}
		place := strings.TrimSpace(rec.Place)
		if place == "" {
			continue
		}
		hint := rec.CountryHint
		if hint == "" {
			hint = rec.Pais
		}
		result, err := resolver.Resolve(ctx, place, hint)
		if err != nil || result == nil {
			continue
		}
		rec.Lat = fmt.Sprintf("%.6f", result.Lat)
		rec.Lon = fmt.Sprintf("%.6f", result.Lon)
		if result.Admin1 != "" {
			rec.Admin1 = result.Admin1
		}
		if result.Admin2 != "" {
			rec.Admin2 = result.Admin2
		}
		if result.Accuracy != "" {
			rec.Accuracy = result.Accuracy
		}
		if result.Source != "" {
			rec.GeocodeSource = result.Source
		}
		filled++
	}
	return filled
}

// WriteIncidentsCSV writes the broad dump. Empty MGRS cells are
// derived from the coordinate cells at write time.
func WriteIncidentsCSV(w io.Writer, records []IncidentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(incidentFields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if rec.MGRS == "" {
			rec.MGRS = mgrs.EncodeStrings(rec.Lat, rec.Lon)
		}
		row := []string{
			rec.ID, rec.Pais, rec.Categoria, rec.Descripcion, rec.Fuente,
			rec.Lat, rec.Lon, rec.MGRS, rec.Place, rec.Admin1, rec.Admin2,
			rec.Accuracy, rec.GeocodeSource, rec.CreatedAt, rec.UpdatedAt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
