package sicu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"opsintel/internal/classify"
	"opsintel/internal/gazetteer"
	"opsintel/internal/parser"
	"opsintel/internal/textnorm"
	"opsintel/models"
)

const translateMaxChars = 1000

// Translator renders a feed body in Spanish. Implementations may return
// the input unchanged; the builder falls back to the original body when
// translation fails or comes back empty.
type Translator interface {
	SpanishExcerpt(text string, maxChars int) (string, error)
}

// Builder turns archived feed text into day-scoped SICU rows.
type Builder struct {
	translator Translator
	logger     *zerolog.Logger
}

// NewBuilder creates a row builder. translator may be nil, in which case
// bodies are used as-is.
func NewBuilder(translator Translator, logger *zerolog.Logger) *Builder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Builder{translator: translator, logger: logger}
}

// FromFeed parses raw feed text and builds one row per entry. Entries
// whose normalized summary was already seen in this run are skipped.
// Location and coordinates come from the gazetteer when one is given,
// matching the cleaned summary first and the original body second.
// Entries with an unparseable header timestamp fall back to dayISO for
// fecha and leave hora empty.
func (b *Builder) FromFeed(pais, dayISO, text string, gaz *gazetteer.Gazetteer) []models.SICURow {
	slug := textnorm.SlugCountry(pais)
	countryName := textnorm.Capitalize(slug)
	if countryName == "" {
		countryName = textnorm.Capitalize(pais)
	}

	entries := parser.ParseFeed(text)
	seen := make(map[string]bool)
	var rows []models.SICURow

	for _, entry := range entries {
		fecha := dayISO
		hora := ""
		if !entry.Datetime.IsZero() {
			fecha = entry.Datetime.Format("2006-01-02")
			hora = entry.Datetime.Format("15:04:05")
		}

		bodyOrig := strings.TrimSpace(entry.Body)
		urls := textnorm.ExtractURLs(bodyOrig)

		translated := bodyOrig
		if b.translator != nil {
			if t, err := b.translator.SpanishExcerpt(bodyOrig, translateMaxChars); err != nil {
				b.logger.Warn().Err(err).Str("channel", entry.Channel).Msg("translation failed, using original body")
			} else if strings.TrimSpace(t) != "" {
				translated = t
			}
		}

		resumen := textnorm.CleanSummary(translated)
		if resumen == "" {
			resumen = translated
		}

		key := textnorm.NormalizeKey(resumen)
		if key == "" {
			key = textnorm.NormalizeKey(bodyOrig)
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		categoria := classify.ClassifySummary(resumen)

		descripcion := resumen
		if len(urls) > 0 {
			blocks := make([]string, 0, len(urls))
			for _, u := range urls {
				blocks = append(blocks, fmt.Sprintf("[Enlace: %s]", u))
			}
			descripcion = resumen + "  " + strings.Join(blocks, " ")
		}

		loc, lat, lon := "", "", ""
		if gaz != nil && gaz.Len() > 0 {
			name, glat, glon, ok := gaz.MatchText(resumen)
			if !ok {
				name, glat, glon, ok = gaz.MatchText(bodyOrig)
			}
			if ok {
				loc, lat, lon = name, glat, glon
			}
		}

		rows = append(rows, models.SICURow{
			Fecha:         fecha,
			Hora:          hora,
			Pais:          countryName,
			CategoriaSICU: string(categoria),
			Descripcion:   descripcion,
			Localizacion:  loc,
			Lat:           lat,
			Lon:           lon,
			FuenteURL:     strings.TrimSpace(entry.Channel),
		})
	}
	return rows
}

// FromLedger adapts persisted incidents to SICU rows for the day-scoped
// exports. Coordinates render with six decimals, matching the resolver's
// precision.
func FromLedger(incidents []*models.Incident) []models.SICURow {
	rows := make([]models.SICURow, 0, len(incidents))
	for _, inc := range incidents {
		row := models.SICURow{
			Fecha:         inc.CreatedAt.Format("2006-01-02"),
			Hora:          inc.CreatedAt.Format("15:04:05"),
			Pais:          inc.Pais,
			CategoriaSICU: string(inc.Categoria),
			Descripcion:   inc.Descripcion,
			FuenteURL:     inc.Fuente,
		}
		if inc.Place != nil {
			row.Localizacion = strings.TrimSpace(*inc.Place)
		}
		if inc.Lat != nil {
			row.Lat = fmt.Sprintf("%.6f", *inc.Lat)
		}
		if inc.Lon != nil {
			row.Lon = fmt.Sprintf("%.6f", *inc.Lon)
		}
		rows = append(rows, row)
	}
	return rows
}

// Filter keeps the rows that belong in SICU artifacts: a non-empty
// category other than "otros" and a non-empty description.
func Filter(rows []models.SICURow) []models.SICURow {
	var out []models.SICURow
	for _, r := range rows {
		cat := strings.ToLower(strings.TrimSpace(r.CategoriaSICU))
		desc := strings.TrimSpace(r.Descripcion)
		if cat == "" || desc == "" || cat == "otros" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortRows orders rows by (fecha, hora), keeping input order for ties.
func SortRows(rows []models.SICURow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Fecha != rows[j].Fecha {
			return rows[i].Fecha < rows[j].Fecha
		}
		return rows[i].Hora < rows[j].Hora
	})
}

// MergeRows appends fresh rows to existing ones, dropping any row whose
// signature (fecha, hora, pais, descripcion, fuente) was already seen.
// The first occurrence wins, so re-running a day never duplicates rows.
func MergeRows(existing, fresh []models.SICURow) []models.SICURow {
	type sig struct {
		fecha, hora, pais, desc, fuente string
	}
	seen := make(map[sig]bool)
	out := make([]models.SICURow, 0, len(existing)+len(fresh))
	for _, r := range append(append([]models.SICURow{}, existing...), fresh...) {
		s := sig{
			fecha:  strings.TrimSpace(r.Fecha),
			hora:   strings.TrimSpace(r.Hora),
			pais:   strings.ToLower(strings.TrimSpace(r.Pais)),
			desc:   strings.ToLower(strings.TrimSpace(r.Descripcion)),
			fuente: strings.ToLower(strings.TrimSpace(r.FuenteURL)),
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, r)
	}
	return out
}
