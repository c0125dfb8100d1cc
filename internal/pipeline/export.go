package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"opsintel/internal/export"
	"opsintel/internal/opday"
	"opsintel/internal/textnorm"
)

// ExportDayRecords rebuilds broad incident records straight from one
// country's archived day file, geocodes the ones still missing
// coordinates and writes a timestamped CSV dump. Returns the file path
// and the record count.
func (p *Pipeline) ExportDayRecords(ctx context.Context, pais, day string) (string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.TrimSpace(pais) == "" {
		pais = p.cfg.DefaultCountry
	}
	slug := textnorm.SlugCountry(pais)

	day = strings.TrimSpace(day)
	if day == "" {
		day = opday.ForTime(p.loc, p.clock.Now())
	} else if _, _, err := opday.Bounds(p.loc, day); err != nil {
		return "", 0, fmt.Errorf("%w %q: %v", ErrBadDay, day, err)
	}

	text, err := p.store.ReadDay(slug, day)
	if err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(text) == "" {
		return "", 0, fmt.Errorf("%w for %s on %s", ErrNoArchive, slug, day)
	}

	records := export.RecordsFromFeed(textnorm.Capitalize(slug), text, p.translator)
	geocoded := 0
	if p.resolver != nil {
		geocoded = export.FillRecordCoordinates(ctx, records, p.resolver)
	}

	stamp := p.clock.Now().UTC().Format("20060102_150405")
	path := filepath.Join(p.cfg.DataDir, "incidentes", slug, fmt.Sprintf("incidentes_%s_%s_%s.csv", slug, day, stamp))
	if err := p.writeArtifact(path, func(w io.Writer) error {
		return export.WriteIncidentsCSV(w, records)
	}); err != nil {
		return "", 0, err
	}

	p.logger.Info().
		Str("pais", slug).
		Str("day", day).
		Int("records", len(records)).
		Int("geocoded", geocoded).
		Str("path", path).
		Msg("day records exported")
	return path, len(records), nil
}
