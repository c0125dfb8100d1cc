// Package parser splits raw operational text into structured pieces: feed
// archives into timestamped entries, and categorized reports into
// per-section incident bullets.
package parser

import (
	"regexp"
	"strings"
	"time"

	"opsintel/models"
)

const headerTimeLayout = "2006-01-02 15:04:05"

// Entry header grammar: --- <channel> @ <YYYY-MM-DD HH:MM:SS> ---
var entryHeaderRE = regexp.MustCompile(`^---\s*(.+?)\s*@\s*(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\s*---\s*$`)

var (
	sectionHeaderRE = regexp.MustCompile(`(?i)^\s*(conflicto armado|terrorismo|delincuencia|criminalidad|disturbios civiles|hazards)\s*:?\s*$`)
	bulletRE        = regexp.MustCompile(`(?i)^\s*[-•*]\s+(.+)$`)
)

// Report sections normalize to canonical SICU categories; "delincuencia"
// is an accepted synonym for Criminalidad.
var sicuSections = map[string]models.Category{
	"conflicto armado":   models.CategoryConflictoArmado,
	"terrorismo":         models.CategoryTerrorismo,
	"delincuencia":       models.CategoryCriminalidad,
	"criminalidad":       models.CategoryCriminalidad,
	"disturbios civiles": models.CategoryDisturbiosCiviles,
	"hazards":            models.CategoryHazards,
}

// Small inline patterns for bullet text; the full extractor in the places
// package is deliberately not used here, report bullets name their place
// directly.
var inlinePlaceREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\ben\s+([A-ZÁÉÍÓÚÜÑ][\p{L}\p{N}_\-\s'’.]+)`),
	regexp.MustCompile(`(?i)\ben la zona de\s+([A-ZÁÉÍÓÚÜÑ][\p{L}\p{N}_\-\s'’.]+)`),
	regexp.MustCompile(`(?i)\ben el distrito de\s+([A-ZÁÉÍÓÚÜÑ][\p{L}\p{N}_\-\s'’.]+)`),
}

// ParseFeed splits an archived feed into its entries. Lines before the
// first header are preamble (weather and exchange blocks) and are
// dropped. A header whose timestamp does not parse still opens an entry,
// with a zero Datetime.
func ParseFeed(text string) []models.FeedEntry {
	var entries []models.FeedEntry
	var current *models.FeedEntry
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		entries = append(entries, *current)
	}

	for _, line := range strings.Split(text, "\n") {
		if m := entryHeaderRE.FindStringSubmatch(line); m != nil {
			flush()
			when, err := time.Parse(headerTimeLayout, m[2])
			if err != nil {
				when = time.Time{}
			}
			current = &models.FeedEntry{Channel: strings.TrimSpace(m[1]), Datetime: when}
			body = nil
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()
	return entries
}

// ParseReport reads a categorized report: section headers name one of the
// six SICU categories, bullet lines under a header become incident
// candidates. Bullets before any header are silently dropped.
func ParseReport(text, defaultFuente string) []models.ReportItem {
	var items []models.ReportItem
	var section models.Category

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if h := sectionHeaderRE.FindStringSubmatch(line); h != nil {
			section = normalizeSection(h[1])
			continue
		}

		m := bulletRE.FindStringSubmatch(line)
		if m == nil || section == "" {
			continue
		}
		desc := strings.TrimSpace(m[1])
		items = append(items, models.ReportItem{
			Categoria:   section,
			Descripcion: desc,
			Place:       ExtractInlinePlace(desc),
			Fuente:      defaultFuente,
		})
	}
	return items
}

func normalizeSection(header string) models.Category {
	if cat, ok := sicuSections[strings.ToLower(strings.TrimSpace(header))]; ok {
		return cat
	}
	return models.CategoryOtros
}

// ExtractInlinePlace returns the first "en <Place>" style match in a
// bullet, trimmed of trailing punctuation, or the empty string.
func ExtractInlinePlace(text string) string {
	for _, re := range inlinePlaceREs {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimRight(strings.TrimSpace(m[1]), ".,;: ")
		}
	}
	return ""
}
