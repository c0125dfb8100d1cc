package sicu

import (
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"opsintel/models"
)

const (
	// Rows whose descriptions score at or above this ratio are treated
	// as the same incident.
	similarityThreshold = 0.75
	// Maximum distance between two parseable horas for rows to merge.
	timeWindowMinutes = 120
)

// ParseTimeToMinutes converts an "HH:MM" string to minutes since
// midnight. The minutes part is optional. Blank or malformed values
// report ok=false and are treated as unknown by the deduplicator.
func ParseTimeToMinutes(hora string) (int, bool) {
	hora = strings.TrimSpace(hora)
	if hora == "" {
		return 0, false
	}
	parts := strings.Split(hora, ":")
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	m := 0
	if len(parts) > 1 {
		m, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, false
		}
	}
	return h*60 + m, true
}

// Similarity scores two descriptions in [0,1] using a character level
// sequence ratio. Either side blank scores 0.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(runeStrings(a), runeStrings(b)).Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Deduplicate merges rows that describe the same incident. Rows are
// grouped by (pais, categoria_sicu, fecha, localizacion), compared
// case-insensitively, then clustered greedily inside each group: a row
// joins the first cluster whose representative (the cluster's first
// row) has a similar enough description, unless both horas parse and
// lie more than two hours apart. An hora that does not parse never
// blocks a merge.
//
// Merged rows keep the first row's fields, join the distinct fuente
// values with " | " in first-appearance order, and fill lat/lon from
// the first non-empty value in the cluster.
func Deduplicate(rows []models.SICURow) []models.SICURow {
	type groupKey struct {
		pais, cat, fecha, loc string
	}

	grouped := make(map[groupKey][]models.SICURow)
	var order []groupKey
	for _, r := range rows {
		key := groupKey{
			pais:  strings.ToLower(strings.TrimSpace(r.Pais)),
			cat:   strings.ToLower(strings.TrimSpace(r.CategoriaSICU)),
			fecha: strings.TrimSpace(r.Fecha),
			loc:   strings.ToLower(strings.TrimSpace(r.Localizacion)),
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], r)
	}

	var deduped []models.SICURow
	for _, key := range order {
		var clusters [][]models.SICURow

		for _, row := range grouped[key] {
			desc := strings.TrimSpace(row.Descripcion)
			rowMin, rowHasTime := ParseTimeToMinutes(row.Hora)
			placed := false

			for i := range clusters {
				rep := clusters[i][0]
				if Similarity(desc, strings.TrimSpace(rep.Descripcion)) < similarityThreshold {
					continue
				}
				repMin, repHasTime := ParseTimeToMinutes(rep.Hora)
				if rowHasTime && repHasTime {
					delta := rowMin - repMin
					if delta < 0 {
						delta = -delta
					}
					if delta > timeWindowMinutes {
						continue
					}
				}
				clusters[i] = append(clusters[i], row)
				placed = true
				break
			}
			if !placed {
				clusters = append(clusters, []models.SICURow{row})
			}
		}

		for _, cluster := range clusters {
			if len(cluster) == 1 {
				deduped = append(deduped, cluster[0])
				continue
			}
			deduped = append(deduped, mergeCluster(cluster))
		}
	}
	return deduped
}

func mergeCluster(cluster []models.SICURow) models.SICURow {
	base := cluster[0]

	var fuentes []string
	for _, r := range cluster {
		f := strings.TrimSpace(r.FuenteURL)
		if f == "" || containsString(fuentes, f) {
			continue
		}
		fuentes = append(fuentes, f)
	}
	if len(fuentes) > 0 {
		base.FuenteURL = strings.Join(fuentes, " | ")
	}

	if strings.TrimSpace(base.Lat) == "" {
		for _, r := range cluster {
			if lat := strings.TrimSpace(r.Lat); lat != "" {
				base.Lat = lat
				break
			}
		}
	}
	if strings.TrimSpace(base.Lon) == "" {
		for _, r := range cluster {
			if lon := strings.TrimSpace(r.Lon); lon != "" {
				base.Lon = lon
				break
			}
		}
	}
	return base
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
