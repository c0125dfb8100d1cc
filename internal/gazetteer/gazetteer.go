// Package gazetteer loads per-country place lists from CSV files and
// resolves free text or location strings against them.
package gazetteer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"opsintel/internal/textnorm"
	"opsintel/models"
)

// headerAliases maps the header spellings seen in the wild onto the
// canonical column names.
var headerAliases = map[string]string{
	"name":         "name",
	"nombre":       "name",
	"localidad":    "name",
	"city":         "name",
	"town":         "name",
	"admin1":       "admin1",
	"adm1":         "admin1",
	"provincia":    "admin1",
	"departamento": "admin1",
	"admin2":       "admin2",
	"adm2":         "admin2",
	"municipio":    "admin2",
	"distrito":     "admin2",
	"commune":      "admin2",
	"lat":          "lat",
	"latitude":     "lat",
	"y":            "lat",
	"lon":          "lon",
	"long":         "lon",
	"lng":          "lon",
	"longitude":    "lon",
	"x":            "lon",
	"aliases":      "aliases",
	"alias":        "aliases",
	"kind":         "kind",
	"tipo":         "kind",
	"type":         "kind",
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Gazetteer holds the rows of one country file in file order.
type Gazetteer struct {
	places []models.GazetteerPlace
}

// New builds a gazetteer from already loaded rows.
func New(places []models.GazetteerPlace) *Gazetteer {
	return &Gazetteer{places: places}
}

// Load reads <dir>/<slug>.csv. A missing file yields an empty
// gazetteer, not an error, so callers can treat the file as optional.
func Load(dir, slug string) (*Gazetteer, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	path := filepath.Join(dir, slug+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Gazetteer{}, nil
		}
		return nil, fmt.Errorf("failed to open gazetteer %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read gazetteer %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Gazetteer{}, nil
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		if canon, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			cols[canon] = i
		}
	}
	get := func(rec []string, key string) string {
		i, ok := cols[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	g := &Gazetteer{places: make([]models.GazetteerPlace, 0, len(records)-1)}
	for _, rec := range records[1:] {
		p := models.GazetteerPlace{
			Name:   get(rec, "name"),
			Admin1: get(rec, "admin1"),
			Admin2: get(rec, "admin2"),
			Kind:   get(rec, "kind"),
			Lat:    get(rec, "lat"),
			Lon:    get(rec, "lon"),
		}
		for _, a := range strings.Split(get(rec, "aliases"), "|") {
			if a = strings.TrimSpace(a); a != "" {
				p.Aliases = append(p.Aliases, a)
			}
		}
		g.places = append(g.places, p)
	}
	return g, nil
}

// Len reports how many rows were loaded.
func (g *Gazetteer) Len() int { return len(g.places) }

// Places exposes the loaded rows in file order.
func (g *Gazetteer) Places() []models.GazetteerPlace { return g.places }

// MatchText scans rows in file order and returns the first place whose
// name or alias occurs in the text, either as whole words or as a
// substring of the folded text. Lat and lon come back as the raw CSV
// values; rows without both are skipped.
func (g *Gazetteer) MatchText(text string) (name, lat, lon string, ok bool) {
	if text == "" || len(g.places) == 0 {
		return "", "", "", false
	}
	normText := textnorm.Fold(text)
	words := make(map[string]bool)
	for _, w := range wordRE.FindAllString(normText, -1) {
		words[w] = true
	}
	for _, p := range g.places {
		for _, cand := range candidates(p) {
			token := textnorm.Fold(cand)
			if token == "" {
				continue
			}
			parts := strings.Fields(token)
			hit := true
			for _, part := range parts {
				if !words[part] {
					hit = false
					break
				}
			}
			if !hit {
				hit = strings.Contains(normText, token)
			}
			if hit && p.Lat != "" && p.Lon != "" {
				return p.Name, p.Lat, p.Lon, true
			}
		}
	}
	return "", "", "", false
}

// LookupSegments resolves coordinates from a comma separated location
// string, matching each segment exactly against names and aliases.
// Among the matches the highest kind score wins.
func (g *Gazetteer) LookupSegments(loc string) (lat, lon float64, ok bool) {
	if loc == "" || len(g.places) == 0 {
		return 0, 0, false
	}
	bestScore := -1
	for _, seg := range strings.Split(loc, ",") {
		search := strings.ToLower(strings.TrimSpace(seg))
		if search == "" {
			continue
		}
		for _, p := range g.places {
			for _, cand := range candidates(p) {
				if strings.ToLower(cand) != search {
					continue
				}
				la, lo, err := parseCoords(p)
				if err != nil {
					continue
				}
				if score := KindScore(kindOf(p)); score > bestScore {
					bestScore = score
					lat, lon, ok = la, lo, true
				}
			}
		}
	}
	return lat, lon, ok
}

// LookupSubstring infers coordinates from a description by checking
// whether any name or alias occurs as a substring of the lowered text.
// Among the matches the highest kind score wins.
func (g *Gazetteer) LookupSubstring(desc string) (lat, lon float64, ok bool) {
	if desc == "" || len(g.places) == 0 {
		return 0, 0, false
	}
	text := strings.ToLower(desc)
	bestScore := -1
	for _, p := range g.places {
		for _, cand := range candidates(p) {
			token := strings.ToLower(cand)
			if token == "" || !strings.Contains(text, token) {
				continue
			}
			la, lo, err := parseCoords(p)
			if err != nil {
				continue
			}
			if score := KindScore(kindOf(p)); score > bestScore {
				bestScore = score
				lat, lon, ok = la, lo, true
			}
		}
	}
	return lat, lon, ok
}

// libyaTargets are the cities the Libya fallback recognizes, checked
// in order against the combined location and description text.
var libyaTargets = []struct {
	name     string
	keywords []string
}{
	{"Benghazi", []string{"benghazi", "بنغازي", "banġāzī"}},
	{"Sirte", []string{"sirte", "سرت", "surt"}},
	{"Misrata", []string{"misrata", "مصراتة", "miṣrāta"}},
	{"Sabha", []string{"sabha", "sebha", "سبها"}},
	{"Derna", []string{"derna", "darna", "درنة", "darnah"}},
	{"Tobruk", []string{"tobruk", "ṭubruq", "طبرق"}},
}

// HeuristicLibya picks a fallback city for Libyan incidents. A known
// city mentioned in the location or description wins, otherwise
// Tripoli. The chosen city still has to resolve through the gazetteer
// itself.
func (g *Gazetteer) HeuristicLibya(loc, desc string) (lat, lon float64, name string, ok bool) {
	if len(g.places) == 0 {
		return 0, 0, "", false
	}
	text := strings.ToLower(loc + " " + desc)
	target := ""
outer:
	for _, t := range libyaTargets {
		for _, k := range t.keywords {
			if strings.Contains(text, k) {
				target = t.name
				break outer
			}
		}
	}
	if target == "" {
		target = "Tripoli"
	}
	lower := strings.ToLower(target)
	for _, p := range g.places {
		if strings.ToLower(p.Name) != lower {
			continue
		}
		la, lo, err := parseCoords(p)
		if err != nil {
			continue
		}
		return la, lo, target, true
	}
	return 0, 0, "", false
}

// KindScore ranks location kinds so that more specific places beat
// generic ones: airport > official > neighbourhood > town > city.
func KindScore(kind string) int {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "airport", "aeropuerto", "aéroport":
		return 100
	case "official", "palace", "embassy", "gov", "government":
		return 90
	case "neighbourhood", "barrio", "district":
		return 80
	case "town", "village", "pueblo":
		return 70
	case "city", "ciudad":
		return 60
	}
	return 50
}

func candidates(p models.GazetteerPlace) []string {
	c := make([]string, 0, 1+len(p.Aliases))
	if p.Name != "" {
		c = append(c, p.Name)
	}
	return append(c, p.Aliases...)
}

func kindOf(p models.GazetteerPlace) string {
	if p.Kind == "" {
		return "city"
	}
	return p.Kind
}

func parseCoords(p models.GazetteerPlace) (float64, float64, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}
