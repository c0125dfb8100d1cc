package geocode

import (
	"regexp"
	"strings"
)

var (
	wsRE     = regexp.MustCompile(`\s+`)
	parensRE = regexp.MustCompile(`\(([^)]+)\)`)

	directionRE = regexp.MustCompile(`(?i)\b(?:al|a la|a los|a las|towards|north of|south of|east of|west of|` +
		`noreste de|noroeste de|norte de|sur de|este de|oeste de|noreste|noroeste|sureste|suroeste)\b`)
	nearRE = regexp.MustCompile(`(?i)\b(?:cerca de|en las cercan[ií]as de|en las proximidades de|pr[oó]ximo a|` +
		`alrededor de|near|around|adjacent to|junto a|junto al|junto a la)\b`)
	trailingQualifierRE = regexp.MustCompile(`(?i)(?:\b(?:city|ciudad|province|provincia|state|estado|region|región|` +
		`district|distrito|governorate)\b\.?)$`)
)

// countryAliases folds the country spellings used across feeds onto
// the names the online geocoder resolves best.
var countryAliases = map[string]string{
	"libia":              "Libya",
	"libya":              "Libya",
	"haiti":              "Haiti",
	"haití":              "Haiti",
	"colombia":           "Colombia",
	"campello":           "Spain",
	"españa":             "Spain",
	"spain":              "Spain",
	"gaza":               "Gaza Strip",
	"gaza strip":         "Gaza Strip",
	"palestine":          "State of Palestine",
	"palestina":          "State of Palestine",
	"state of palestine": "State of Palestine",
	"liberia":            "Liberia",
}

// CanonicalCountry maps loose country names onto the spelling the
// geocoder expects. Unknown names pass through trimmed.
func CanonicalCountry(country string) string {
	norm := strings.ToLower(strings.TrimSpace(country))
	if norm == "" {
		return ""
	}
	if mapped, ok := countryAliases[norm]; ok {
		return mapped
	}
	return strings.TrimSpace(country)
}

// SanitizePlace strips list markers, directional and proximity phrases
// and trailing place-type qualifiers from a raw place string.
func SanitizePlace(place string) string {
	cleaned := strings.Trim(strings.TrimSpace(place), ",.;")
	cleaned = strings.NewReplacer("#", " ", "•", " ", "●", " ").Replace(cleaned)
	cleaned = directionRE.ReplaceAllString(cleaned, "")
	cleaned = nearRE.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(wsRE.ReplaceAllString(cleaned, " "), " ,;:-")
	cleaned = strings.Trim(trailingQualifierRE.ReplaceAllString(cleaned, ""), " ,;:-")
	return cleaned
}

// altTokens yields sub-tokens worth querying on their own: parenthetical
// contents, the head and tail around the first comma, and slash pieces.
func altTokens(place string) []string {
	var tokens []string
	for _, m := range parensRE.FindAllStringSubmatch(place, -1) {
		if chunk := SanitizePlace(m[1]); chunk != "" {
			tokens = append(tokens, chunk)
		}
	}
	if strings.Contains(place, ",") {
		rawHead, rawTail, _ := strings.Cut(place, ",")
		head := SanitizePlace(rawHead)
		tail := SanitizePlace(rawTail)
		if head != "" {
			tokens = append(tokens, head)
		}
		if tail != "" && tail != head {
			tokens = append(tokens, tail)
		}
	}
	if strings.Contains(place, "/") {
		for _, piece := range strings.Split(place, "/") {
			if p := SanitizePlace(piece); p != "" {
				tokens = append(tokens, p)
			}
		}
	}
	return tokens
}

// BuildQueries produces the ordered, lowercase-deduplicated list of
// geocoder queries for a place: the sanitized place, place plus
// country, then each alternative token with and without the country.
// When nothing survives sanitizing, the country alone is queried.
func BuildQueries(place, country string) []string {
	var queries []string
	seen := make(map[string]bool)
	add := func(candidate string) {
		c := strings.Trim(candidate, ", ")
		if c == "" {
			return
		}
		canon := strings.ToLower(c)
		if seen[canon] {
			return
		}
		seen[canon] = true
		queries = append(queries, c)
	}

	if base := SanitizePlace(place); base != "" {
		add(base)
		if country != "" {
			add(base + ", " + country)
		}
	}
	for _, extra := range altTokens(place) {
		add(extra)
		if country != "" {
			add(extra + ", " + country)
		}
	}
	if len(queries) == 0 && country != "" {
		add(country)
	}
	return queries
}

// CacheKey builds the persistent cache key for a place and country.
func CacheKey(place, country string) string {
	return strings.ToLower(SanitizePlace(place)) + "||" + strings.ToLower(CanonicalCountry(country))
}
