// Package places pulls the single best place-name candidate out of free
// text. Extraction runs ordered linguistic patterns first, then hashtag
// tokens, then a capitalized-phrase fallback; every raw hit passes a
// cleaning and stop-list gauntlet before it can win.
package places

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wsRE      = regexp.MustCompile(`\s+`)
	hashtagRE = regexp.MustCompile(`#([^\s#.,;:]+)`)

	// Searched in order; the first accepted candidate wins. Patterns 1-3
	// are case-insensitive so mid-sentence prepositions still hit; the
	// line-title and parenthetical patterns require a real capital.
	mainPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:en|en la|en el|en los|en las|in|at|within|inside)\s+([A-ZÁÉÍÓÚÜÑ][^.,;\n]+)`),
		regexp.MustCompile(`(?i)\b(?:cerca de|en las cercan[ií]as de|en las proximidades de|pr[oó]ximo a|alrededor de|junto a|` +
			`cerca|near|around|outside|west of|east of|south of|north of)\s+([A-ZÁÉÍÓÚÜÑ][^.,;\n]+)`),
		regexp.MustCompile(`(?i)\b(?:al|a la|a los|a las|towards)\s+(?:norte|sur|este|oeste|sureste|suroeste|noreste|noroeste|` +
			`north|south|east|west|northwest|northeast|southwest|southeast)\s+de\s+([A-ZÁÉÍÓÚÜÑ][^.,;\n]+)`),
		regexp.MustCompile(`(?m)^\s*([A-ZÁÉÍÓÚÜÑ][\p{L}\p{N}_\s'’()/\-]+?)\s*[:\-–]\s`),
		regexp.MustCompile(`\b([A-ZÁÉÍÓÚÜÑ][\p{L}\p{N}_\s'’()/\-]+?\([^)]+\))`),
	}

	fallbackRE = regexp.MustCompile(`[A-ZÁÉÍÓÚÜÑ][\p{L}\p{N}_'’\-]+(?:\s+[A-ZÁÉÍÓÚÜÑ][\p{L}\p{N}_'’\-]+){0,3}`)

	directionPrefixRE = regexp.MustCompile(`(?i)^(?:al|a la|a los|a las)\s+(?:norte|sur|este|oeste|` +
		`noreste|noroeste|sureste|suroeste|centro|nordeste|sudeste|sudoeste)\s+de\s+`)
	nearPrefixRE = regexp.MustCompile(`(?i)^(?:cerca de|cercan[ií]as de|en las cercan[ií]as de|en las proximidades de|pr[oó]ximo a|alrededor de|` +
		`junto a|near|around|outside|by)\s+`)
	articlePrefixRE = regexp.MustCompile(`(?i)^(?:la|el|los|las|the)\s+`)
	placePrefixRE   = regexp.MustCompile(`(?i)^(?:ciudad|city|pueblo|town|provincia|province|estado|state|departamento|department|` +
		`region|región|distrito|district|gobernación|governorate)\s+(?:de\s+)?`)
	ofPrefixRE    = regexp.MustCompile(`(?i)^(?:of|de|del|de la|de los|de las)\s+`)
	placeSuffixRE = regexp.MustCompile(`(?i)\s+(?:city|ciudad|province|provincia|state|estado|region|región|district|distrito|governorate|gobierno)$`)

	bulletRE        = regexp.MustCompile(`^[•●]\s*`)
	leadingPunctRE  = regexp.MustCompile(`^["'“‘(\[]+`)
	trailingPunctRE = regexp.MustCompile(`["'”’)\]]+$`)
)

// Hashtag and channel-name noise that never identifies a place.
var genericTags = map[string]bool{
	"libia": true, "libya": true, "news": true, "noticias": true,
	"breaking": true, "ultimahora": true, "alerta": true, "urgent": true,
	"breakingnews": true, "ultima": true, "última": true, "aljazeera": true,
	"الجزيرة": true, "occidental": true, "oriental": true, "meridional": true,
	"septentrional": true, "hamas": true,
}

var fallbackExclude = map[string]bool{
	"ministerio": true, "gobierno": true, "presidente": true, "ministro": true,
	"defensa": true, "fuerzas": true, "ejército": true, "army": true,
	"forces": true, "breaking": true, "urgent": true, "occidental": true,
	"oriental": true, "meridional": true, "septentrional": true,
	"seguridad": true, "ataques": true, "taller": true, "fuera": true,
}

var sourcePrefixes = []string{
	"primer ministro", "ministro", "ministerio", "presidente", "canal",
	"reuters", "agencia", "oficina", "fuente", "ejército", "army", "forces",
	"taller",
}

var relativeClausePrefixes = []string{"que ", "el que ", "la que ", "los que ", "las que "}

var bareArticles = map[string]bool{"los": true, "las": true, "el": true, "la": true, "lo": true}

var knownRewrites = map[string]string{
	"gaza strip":    "Gaza Strip",
	"gaza city":     "Gaza City",
	"tripoli libya": "Tripoli, Libya",
}

// Connectives that signal the candidate ran past the place name into a
// relative clause; truncation applies only past position 3 so short names
// like "El que" fail later filters instead.
var primaryStoppers = []string{
	" que ", " ha ", " han ", " está ", " están ", " estan ",
	" será ", " seran ", " serán ", " fueron ", " informan ", " indicando ",
}

var locativeStoppers = []string{" en el ", " en la ", " en los ", " en las "}

// Extract returns the best place candidate found across the given texts,
// trying each text fully before moving to the next. The first text that
// yields any accepted candidate wins; candidates are never merged across
// texts. Returns the empty string when nothing survives filtering.
func Extract(texts ...string) string {
	seen := make(map[string]bool)
	var candidates []string

	push := func(raw string) {
		cleaned := CleanToken(raw)
		if cleaned == "" {
			return
		}
		lowered := strings.ToLower(cleaned)
		if isUpper(cleaned) && runeLen(cleaned) > 3 {
			cleaned = titleCase(cleaned)
			lowered = strings.ToLower(cleaned)
		}
		if genericTags[lowered] || seen[lowered] {
			return
		}
		for _, p := range relativeClausePrefixes {
			if strings.HasPrefix(lowered, p) {
				return
			}
		}
		for _, p := range sourcePrefixes {
			if strings.HasPrefix(lowered, p) {
				return
			}
		}
		if strings.Contains(lowered, " informan ") {
			return
		}
		if runeLen(cleaned) <= 2 || bareArticles[lowered] {
			return
		}
		if isUpper(cleaned) && runeLen(cleaned) <= 4 {
			return
		}
		seen[lowered] = true
		candidates = append(candidates, cleaned)
	}

	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, pattern := range mainPatterns {
			if m := pattern.FindStringSubmatch(text); m != nil {
				push(m[1])
			}
		}
		if len(candidates) > 0 {
			break
		}

		for _, m := range hashtagRE.FindAllStringSubmatch(text, -1) {
			push(m[1])
		}
		if len(candidates) > 0 {
			break
		}

		for _, chunk := range fallbackRE.FindAllString(text, -1) {
			if runeLen(chunk) < 3 {
				continue
			}
			words := strings.Fields(chunk)
			if isUpper(chunk) && len(words) == 1 {
				continue
			}
			excluded := false
			for _, w := range words {
				if fallbackExclude[strings.ToLower(w)] {
					excluded = true
					break
				}
			}
			if excluded {
				continue
			}
			push(chunk)
			if len(candidates) > 0 {
				break
			}
		}
	}

	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// CleanToken normalizes one raw place candidate: bullets, quotes and
// brackets stripped, direction/near/article/place-type qualifiers removed,
// known aliases rewritten, then truncated at trailing relative-clause
// connectives.
func CleanToken(token string) string {
	token = strings.TrimSpace(token)
	token = bulletRE.ReplaceAllString(token, "")
	token = leadingPunctRE.ReplaceAllString(token, "")
	token = trailingPunctRE.ReplaceAllString(token, "")
	token = strings.ReplaceAll(token, "_", " ")
	token = strings.TrimSpace(wsRE.ReplaceAllString(token, " "))
	token = directionPrefixRE.ReplaceAllString(token, "")
	token = articlePrefixRE.ReplaceAllString(token, "")
	token = nearPrefixRE.ReplaceAllString(token, "")
	token = placePrefixRE.ReplaceAllString(token, "")
	token = ofPrefixRE.ReplaceAllString(token, "")
	token = placeSuffixRE.ReplaceAllString(token, "")
	if rewrite, ok := knownRewrites[strings.ToLower(token)]; ok {
		token = rewrite
	}
	token = truncateAtStoppers(token, primaryStoppers)
	token = truncateAtStoppers(token, locativeStoppers)
	return token
}

// truncateAtStoppers cuts the token at the first occurrence of each
// stopper found past rune position 3, re-trimming edge punctuation after
// every cut. Indexes are computed over runes so the cut point in the
// lowered copy lines up with the original.
func truncateAtStoppers(token string, stoppers []string) string {
	runes := []rune(token)
	lowered := lowerRunes(runes)
	for _, stop := range stoppers {
		idx := indexRunes(lowered, []rune(stop))
		if idx > 3 {
			token = strings.Trim(string(runes[:idx]), " ,.;:-")
			runes = []rune(token)
			lowered = lowerRunes(runes)
		}
	}
	return token
}

func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(hay, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return -1
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func runeLen(s string) int {
	return len([]rune(s))
}

// isUpper reports whether s contains at least one cased rune and every
// cased rune is uppercase.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// titleCase uppercases the first letter of every letter run and lowercases
// the rest, so shouting-case candidates read like place names.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
