// Package classify maps free text onto the fixed SICU taxonomy using
// ordered keyword rules. Rule order is part of the contract: the first
// category whose keyword list has a substring hit wins, so a text
// mentioning both an attack and a protest is filed under the attack.
package classify

import (
	"strings"

	"opsintel/models"
)

type rule struct {
	category models.Category
	keywords []string
}

// Rules for raw (mixed-language) feed text.
var generalRules = []rule{
	{models.CategoryTerrorismo, []string{
		"terrorismo", "terrorist", "ied", "artefacto explosivo improvisado",
		"suicide bomb", "bomba suicida", "car bomb", "explosive device",
	}},
	{models.CategoryConflictoArmado, []string{
		"enfrentamiento", "combate", "shelling", "artillery", "bombardeo",
		"clashes", "firefight", "ataque aéreo", "airstrike", "misil", "drone strike",
	}},
	{models.CategoryCriminalidad, []string{
		"criminal", "delincuencia", "robbery", "asalto", "secuestro", "kidnap",
		"extorsión", "narco", "smuggling", "homicidio", "murder", "shooting",
	}},
	{models.CategoryDisturbiosCiviles, []string{
		"protesta", "protest", "manifestación", "manifestacion", "riot",
		"huelga", "strike", "bloqueo", "roadblock", "march",
	}},
	{models.CategoryHazards, []string{
		"inundacion", "inundación", "flood", "tormenta", "storm", "huracán",
		"hurricane", "terremoto", "earthquake", "deslizamiento", "landslide",
		"incendio", "fire",
	}},
}

// Rules for already-summarized Spanish text. Conflicto Armado is checked
// first in this variant.
var summaryRules = []rule{
	{models.CategoryConflictoArmado, []string{
		"combate", "enfrentamiento", "tiroteo", "disparos", "militar", "fuerzas armadas",
	}},
	{models.CategoryTerrorismo, []string{
		"bomba", "explosión", "atentado", "terrorista",
	}},
	{models.CategoryCriminalidad, []string{
		"atraco", "robo", "asesinato", "pandilla", "drogas",
	}},
	{models.CategoryDisturbiosCiviles, []string{
		"protesta", "manifestación", "disturbios", "huelga",
	}},
	{models.CategoryHazards, []string{
		"inundación", "terremoto", "incendio", "deslizamiento", "tormenta", "ciclón",
	}},
}

func match(text string, rules []rule, fallback models.Category) models.Category {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return fallback
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				return r.category
			}
		}
	}
	return fallback
}

// Classify categorizes raw feed text, defaulting to Sin clasificar when
// no keyword hits.
func Classify(text string) models.Category {
	return match(text, generalRules, models.CategorySinClasificar)
}

// ClassifySummary categorizes a cleaned Spanish summary, defaulting to
// Otros when no keyword hits.
func ClassifySummary(text string) models.Category {
	return match(text, summaryRules, models.CategoryOtros)
}
