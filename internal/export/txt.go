package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"opsintel/internal/textnorm"
	"opsintel/models"
)

const (
	locFallback      = "Localización no especificada"
	locFallbackLower = "localización no especificada"
)

// groupedOrder is the category order of the grouped TXT companion.
var groupedOrder = []string{
	"Conflicto Armado",
	"Terrorismo",
	"Criminalidad",
	"Disturbios Civiles",
	"Hazards",
}

// reportOrder is the category order of the daily report.
var reportOrder = []string{
	"Terrorismo",
	"Conflicto Armado",
	"Criminalidad",
	"Disturbios Civiles",
	"Hazards",
}

func groupRows(rows []models.SICURow) map[string][]models.SICURow {
	grouped := make(map[string][]models.SICURow)
	for _, row := range rows {
		cat := strings.TrimSpace(row.CategoriaSICU)
		if cat == "" {
			cat = "Otros"
		}
		grouped[cat] = append(grouped[cat], row)
	}
	return grouped
}

// topLocations formats the up-to-n most frequent locations of a group
// as "loc (count)" items. Ties keep first-appearance order.
func topLocations(items []models.SICURow, n int) string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		loc := it.Localizacion
		if loc == "" {
			loc = locFallback
		}
		if _, seen := counts[loc]; !seen {
			order = append(order, loc)
		}
		counts[loc]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	parts := make([]string, 0, len(order))
	for _, loc := range order {
		parts = append(parts, fmt.Sprintf("%s (%d)", loc, counts[loc]))
	}
	return strings.Join(parts, ", ")
}

// WriteGroupedTXT writes the per-category companion of the SICU CSV: a
// header line, then each non-empty category with its top areas and one
// line per incident.
func WriteGroupedTXT(w io.Writer, rows []models.SICURow) error {
	grouped := groupRows(rows)
	lines := []string{"Sucesos / Incidentes (Clasificación SICU)\n"}
	for _, cat := range groupedOrder {
		items := grouped[cat]
		if len(items) == 0 {
			continue
		}
		lines = append(lines, cat+":")
		if top := topLocations(items, 3); top != "" {
			lines = append(lines, "  Áreas principales: "+top)
		}
		for _, it := range items {
			loc := it.Localizacion
			if loc == "" {
				loc = locFallback
			}
			line := fmt.Sprintf(" - %s → %s", it.Descripcion, loc)
			if it.FuenteURL != "" {
				line += " | Fuente: " + it.FuenteURL
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write grouped txt: %w", err)
	}
	return nil
}

// WriteReportTXT renders the daily report template around the day's
// filtered rows. country is the raw name as the operator supplied it;
// editedAt stamps the edition header.
func WriteReportTXT(w io.Writer, country, day string, rows []models.SICURow, editedAt time.Time) error {
	pais := strings.ToUpper(country)
	areaSRM := textnorm.Capitalize(textnorm.SlugCountry(country))
	grouped := groupRows(rows)

	var lines []string
	add := func(ls ...string) { lines = append(lines, ls...) }

	add("🧱 INFORME SICU – VERSIÓN AUTOMÁTICA")
	add("⸻")
	add("0. ENCABEZADO")
	add(fmt.Sprintf("\t•\tPaís / Área SRM: %s / %s", pais, areaSRM))
	add(fmt.Sprintf("\t•\tFecha (día operativo): %s", day))
	add(fmt.Sprintf("\t•\tHora de edición: %s", editedAt.Format("2006-01-02 15:04:05")))
	add("\t•\tUnidad emisora: OPSINTEL – Unidad de Análisis SICU")
	add("\t•\tFuentes abiertas + incidentes SICU del día")
	add("")

	add("⸻")
	add("🌤 METEOROLOGÍA")
	add("")
	add("(OWM / AEMET según país)")
	add("\t•\tTemp / ST: [por integrar]")
	add("\t•\tViento: [por integrar]")
	add("\t•\tPresión: [por integrar]")
	add("\t•\tVisibilidad: [por integrar]")
	add("\t•\tNubosidad: [por integrar]")
	add("\t•\tProbabilidad precipitación: [por integrar]")
	add("\t•\tMini-pronóstico 6–12 h: [por integrar]")
	add("\t•\tImpacto operativo: [pendiente de análisis específico]")
	add("")

	add("⸻")
	add("1. RESUMEN EJECUTIVO")
	add("")
	add(fmt.Sprintf("(Día operativo %s – total incidentes SICU: %d)", day, len(rows)))
	add("")
	for _, cat := range reportOrder {
		if n := len(grouped[cat]); n > 0 {
			add(fmt.Sprintf("• %s: %d incidente(s) registrado(s).", cat, n))
		}
	}
	add("")
	add("➤ Análisis cualitativo: [Por integrar manualmente]")
	add("")

	add("⸻")
	add("2. DESGLOSE DE EVENTOS POR CATEGORÍAS SICU")
	add("")
	add("(En cada subapartado se añade: Descripción general + incidentes con formato obligatorio)")
	add("")

	addSection := func(cat, titulo string) {
		items := grouped[cat]
		add("⸻")
		add(titulo)
		add("")
		if len(items) == 0 {
			add("\tNo se registraron incidentes en esta categoría durante el día operativo.")
			add("")
			return
		}
		add(fmt.Sprintf("\t• Incidentes registrados: %d", len(items)))
		if top := topLocations(items, 3); top != "" {
			add("\t• Principales áreas afectadas: " + top)
		}
		add("\t• Descripción general: Ver bloque 1.")
		add("")
		for _, it := range items {
			loc := it.Localizacion
			if loc == "" {
				loc = locFallback
			}
			add("\t• Localización: " + loc)
			add("\t\tBreve descripción analítica: " + strings.TrimSpace(it.Descripcion))
			add(fmt.Sprintf("\t\tFecha/Hora: %s %s", it.Fecha, it.Hora))
			if fuente := strings.TrimSpace(it.FuenteURL); fuente != "" {
				add("\t\tFuente: " + fuente)
			}
			add("")
		}
	}

	addSection("Terrorismo", "2.1. TERRORISMO")
	addSection("Conflicto Armado", "2.2. CONFLICTO ARMADO")
	addSection("Criminalidad", "2.3. CRIMINALIDAD")
	addSection("Disturbios Civiles", "2.4. DISTURBIOS CIVILES")
	addSection("Hazards", "2.5. HAZARDS")

	add("⸻")
	add("3. MAPA DE FOCOS (24 h) Y PROYECCIÓN 24–72 h")
	add("")
	add("Focos de hoy (24 h):")
	hasFocos := false
	for _, cat := range reportOrder {
		items := grouped[cat]
		if len(items) == 0 {
			continue
		}
		hasFocos = true
		seen := make(map[string]bool)
		var areas []string
		for _, it := range items {
			loc := it.Localizacion
			if loc == "" {
				loc = locFallbackLower
			}
			if !seen[loc] {
				seen[loc] = true
				areas = append(areas, loc)
			}
		}
		add(fmt.Sprintf("\t• %s: %d foco(s) – principales áreas: %s", cat, len(items), strings.Join(areas, ", ")))
	}
	if !hasFocos {
		add("\t• Sin focos SICU identificados en las últimas 24 h.")
	}
	add("")
	add("Proyección 24–72 h: [Por integrar manualmente]")
	add("")

	add("⸻")
	add("4. AVIACIÓN, MOVILIDAD Y CAMBIO")
	add("")
	add("Aviación:")
	add("\t• Estado de aeropuertos / helipuertos / corredores aéreos: [por integrar]")
	add("\t• NOTAM relevantes: [por integrar]")
	add("\t• Actividad aérea militar (UAV, artillería, jets): [por integrar]")
	add("\t• Impacto meteorológico en vuelos / evacuaciones: [por integrar]")
	add("")
	add("Movilidad:")
	add("\t• MSR activas / cerradas: [por integrar]")
	add("\t• Chequeos, bloqueos, focos de violencia: [por integrar]")
	add("\t• Riesgos de convoyes (UXO/MUSE, bandas, facciones armadas): [por integrar]")
	add("\t• Corredores recomendados: [por integrar]")
	add("\t• Zonas a restringir o prohibir: [por integrar]")
	add("")
	add("Cambio (Exchange / Mercado Negro / Liquidez):")
	add("\t• Cambio oficial del país → USD y EUR: [por integrar]")
	add("\t• Cambio real de calle / mercado negro: [por integrar]")
	add("\t• Disponibilidad de efectivo / colapsos bancarios / restricciones: [por integrar]")
	add("\t• Impacto operativo: coste para convoyes, capacidad de compra de personal ONU/INGO, inflación y deterioro económico local.")
	add("")

	add("⸻")
	add("5. SITUACIÓN MISIÓN ONU / AUTORIDADES / FUERZA MULTINACIONAL")
	add("\t• Postura de seguridad UNDSS / SIOC: [por integrar]")
	add("\t• Riesgos para instalaciones y personal ONU: [por integrar]")
	add("\t• Estado del despliegue multinacional (ISF, BINUH, MINUSMA, etc.): [por integrar]")
	add("\t• Decisiones recientes del CSNU / Gobierno / Alianzas: [por integrar]")
	add("\t• Actividad hostil contra personal ONU o INGO: [por integrar]")
	add("\t• Cambios en reglas de movimiento / niveles de alerta: [por integrar]")
	add("\t• Evaluación estratégica del día: [por integrar]")
	add("")

	add("⸻")
	add("6. RECOMENDACIONES")
	add("")
	add("6.1 Seguridad y Movilidad")
	add("\t• [Por completar manualmente]")
	add("")
	add("6.2 Humanitario / Hazards")
	add("\t• [Por completar manualmente]")
	add("")
	add("6.3 Marco Político–Estratégico / ONU / Fuerza Multinacional")
	add("\t• [Por completar manualmente]")
	add("")

	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
