// Package incident registers parsed incidents into the append-only
// ledger with dedup-on-insert and re-resolves coordinates for rows
// still missing them.
package incident

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"opsintel/db"
	"opsintel/internal/geocode"
	"opsintel/internal/parser"
	"opsintel/internal/util"
	"opsintel/models"
)

const defaultFuente = "Informe Diario"

// Service wires the ledger repository, the write serializer and the
// location resolver together.
type Service struct {
	incidents db.IncidentRepository
	manager   *db.DBManager
	resolver  *geocode.Resolver
	logger    *zerolog.Logger
}

// NewService builds the registrar. A nil resolver disables the
// post-insert resolution pass.
func NewService(incidents db.IncidentRepository, manager *db.DBManager, resolver *geocode.Resolver, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{incidents: incidents, manager: manager, resolver: resolver, logger: logger}
}

// Register inserts one incident and returns its ledger id plus whether
// a new row was created. Registering an identical tuple again returns
// the existing id. The row is already stored when a resolution error
// comes back.
func (s *Service) Register(ctx context.Context, pais string, cand models.IncidentCandidate, resolveNow bool, hint string) (int64, bool, error) {
	stored, inserted, err := s.registerOne(ctx, incidentFromCandidate(pais, cand))
	if err != nil {
		return 0, false, err
	}
	if resolveNow {
		if hint == "" {
			hint = pais
		}
		if _, err := s.ResolvePending(ctx, hint); err != nil {
			return stored.ID, inserted, err
		}
	}
	return stored.ID, inserted, nil
}

// RegisterMany inserts a batch of candidates for one country, skipping
// blank descriptions and tuples already present in the ledger. Returns
// how many new rows were inserted. With resolveNow set, a resolution
// pass over all pending rows runs afterwards, using hint (or pais) as
// the country fallback.
func (s *Service) RegisterMany(ctx context.Context, pais string, candidates []models.IncidentCandidate, resolveNow bool, hint string) (int, error) {
	inserted := 0
	for _, cand := range candidates {
		inc := incidentFromCandidate(pais, cand)
		if inc.Descripcion == "" {
			continue
		}
		_, created, err := s.registerOne(ctx, inc)
		if err != nil {
			return inserted, err
		}
		if created {
			inserted++
		}
	}
	s.logger.Info().Str("pais", pais).Int("inserted", inserted).Int("candidates", len(candidates)).Msg("registered incident batch")

	if resolveNow {
		if hint == "" {
			hint = pais
		}
		if _, err := s.ResolvePending(ctx, hint); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

// RegisterFromText parses a sectioned report and registers every
// bullet it contains.
func (s *Service) RegisterFromText(ctx context.Context, pais, text, fuente string, resolveNow bool, hint string) (int, error) {
	if fuente == "" {
		fuente = defaultFuente
	}
	items := parser.ParseReport(text, fuente)
	candidates := make([]models.IncidentCandidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, models.IncidentCandidate{
			Categoria:   item.Categoria,
			Descripcion: item.Descripcion,
			Place:       item.Place,
			Fuente:      item.Fuente,
		})
	}
	if hint == "" {
		hint = pais
	}
	return s.RegisterMany(ctx, pais, candidates, resolveNow, hint)
}

// ResolvePending geocodes every ledger row that has a place but no
// coordinates, regardless of country; hint stands in for rows without
// one. Returns how many rows were resolved.
func (s *Service) ResolvePending(ctx context.Context, hint string) (int, error) {
	if s.resolver == nil {
		return 0, nil
	}
	pending, err := util.RetryOnLockWithResult(func() ([]*models.Incident, error) {
		return s.incidents.FindPending(ctx, "")
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending incidents: %w", err)
	}

	count := 0
	for _, inc := range pending {
		if inc.Place == nil || strings.TrimSpace(*inc.Place) == "" {
			continue
		}
		pais := inc.Pais
		if pais == "" {
			pais = hint
		}
		result, err := s.resolver.Resolve(ctx, *inc.Place, pais)
		if err != nil {
			return count, err
		}
		if result == nil {
			continue
		}
		if err := util.RetryOnLock(func() error {
			return s.manager.UpdateIncidentGeocode(s.incidents, ctx, inc.ID, result)
		}); err != nil {
			return count, fmt.Errorf("failed to update incident geocode: %w", err)
		}
		count++
	}
	if count > 0 {
		s.logger.Info().Int("resolved", count).Int("pending", len(pending)).Msg("resolved pending incident coordinates")
	}
	return count, nil
}

func (s *Service) registerOne(ctx context.Context, inc *models.Incident) (*models.Incident, bool, error) {
	type outcome struct {
		incident *models.Incident
		inserted bool
	}
	out, err := util.RetryOnLockWithResult(func() (outcome, error) {
		stored, inserted, err := s.manager.RegisterIncident(s.incidents, ctx, inc)
		return outcome{incident: stored, inserted: inserted}, err
	})
	if err != nil {
		return nil, false, err
	}
	return out.incident, out.inserted, nil
}

// incidentFromCandidate normalizes a parsed candidate into a ledger
// record: trimmed description, empty category mapped to Otros, empty
// fuente mapped to the default, blank place stored as NULL.
func incidentFromCandidate(pais string, cand models.IncidentCandidate) *models.Incident {
	inc := &models.Incident{
		Pais:        pais,
		Categoria:   cand.Categoria,
		Descripcion: strings.TrimSpace(cand.Descripcion),
		Fuente:      cand.Fuente,
		Lat:         cand.Lat,
		Lon:         cand.Lon,
	}
	if inc.Categoria == "" {
		inc.Categoria = models.CategoryOtros
	}
	if inc.Fuente == "" {
		inc.Fuente = defaultFuente
	}
	if p := strings.TrimSpace(cand.Place); p != "" {
		inc.Place = &p
	}
	return inc
}
