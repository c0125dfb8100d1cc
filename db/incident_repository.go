package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"opsintel/models"
)

// SQLiteIncidentRepository is a SQLite implementation of IncidentRepository
type SQLiteIncidentRepository struct {
	db *sql.DB
}

// NewSQLiteIncidentRepository creates a new SQLite incident repository
func NewSQLiteIncidentRepository(db *sql.DB) *SQLiteIncidentRepository {
	return &SQLiteIncidentRepository{db: db}
}

const incidentColumns = `id, pais, categoria, descripcion, fuente, lat, lon, place,
	admin1, admin2, accuracy, geocode_source, created_at, updated_at`

// Create appends a new incident to the ledger and assigns its ID
func (r *SQLiteIncidentRepository) Create(ctx context.Context, incident *models.Incident) (*models.Incident, error) {
	now := time.Now()
	incident.CreatedAt = now
	incident.UpdatedAt = now
	incident.Descripcion = strings.TrimSpace(incident.Descripcion)
	if incident.Place != nil && strings.TrimSpace(*incident.Place) == "" {
		incident.Place = nil
	}

	query := `
		INSERT INTO incidentes (
			pais, categoria, descripcion, fuente, lat, lon, place,
			admin1, admin2, accuracy, geocode_source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		incident.Pais, string(incident.Categoria), incident.Descripcion, incident.Fuente,
		nullableFloat(incident.Lat), nullableFloat(incident.Lon), nullableString(incident.Place),
		nullableString(incident.Admin1), nullableString(incident.Admin2),
		nullableString(incident.Accuracy), nullableString(incident.GeocodeSource),
		incident.CreatedAt, incident.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get incident id: %w", err)
	}
	incident.ID = id

	return incident, nil
}

// FindByTuple looks up the ledger record matching the normalized
// (pais, categoria, descripcion, place) tuple. Pais is compared
// case-insensitively, descripcion and place after trimming, and an
// empty place matches NULL or blank stored places. Returns ErrNotFound
// when no record matches.
func (r *SQLiteIncidentRepository) FindByTuple(ctx context.Context, pais, categoria, descripcion, place string) (*models.Incident, error) {
	pais = strings.ToLower(strings.TrimSpace(pais))
	descripcion = strings.TrimSpace(descripcion)
	place = strings.TrimSpace(place)

	query := `SELECT ` + incidentColumns + ` FROM incidentes
		WHERE LOWER(pais) = ? AND categoria = ? AND TRIM(descripcion) = ?`
	args := []interface{}{pais, categoria, descripcion}
	if place == "" {
		query += ` AND (place IS NULL OR TRIM(place) = '')`
	} else {
		query += ` AND place IS NOT NULL AND TRIM(place) = ?`
		args = append(args, place)
	}
	query += ` ORDER BY id LIMIT 1`

	incident, err := r.scanIncident(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find incident by tuple: %w", err)
	}

	return incident, nil
}

// FindByID retrieves one incident by its ledger ID
func (r *SQLiteIncidentRepository) FindByID(ctx context.Context, id int64) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidentes WHERE id = ?`

	incident, err := r.scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find incident by id: %w", err)
	}

	return incident, nil
}

// FindAll retrieves incidents in insertion order, optionally filtered
func (r *SQLiteIncidentRepository) FindAll(ctx context.Context, filter IncidentFilter) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidentes`

	var conditions []string
	var args []interface{}
	if filter.Pais != "" {
		conditions = append(conditions, "LOWER(pais) = ?")
		args = append(args, strings.ToLower(filter.Pais))
	}
	if filter.Categoria != "" {
		conditions = append(conditions, "categoria = ?")
		args = append(args, filter.Categoria)
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, *filter.Until)
	}
	if filter.Pending {
		conditions = append(conditions, "place IS NOT NULL AND TRIM(place) != '' AND (lat IS NULL OR lon IS NULL)")
	}
	if filter.GeocodedOnly {
		conditions = append(conditions, "lat IS NOT NULL AND lon IS NOT NULL")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*models.Incident
	for rows.Next() {
		incident, err := r.scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incidents: %w", err)
	}

	return incidents, nil
}

// FindPending retrieves incidents that have a place string but no
// resolved coordinates yet. An empty pais matches all countries.
func (r *SQLiteIncidentRepository) FindPending(ctx context.Context, pais string) ([]*models.Incident, error) {
	filter := IncidentFilter{Pais: pais, Pending: true}
	return r.FindAll(ctx, filter)
}

// UpdateGeocode amends one incident with resolved coordinates
func (r *SQLiteIncidentRepository) UpdateGeocode(ctx context.Context, id int64, result *models.GeocodeResult) error {
	query := `
		UPDATE incidentes SET
			lat = ?, lon = ?, admin1 = ?, admin2 = ?, accuracy = ?,
			geocode_source = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query,
		result.Lat, result.Lon,
		nullableStringValue(result.Admin1), nullableStringValue(result.Admin2),
		nullableStringValue(result.Accuracy), result.Source,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident geocode: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the repository (satisfies Repository interface)
func (r *SQLiteIncidentRepository) Close() error {
	// SQLite connection is managed by the main DB instance
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SQLiteIncidentRepository) scanIncident(row rowScanner) (*models.Incident, error) {
	var incident models.Incident
	var categoria string
	var lat, lon sql.NullFloat64
	var place, admin1, admin2, accuracy, geocodeSource sql.NullString

	err := row.Scan(
		&incident.ID, &incident.Pais, &categoria, &incident.Descripcion, &incident.Fuente,
		&lat, &lon, &place, &admin1, &admin2, &accuracy, &geocodeSource,
		&incident.CreatedAt, &incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	incident.Categoria = models.Category(categoria)
	if lat.Valid {
		incident.Lat = &lat.Float64
	}
	if lon.Valid {
		incident.Lon = &lon.Float64
	}
	if place.Valid {
		incident.Place = &place.String
	}
	if admin1.Valid {
		incident.Admin1 = &admin1.String
	}
	if admin2.Valid {
		incident.Admin2 = &admin2.String
	}
	if accuracy.Valid {
		incident.Accuracy = &accuracy.String
	}
	if geocodeSource.Valid {
		incident.GeocodeSource = &geocodeSource.String
	}

	return &incident, nil
}

// nullableString converts a string pointer to sql.NullString
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableFloat converts a float pointer to sql.NullFloat64
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
