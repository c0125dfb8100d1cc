package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"opsintel/models"
)

// SQLiteGeocodeCacheRepository is a SQLite implementation of GeocodeCacheRepository
type SQLiteGeocodeCacheRepository struct {
	db *sql.DB
}

// NewSQLiteGeocodeCacheRepository creates a new SQLite geocode cache repository
func NewSQLiteGeocodeCacheRepository(db *sql.DB) *SQLiteGeocodeCacheRepository {
	return &SQLiteGeocodeCacheRepository{db: db}
}

// FindByKey retrieves a cached geocoder result by its normalized key
func (r *SQLiteGeocodeCacheRepository) FindByKey(ctx context.Context, key string) (*models.GeocodeCacheEntry, error) {
	query := `
		SELECT key, lat, lon, country, admin1, admin2, accuracy, source, updated_at
		FROM geocache
		WHERE key = ?
	`

	var entry models.GeocodeCacheEntry
	var country, admin1, admin2, accuracy sql.NullString
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&entry.Key, &entry.Lat, &entry.Lon,
		&country, &admin1, &admin2, &accuracy,
		&entry.Source, &entry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find geocode cache entry: %w", err)
	}

	if country.Valid {
		entry.Country = &country.String
	}
	if admin1.Valid {
		entry.Admin1 = &admin1.String
	}
	if admin2.Valid {
		entry.Admin2 = &admin2.String
	}
	if accuracy.Valid {
		entry.Accuracy = &accuracy.String
	}

	return &entry, nil
}

// Upsert creates or overwrites the cache entry for the entry's key
func (r *SQLiteGeocodeCacheRepository) Upsert(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	entry.UpdatedAt = time.Now()

	_, err := r.FindByKey(ctx, entry.Key)
	if err == ErrNotFound {
		return r.create(ctx, entry)
	}
	if err != nil {
		return err
	}

	return r.update(ctx, entry)
}

func (r *SQLiteGeocodeCacheRepository) create(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	query := `
		INSERT INTO geocache (key, lat, lon, country, admin1, admin2, accuracy, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Key, entry.Lat, entry.Lon,
		nullableString(entry.Country), nullableString(entry.Admin1),
		nullableString(entry.Admin2), nullableString(entry.Accuracy),
		entry.Source, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create geocode cache entry: %w", err)
	}

	return nil
}

func (r *SQLiteGeocodeCacheRepository) update(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	query := `
		UPDATE geocache SET
			lat = ?, lon = ?, country = ?, admin1 = ?, admin2 = ?,
			accuracy = ?, source = ?, updated_at = ?
		WHERE key = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.Lat, entry.Lon,
		nullableString(entry.Country), nullableString(entry.Admin1),
		nullableString(entry.Admin2), nullableString(entry.Accuracy),
		entry.Source, entry.UpdatedAt, entry.Key,
	)
	if err != nil {
		return fmt.Errorf("failed to update geocode cache entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the repository (satisfies Repository interface)
func (r *SQLiteGeocodeCacheRepository) Close() error {
	// SQLite connection is managed by the main DB instance
	return nil
}
