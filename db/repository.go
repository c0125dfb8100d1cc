package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"opsintel/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repository defines a common interface for all repositories
type Repository interface {
	Close() error
}

// IncidentFilter narrows ledger queries; zero values mean "no filter"
type IncidentFilter struct {
	Pais         string
	Categoria    string
	Since        *time.Time
	Until        *time.Time
	Pending      bool
	GeocodedOnly bool
	Limit        int
}

// IncidentRepository defines the interface for incident ledger operations
type IncidentRepository interface {
	Repository
	Create(ctx context.Context, incident *models.Incident) (*models.Incident, error)
	FindByTuple(ctx context.Context, pais, categoria, descripcion, place string) (*models.Incident, error)
	FindByID(ctx context.Context, id int64) (*models.Incident, error)
	FindAll(ctx context.Context, filter IncidentFilter) ([]*models.Incident, error)
	FindPending(ctx context.Context, pais string) ([]*models.Incident, error)
	UpdateGeocode(ctx context.Context, id int64, result *models.GeocodeResult) error
}

// GeocodeCacheRepository defines the interface for geocode cache operations
type GeocodeCacheRepository interface {
	Repository
	FindByKey(ctx context.Context, key string) (*models.GeocodeCacheEntry, error)
	Upsert(ctx context.Context, entry *models.GeocodeCacheEntry) error
}

// RepositoryFactory creates repositories backed by the shared SQLite handle
type RepositoryFactory struct {
	SQLiteDB *sql.DB
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB) *RepositoryFactory {
	return &RepositoryFactory{
		SQLiteDB: sqliteDB,
	}
}

// NewIncidentRepository creates a new incident repository
func (f *RepositoryFactory) NewIncidentRepository() IncidentRepository {
	return NewSQLiteIncidentRepository(f.SQLiteDB)
}

// NewGeocodeCacheRepository creates a new geocode cache repository
func (f *RepositoryFactory) NewGeocodeCacheRepository() GeocodeCacheRepository {
	return NewSQLiteGeocodeCacheRepository(f.SQLiteDB)
}
