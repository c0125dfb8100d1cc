package db

import (
	"context"

	"opsintel/models"
)

// Operation represents a database operation that needs to be executed
type Operation struct {
	Execute func() error
	Result  chan error
}

// OperationWithResult represents a database operation that returns a result
type OperationWithResult struct {
	Execute func() (interface{}, error)
	Result  chan OperationResult
}

// OperationResult contains the result of an operation
type OperationResult struct {
	Data  interface{}
	Error error
}

// DBManager manages serialized access to the database
type DBManager struct {
	opQueue       chan Operation
	resultOpQueue chan OperationWithResult
	stopping      chan struct{}
}

// NewDBManager creates a new database manager
func NewDBManager() *DBManager {
	m := &DBManager{
		opQueue:       make(chan Operation, 100),
		resultOpQueue: make(chan OperationWithResult, 100),
		stopping:      make(chan struct{}),
	}

	// Start the worker goroutine
	go m.worker()

	return m
}

// worker processes operations one at a time
func (m *DBManager) worker() {
	for {
		select {
		case op := <-m.opQueue:
			err := op.Execute()
			op.Result <- err
		case op := <-m.resultOpQueue:
			data, err := op.Execute()
			op.Result <- OperationResult{Data: data, Error: err}
		case <-m.stopping:
			return
		}
	}
}

// ExecuteOperation executes a database operation on the writer goroutine
func (m *DBManager) ExecuteOperation(execute func() error) error {
	resultChan := make(chan error, 1)
	m.opQueue <- Operation{
		Execute: execute,
		Result:  resultChan,
	}
	return <-resultChan
}

// ExecuteOperationWithResult executes a database operation that returns a result
func (m *DBManager) ExecuteOperationWithResult(execute func() (interface{}, error)) (interface{}, error) {
	resultChan := make(chan OperationResult, 1)
	m.resultOpQueue <- OperationWithResult{
		Execute: execute,
		Result:  resultChan,
	}
	result := <-resultChan
	return result.Data, result.Error
}

// Stop stops the database manager
func (m *DBManager) Stop() {
	close(m.stopping)
}

// Methods for specific repository operations

// RegisterIncident runs the dedup lookup and the insert as one
// serialized operation, so concurrent registrations cannot interleave
// between check and insert. Returns the stored incident and whether a
// new row was inserted; a duplicate yields the existing record with
// inserted == false.
func (m *DBManager) RegisterIncident(repo IncidentRepository, ctx context.Context, incident *models.Incident) (*models.Incident, bool, error) {
	type registration struct {
		incident *models.Incident
		inserted bool
	}

	result, err := m.ExecuteOperationWithResult(func() (interface{}, error) {
		place := ""
		if incident.Place != nil {
			place = *incident.Place
		}
		existing, err := repo.FindByTuple(ctx, incident.Pais, string(incident.Categoria), incident.Descripcion, place)
		if err == nil {
			return registration{incident: existing, inserted: false}, nil
		}
		if err != ErrNotFound {
			return nil, err
		}
		created, err := repo.Create(ctx, incident)
		if err != nil {
			return nil, err
		}
		return registration{incident: created, inserted: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	reg := result.(registration)
	return reg.incident, reg.inserted, nil
}

// UpdateIncidentGeocode serializes coordinate amendments to the ledger
func (m *DBManager) UpdateIncidentGeocode(repo IncidentRepository, ctx context.Context, id int64, result *models.GeocodeResult) error {
	return m.ExecuteOperation(func() error {
		return repo.UpdateGeocode(ctx, id, result)
	})
}

// UpsertGeocodeEntry serializes writes to the geocode cache
func (m *DBManager) UpsertGeocodeEntry(repo GeocodeCacheRepository, ctx context.Context, entry *models.GeocodeCacheEntry) error {
	return m.ExecuteOperation(func() error {
		return repo.Upsert(ctx, entry)
	})
}
