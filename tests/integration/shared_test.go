package integration

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"opsintel/db"
	"opsintel/internal/archive"
	"opsintel/internal/incident"
	"opsintel/internal/observability"
	"opsintel/internal/pipeline"
	"opsintel/internal/sicu"
	"opsintel/internal/web"
	"opsintel/tests/testutils"
)

// opDay matches the fake clock the API stack runs on.
const opDay = "2025-03-10"

// newAPIStack wires the full service graph against a real SQLite file
// and returns a running test server plus the ledger repository behind it.
func newAPIStack(t *testing.T) (*testutils.TestServer, db.IncidentRepository) {
	t.Helper()

	cfg := testutils.GetTestConfig(t.TempDir())

	sqlDB, cleanup := testutils.SetupTestDatabase(t)
	t.Cleanup(cleanup)
	factory := db.NewRepositoryFactory(sqlDB)
	incidents := factory.NewIncidentRepository()

	manager := db.NewDBManager()
	t.Cleanup(manager.Stop)

	store, err := archive.NewStore(cfg.DataDir)
	require.NoError(t, err)

	ready := &observability.Readiness{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	pipe := pipeline.New(pipeline.Options{
		Config:    cfg,
		Store:     store,
		Registrar: incident.NewService(incidents, manager, nil, nil),
		Builder:   sicu.NewBuilder(nil, nil),
		Readiness: ready,
		Clock:     clock,
		Location:  time.UTC,
	})

	handler := web.NewWebHandler(cfg, pipe, incidents, ready, nil)
	server := testutils.NewTestServer(t, handler.SetupRoutes())
	t.Cleanup(server.Close)

	return server, incidents
}
