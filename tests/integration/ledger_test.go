package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsintel/db"
	"opsintel/models"
	"opsintel/tests/testutils"
)

func TestIncidentRepository_Integration(t *testing.T) {
	// Setup test database and repositories
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	defer cleanup()

	repo := factory.NewIncidentRepository()
	manager := db.NewDBManager()
	defer manager.Stop()
	ctx := context.Background()

	t.Run("CreateAndFindByTuple", func(t *testing.T) {
		incident := testutils.CreateTestIncidentWithPlace("Libia", models.CategoryConflictoArmado,
			"Enfrentamientos armados en Bengasi entre grupos rivales", "Bengasi")

		saved, err := repo.Create(ctx, incident)
		require.NoError(t, err)
		require.NotZero(t, saved.ID)

		// The tuple lookup is case-insensitive on pais and trims the rest
		found, err := repo.FindByTuple(ctx, "LIBIA", string(models.CategoryConflictoArmado),
			"  Enfrentamientos armados en Bengasi entre grupos rivales  ", "Bengasi")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, found.ID)
		assert.Equal(t, "Libia", found.Pais)
		require.NotNil(t, found.Place)
		assert.Equal(t, "Bengasi", *found.Place)

		// Same description in a different place is a different incident
		_, err = repo.FindByTuple(ctx, "Libia", string(models.CategoryConflictoArmado),
			"Enfrentamientos armados en Bengasi entre grupos rivales", "Sirte")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("RegisterIncidentDeduplicates", func(t *testing.T) {
		first := testutils.CreateTestIncidentWithPlace("Libia", models.CategoryCriminalidad,
			"Robo a mano armada en el centro de Trípoli", "Trípoli")
		saved, inserted, err := manager.RegisterIncident(repo, ctx, first)
		require.NoError(t, err)
		require.True(t, inserted)

		second := testutils.CreateTestIncidentWithPlace("Libia", models.CategoryCriminalidad,
			"Robo a mano armada en el centro de Trípoli", "Trípoli")
		existing, inserted, err := manager.RegisterIncident(repo, ctx, second)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, saved.ID, existing.ID)
	})

	t.Run("FindAllFilters", func(t *testing.T) {
		incidents := []*models.Incident{
			testutils.CreateTestIncident("Chad", models.CategoryTerrorismo, "Atentado en un mercado de Yamena"),
			testutils.CreateTestIncident("Chad", models.CategoryHazards, "Inundaciones en el sur del país"),
			testutils.CreateTestIncidentWithPlace("Chad", models.CategoryTerrorismo, "Secuestro en la frontera norte", "Faya"),
		}
		for _, incident := range incidents {
			_, err := repo.Create(ctx, incident)
			require.NoError(t, err)
		}

		byPais, err := repo.FindAll(ctx, db.IncidentFilter{Pais: "chad"})
		require.NoError(t, err)
		assert.Len(t, byPais, 3)

		byCategoria, err := repo.FindAll(ctx, db.IncidentFilter{
			Pais:      "Chad",
			Categoria: string(models.CategoryTerrorismo),
		})
		require.NoError(t, err)
		assert.Len(t, byCategoria, 2)

		limited, err := repo.FindAll(ctx, db.IncidentFilter{Pais: "Chad", Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "Atentado en un mercado de Yamena", limited[0].Descripcion)

		// Only the row with a place and no coordinates counts as pending
		pending, err := repo.FindAll(ctx, db.IncidentFilter{Pais: "Chad", Pending: true})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "Secuestro en la frontera norte", pending[0].Descripcion)
	})

	t.Run("UpdateGeocodeClearsPending", func(t *testing.T) {
		incident := testutils.CreateTestIncidentWithPlace("Níger", models.CategoryDisturbiosCiviles,
			"Protestas frente al ministerio en Niamey", "Niamey")
		saved, err := repo.Create(ctx, incident)
		require.NoError(t, err)

		pending, err := repo.FindPending(ctx, "Níger")
		require.NoError(t, err)
		require.Len(t, pending, 1)

		err = manager.UpdateIncidentGeocode(repo, ctx, saved.ID, &models.GeocodeResult{
			Lat:      13.5116,
			Lon:      2.1254,
			Admin1:   "Niamey",
			Accuracy: "place",
			Source:   "nominatim",
		})
		require.NoError(t, err)

		pending, err = repo.FindPending(ctx, "Níger")
		require.NoError(t, err)
		assert.Empty(t, pending)

		updated, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.Lat)
		require.NotNil(t, updated.Lon)
		assert.InDelta(t, 13.5116, *updated.Lat, 0.0001)
		assert.InDelta(t, 2.1254, *updated.Lon, 0.0001)
		require.NotNil(t, updated.GeocodeSource)
		assert.Equal(t, "nominatim", *updated.GeocodeSource)

		geocoded, err := repo.FindAll(ctx, db.IncidentFilter{Pais: "Níger", GeocodedOnly: true})
		require.NoError(t, err)
		assert.Len(t, geocoded, 1)
	})

	t.Run("UpdateGeocodeUnknownID", func(t *testing.T) {
		err := repo.UpdateGeocode(ctx, 99999, &models.GeocodeResult{Lat: 1, Lon: 2, Source: "nominatim"})
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}

func TestGeocodeCacheRepository_Integration(t *testing.T) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	defer cleanup()

	cache := factory.NewGeocodeCacheRepository()
	manager := db.NewDBManager()
	defer manager.Stop()
	ctx := context.Background()

	t.Run("MissReturnsNotFound", func(t *testing.T) {
		_, err := cache.FindByKey(ctx, "bengasi||libia")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("UpsertThenFind", func(t *testing.T) {
		entry := testutils.CreateTestGeocodeEntry("bengasi||libia", 32.1167, 20.0667)
		require.NoError(t, cache.Upsert(ctx, entry))

		found, err := cache.FindByKey(ctx, "bengasi||libia")
		require.NoError(t, err)
		assert.InDelta(t, 32.1167, found.Lat, 0.0001)
		assert.InDelta(t, 20.0667, found.Lon, 0.0001)
		assert.Equal(t, "nominatim", found.Source)
		require.NotNil(t, found.Admin1)
		assert.Equal(t, "Test Admin1", *found.Admin1)
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		entry := testutils.CreateTestGeocodeEntry("bengasi||libia", 32.12, 20.07)
		entry.Source = "gazetteer"
		require.NoError(t, manager.UpsertGeocodeEntry(cache, ctx, entry))

		found, err := cache.FindByKey(ctx, "bengasi||libia")
		require.NoError(t, err)
		assert.InDelta(t, 32.12, found.Lat, 0.0001)
		assert.Equal(t, "gazetteer", found.Source)
	})
}
