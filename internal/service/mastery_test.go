package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contract-server/internal/models"
	"contract-server/internal/service"
	"contract-server/internal/storage"
)

func TestMasteryCurve(t *testing.T) {
	t.Run("XPRequiredForLevel", func(t *testing.T) {
		assert.Equal(t, 0, service.XPRequiredForLevel(0))
		assert.Equal(t, 0, service.XPRequiredForLevel(1))
		assert.Equal(t, 6000, service.XPRequiredForLevel(2))
		assert.Equal(t, 114000, service.XPRequiredForLevel(20))
	})

	t.Run("LevelForXP", func(t *testing.T) {
		assert.Equal(t, 1, service.LevelForXP(-5))
		assert.Equal(t, 1, service.LevelForXP(0))
		assert.Equal(t, 1, service.LevelForXP(5999))
		assert.Equal(t, 2, service.LevelForXP(6000))
		assert.Equal(t, 3, service.LevelForXP(12500))
	})

	t.Run("Curve is consistent", func(t *testing.T) {
		for level := 1; level <= 20; level++ {
			assert.Equal(t, level, service.LevelForXP(service.XPRequiredForLevel(level)), "level %d", level)
		}
	})

	t.Run("ClampLevel", func(t *testing.T) {
		assert.Equal(t, 1, service.ClampLevel(0, 1, 20))
		assert.Equal(t, 20, service.ClampLevel(25, 1, 20))
		assert.Equal(t, 7, service.ClampLevel(7, 1, 20))
	})
}

func newTestMasteryService(t *testing.T) (*service.MasteryService, *service.ProfileStore) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	profiles := service.NewProfileStore(backend, storage.Layout{}, zap.NewNop(), time.Hour)
	t.Cleanup(profiles.Close)
	return service.NewMasteryService(profiles, zap.NewNop()), profiles
}

func TestGetCompletionData(t *testing.T) {
	ctx := context.Background()

	t.Run("Unregistered location yields no-data sentinel", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		profile := models.NewDefaultProfile("user-1", "")
		profiles.Put(profile)

		data, err := mastery.GetCompletionData(ctx, "LOCATION_UNKNOWN", "", "h3", "user-1")
		require.NoError(t, err)
		assert.False(t, data.Available)
		// The profile gains no progression record for the unknown location.
		assert.Empty(t, profile.Extensions.Progression.Locations)
	})

	t.Run("Fresh location starts at level 1", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		mastery.RegisterMasteryData(models.MasteryPackage{ID: "LOCATION_PARIS"})
		profile := models.NewDefaultProfile("user-1", "")
		profiles.Put(profile)

		data, err := mastery.GetCompletionData(ctx, "LOCATION_PARIS", "sub-1", "h3", "user-1")
		require.NoError(t, err)
		assert.True(t, data.Available)
		assert.Equal(t, 1, data.Level)
		assert.Equal(t, service.DefaultMasteryMaxLevel, data.MaxLevel)
		assert.Equal(t, 0, data.XP)
		assert.Equal(t, 6000, data.XpLeft)
		assert.Equal(t, float64(0), data.Completion)
		assert.Equal(t, "sub-1", data.SubLocationID)
		assert.True(t, data.IsLocationProgression)

		// Lazily created records are stored under the lowercase key.
		_, ok := profile.Extensions.Progression.Locations["location_paris"]
		assert.True(t, ok)
	})

	t.Run("Partial progress toward the next level", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		mastery.RegisterMasteryData(models.MasteryPackage{ID: "LOCATION_PARIS"})
		profile := models.NewDefaultProfile("user-1", "")
		profile.Extensions.Progression.Locations["location_paris"] = models.LocationProgression{Xp: 9000, Level: 2}
		profiles.Put(profile)

		data, err := mastery.GetCompletionData(ctx, "LOCATION_PARIS", "", "h3", "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, data.Level)
		assert.Equal(t, 9000, data.XP)
		// Next level (3) needs 12000 total.
		assert.Equal(t, 3000, data.XpLeft)
		assert.InDelta(t, 0.75, data.Completion, 1e-9)
	})

	t.Run("Package can override the level cap", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		mastery.RegisterMasteryData(models.MasteryPackage{ID: "LOCATION_SNUG", MaxLevel: 5})
		profiles.Put(models.NewDefaultProfile("user-1", ""))

		data, err := mastery.GetCompletionData(ctx, "LOCATION_SNUG", "", "h3", "user-1")
		require.NoError(t, err)
		assert.Equal(t, 5, data.MaxLevel)
	})
}

func TestGetMasteryData(t *testing.T) {
	ctx := context.Background()

	t.Run("Unregistered location yields empty slice", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		profiles.Put(models.NewDefaultProfile("user-1", ""))

		views, err := mastery.GetMasteryData(ctx, "LOCATION_UNKNOWN", "h3", "user-1")
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("Lock state follows the player's level", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		mastery.RegisterMasteryData(models.MasteryPackage{
			ID: "LOCATION_PARIS",
			Drops: []models.MasteryDrop{
				{ID: "unlock-1", Level: 2},
				{ID: "unlock-2", Level: 10},
			},
		})
		mastery.RegisterUnlockables("h3", []models.Unlockable{
			{ID: "unlock-1", Type: "weapon"},
			{ID: "unlock-2", Type: "suit"},
		})
		profile := models.NewDefaultProfile("user-1", "")
		profile.Extensions.Progression.Locations["location_paris"] = models.LocationProgression{Xp: 20000, Level: 4}
		profiles.Put(profile)

		views, err := mastery.GetMasteryData(ctx, "LOCATION_PARIS", "h3", "user-1")
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.False(t, views[0].IsLocked)
		assert.True(t, views[1].IsLocked)
		assert.Equal(t, "UI_MENU_PAGE_MASTERY_UNLOCKABLE_NAME_WEAPON", views[0].TypeLocaKey)
	})

	t.Run("Drops without a catalog entry are skipped", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		mastery.RegisterMasteryData(models.MasteryPackage{
			ID: "LOCATION_PARIS",
			Drops: []models.MasteryDrop{
				{ID: "unlock-known", Level: 1},
				{ID: "unlock-missing", Level: 2},
			},
		})
		mastery.RegisterUnlockables("h3", []models.Unlockable{
			{ID: "unlock-known", Type: "weapon"},
		})
		profiles.Put(models.NewDefaultProfile("user-1", ""))

		views, err := mastery.GetMasteryData(ctx, "LOCATION_PARIS", "h3", "user-1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "unlock-known", views[0].Unlockable.ID)
	})
}

func TestAddLocationXP(t *testing.T) {
	ctx := context.Background()

	t.Run("Negative award is rejected", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		profiles.Put(models.NewDefaultProfile("user-1", ""))
		assert.ErrorIs(t, mastery.AddLocationXP(ctx, "user-1", "LOCATION_PARIS", -100), models.ErrInternalInvariant)
	})

	t.Run("XP accrues and levels rise through the curve", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		profile := models.NewDefaultProfile("user-1", "")
		profiles.Put(profile)

		require.NoError(t, mastery.AddLocationXP(ctx, "user-1", "LOCATION_PARIS", 7000))

		location := profile.Extensions.Progression.Locations["location_paris"]
		assert.Equal(t, 7000, location.Xp)
		assert.Equal(t, 2, location.Level)
		assert.Equal(t, 7000, profile.Extensions.Progression.PlayerProfileXP.Total)
		assert.Equal(t, 2, profile.Extensions.Progression.PlayerProfileXP.ProfileLevel)
	})

	t.Run("Level is capped by the package ceiling", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		mastery.RegisterMasteryData(models.MasteryPackage{ID: "LOCATION_SNUG", MaxLevel: 2})
		profile := models.NewDefaultProfile("user-1", "")
		profiles.Put(profile)

		require.NoError(t, mastery.AddLocationXP(ctx, "user-1", "LOCATION_SNUG", 60000))
		assert.Equal(t, 2, profile.Extensions.Progression.Locations["location_snug"].Level)
	})

	t.Run("Zero award never lowers a level", func(t *testing.T) {
		mastery, profiles := newTestMasteryService(t)
		profile := models.NewDefaultProfile("user-1", "")
		profile.Extensions.Progression.Locations["location_paris"] = models.LocationProgression{Xp: 0, Level: 8}
		profiles.Put(profile)

		require.NoError(t, mastery.AddLocationXP(ctx, "user-1", "LOCATION_PARIS", 0))
		assert.Equal(t, 8, profile.Extensions.Progression.Locations["location_paris"].Level)
	})
}
