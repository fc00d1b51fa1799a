package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contract-server/internal/models"
	"contract-server/internal/service"
	"contract-server/internal/storage"
	storagemocks "contract-server/internal/storage/mocks"
)

func newTestProfileStore(t *testing.T, interval time.Duration) (*service.ProfileStore, *storage.MemoryBackend, storage.Layout) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	layout := storage.Layout{}
	store := service.NewProfileStore(backend, layout, zap.NewNop(), interval)
	t.Cleanup(store.Close)
	return store, backend, layout
}

func readStoredProfile(t *testing.T, backend storage.Backend, layout storage.Layout, id string) *models.UserProfile {
	t.Helper()
	data, err := backend.ReadFile(context.Background(), layout.ProfilePath(id))
	require.NoError(t, err)
	var profile models.UserProfile
	require.NoError(t, json.Unmarshal(data, &profile))
	return &profile
}

func TestProfileStoreLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing profile", func(t *testing.T) {
		store, _, _ := newTestProfileStore(t, time.Hour)
		_, err := store.Load(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrProfileNotFound)
	})

	t.Run("Load registers profile in cache", func(t *testing.T) {
		store, backend, layout := newTestProfileStore(t, time.Hour)
		stored := models.NewDefaultProfile("user-1", "")
		data, err := json.Marshal(stored)
		require.NoError(t, err)
		require.NoError(t, backend.WriteFile(ctx, layout.ProfilePath("user-1"), data))

		profile, err := store.Load(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", profile.ID)

		cached, ok := store.GetProfile("user-1")
		require.True(t, ok)
		assert.Same(t, profile, cached)
	})

	t.Run("Legacy zero levels floor at 1", func(t *testing.T) {
		store, backend, layout := newTestProfileStore(t, time.Hour)
		raw := `{
			"Id": "legacy",
			"Extensions": {
				"progression": {
					"Locations": {"paris": {"Xp": 100, "Level": 0}},
					"PlayerProfileXP": {"Total": 0, "ProfileLevel": 0}
				}
			}
		}`
		require.NoError(t, backend.WriteFile(ctx, layout.ProfilePath("legacy"), []byte(raw)))

		profile, err := store.Load(ctx, "legacy")
		require.NoError(t, err)
		assert.Equal(t, 1, profile.Extensions.Progression.PlayerProfileXP.ProfileLevel)
		assert.Equal(t, 1, profile.Extensions.Progression.Locations["paris"].Level)
		assert.NotNil(t, profile.Extensions.Saves)
		assert.NotNil(t, profile.Extensions.ChallengeProgression)
	})
}

func TestProfileStoreBackgroundFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("Dirty profile is written on tick", func(t *testing.T) {
		store, backend, layout := newTestProfileStore(t, 10*time.Millisecond)
		profile := models.NewDefaultProfile("user-1", "")
		store.Put(profile)
		profile.Extensions.Progression.PlayerProfileXP.Total = 500
		store.MarkDirty("user-1")

		require.Eventually(t, func() bool {
			ok, err := backend.Exists(ctx, layout.ProfilePath("user-1"))
			return err == nil && ok
		}, time.Second, 5*time.Millisecond)

		stored := readStoredProfile(t, backend, layout, "user-1")
		assert.Equal(t, 500, stored.Extensions.Progression.PlayerProfileXP.Total)
	})

	t.Run("Clean profile is not written", func(t *testing.T) {
		store, backend, layout := newTestProfileStore(t, 10*time.Millisecond)
		store.Put(models.NewDefaultProfile("user-2", ""))

		time.Sleep(50 * time.Millisecond)
		ok, err := backend.Exists(ctx, layout.ProfilePath("user-2"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestProfileStoreForceFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes every loaded profile regardless of dirty state", func(t *testing.T) {
		store, backend, layout := newTestProfileStore(t, time.Hour)
		store.Put(models.NewDefaultProfile("a", ""))
		store.Put(models.NewDefaultProfile("b", ""))

		require.NoError(t, store.ForceFlush(ctx))

		for _, id := range []string{"a", "b"} {
			ok, err := backend.Exists(ctx, layout.ProfilePath(id))
			require.NoError(t, err)
			assert.True(t, ok, id)
		}
	})
}

func TestProfileStoreUnloadAll(t *testing.T) {
	ctx := context.Background()

	store, backend, layout := newTestProfileStore(t, time.Hour)
	profile := models.NewDefaultProfile("user-1", "")
	store.Put(profile)
	store.MarkDirty("user-1")

	store.UnloadAll()

	_, ok := store.GetProfile("user-1")
	assert.False(t, ok)

	// Dirty state is discarded, nothing reaches durable storage.
	exists, err := backend.Exists(ctx, layout.ProfilePath("user-1"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProfileStoreWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown id", func(t *testing.T) {
		store, _, _ := newTestProfileStore(t, time.Hour)
		assert.ErrorIs(t, store.Write(ctx, "ghost"), models.ErrProfileNotFound)
	})

	t.Run("Write persists current cached state", func(t *testing.T) {
		store, backend, layout := newTestProfileStore(t, time.Hour)
		profile := models.NewDefaultProfile("user-1", "")
		store.Put(profile)
		profile.Extensions.Progression.PlayerProfileXP.Total = 123

		require.NoError(t, store.Write(ctx, "user-1"))
		stored := readStoredProfile(t, backend, layout, "user-1")
		assert.Equal(t, 123, stored.Extensions.Progression.PlayerProfileXP.Total)
	})
}

func TestPlatformLinks(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestProfileStore(t, time.Hour)

	t.Run("Missing link", func(t *testing.T) {
		_, err := store.ReadPlatformLink(ctx, "steam", "765611")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Write then read", func(t *testing.T) {
		link := models.PlatformLink{Provider: "steam", PlatformUserID: "765611", ProfileID: "user-1"}
		require.NoError(t, store.WritePlatformLink(ctx, link))

		restored, err := store.ReadPlatformLink(ctx, "steam", "765611")
		require.NoError(t, err)
		assert.Equal(t, link, *restored)
	})
}

func TestProfileStoreBackendFailures(t *testing.T) {
	ctx := context.Background()
	layout := storage.Layout{}
	bootErr := errors.New("backend unavailable")

	t.Run("Load surfaces read errors", func(t *testing.T) {
		backend := new(storagemocks.Backend)
		backend.On("ReadFile", ctx, layout.ProfilePath("user-1")).Return(nil, bootErr).Once()
		store := service.NewProfileStore(backend, layout, zap.NewNop(), time.Hour)
		defer store.Close()

		_, err := store.Load(ctx, "user-1")
		assert.ErrorIs(t, err, bootErr)
		assert.NotErrorIs(t, err, models.ErrProfileNotFound)
		backend.AssertExpectations(t)
	})

	t.Run("Write surfaces write errors", func(t *testing.T) {
		backend := new(storagemocks.Backend)
		backend.On("WriteFile", ctx, layout.ProfilePath("user-1"), mock.Anything).Return(bootErr).Once()
		store := service.NewProfileStore(backend, layout, zap.NewNop(), time.Hour)
		defer store.Close()

		store.Put(models.NewDefaultProfile("user-1", ""))
		err := store.Write(ctx, "user-1")
		assert.ErrorIs(t, err, bootErr)
		backend.AssertExpectations(t)
	})

	t.Run("ForceFlush reports failed profiles", func(t *testing.T) {
		backend := new(storagemocks.Backend)
		backend.On("WriteFile", ctx, layout.ProfilePath("user-1"), mock.Anything).Return(bootErr).Once()
		store := service.NewProfileStore(backend, layout, zap.NewNop(), time.Hour)
		defer store.Close()

		store.Put(models.NewDefaultProfile("user-1", ""))
		assert.ErrorIs(t, store.ForceFlush(ctx), bootErr)
		backend.AssertExpectations(t)
	})
}
