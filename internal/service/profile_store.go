package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"contract-server/internal/metrics"
	"contract-server/internal/models"
	"contract-server/internal/storage"
)

// DefaultFlushInterval is the period of the per-profile background write-back
// timer.
const DefaultFlushInterval = 3 * time.Second

type profileEntry struct {
	profile *models.UserProfile
	dirty   bool
	cancel  context.CancelFunc
}

// ProfileStore is the authoritative in-memory cache of per-player profiles.
// Each loaded profile gets one background flush goroutine that writes it to
// durable storage while the dirty flag is set. Profiles are mutated in place
// by progression and mastery logic; MarkDirty schedules the next write.
type ProfileStore struct {
	backend  storage.Backend
	layout   storage.Layout
	logger   *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	entries map[string]*profileEntry
	// paused gates timer-driven writes while ForceFlush runs.
	paused bool
	closed bool
}

// NewProfileStore creates a profile store over the given backend. A
// non-positive flushInterval selects DefaultFlushInterval.
func NewProfileStore(backend storage.Backend, layout storage.Layout, logger *zap.Logger, flushInterval time.Duration) *ProfileStore {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &ProfileStore{
		backend:  backend,
		layout:   layout,
		logger:   logger.Named("ProfileStore"),
		interval: flushInterval,
		entries:  map[string]*profileEntry{},
	}
}

// GetProfile is a cache-only lookup; it performs no I/O.
func (s *ProfileStore) GetProfile(id string) (*models.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return entry.profile, true
}

// Load reads the profile from durable storage, applies load-time fixups,
// registers it in the cache and ensures its background flush task is running.
// Fails with models.ErrProfileNotFound when no durable record exists.
func (s *ProfileStore) Load(ctx context.Context, id string) (*models.UserProfile, error) {
	log := s.logger.With(zap.String("profileID", id))

	data, err := s.backend.ReadFile(ctx, s.layout.ProfilePath(id))
	if errors.Is(err, storage.ErrNotExist) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		log.Error("Failed to read profile from durable storage", zap.Error(err))
		return nil, fmt.Errorf("failed to read profile %s: %w", id, err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		log.Error("Failed to decode stored profile", zap.Error(err))
		return nil, fmt.Errorf("failed to decode profile %s: %w", id, err)
	}
	fixupProfile(&profile)

	s.Put(&profile)
	log.Debug("Profile loaded and registered")
	return &profile, nil
}

// Put registers a profile in the cache, replacing any cached value for the
// id. Starting the flush task is idempotent: re-registering an already-loaded
// id keeps the existing task. Used with NewDefaultProfile for brand-new
// players.
func (s *ProfileStore) Put(profile *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[profile.ID]; ok {
		entry.profile = profile
		return
	}
	taskCtx, cancel := context.WithCancel(context.Background())
	s.entries[profile.ID] = &profileEntry{profile: profile, cancel: cancel}
	go s.flushLoop(taskCtx, profile.ID)
}

// MarkDirty flags the profile for write-back on the next timer tick. Unknown
// ids are ignored.
func (s *ProfileStore) MarkDirty(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[id]; ok {
		entry.dirty = true
	}
}

// Write serializes the cached profile and writes it to durable storage. The
// dirty flag is cleared before the write is issued, so a failed write is not
// retried until the next MarkDirty or ForceFlush.
func (s *ProfileStore) Write(ctx context.Context, id string) error {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return models.ErrProfileNotFound
	}
	entry.dirty = false
	data, err := json.Marshal(entry.profile)
	s.mu.Unlock()
	if err != nil {
		metrics.ProfileFlushes.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to encode profile %s: %w", id, err)
	}

	if err := s.backend.WriteFile(ctx, s.layout.ProfilePath(id), data); err != nil {
		metrics.ProfileFlushes.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to write profile %s: %w", id, err)
	}
	metrics.ProfileFlushes.WithLabelValues("ok").Inc()
	return nil
}

// flushLoop is the per-profile background timer task. Each tick is
// fire-and-forget: a write failure is logged and never surfaces to callers.
func (s *ProfileStore) flushLoop(ctx context.Context, id string) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			entry, ok := s.entries[id]
			if !ok {
				s.mu.Unlock()
				return
			}
			if s.paused || !entry.dirty {
				s.mu.Unlock()
				continue
			}
			s.mu.Unlock()
			if err := s.Write(ctx, id); err != nil {
				s.logger.Error("Background profile flush failed",
					zap.String("profileID", id), zap.Error(err))
			}
		}
	}
}

// ForceFlush pauses timer-driven writes, synchronously writes every loaded
// profile regardless of dirty state, then resumes. Intended for graceful
// shutdown.
func (s *ProfileStore) ForceFlush(ctx context.Context) error {
	s.mu.Lock()
	s.paused = true
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.Write(ctx, id); err != nil {
			s.logger.Error("Forced profile flush failed",
				zap.String("profileID", id), zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return errors.Join(errs...)
}

// UnloadAll cancels all flush tasks and drops all cached profiles and dirty
// flags without writing. Used for teardown where persistence is not required.
func (s *ProfileStore) UnloadAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		entry.cancel()
	}
	s.entries = map[string]*profileEntry{}
}

// Close stops all background tasks without writing. Call ForceFlush first
// when durability is required.
func (s *ProfileStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, entry := range s.entries {
		entry.cancel()
	}
	s.entries = map[string]*profileEntry{}
}

// WritePlatformLink stores an external platform-id link record.
func (s *ProfileStore) WritePlatformLink(ctx context.Context, link models.PlatformLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to encode platform link: %w", err)
	}
	return s.backend.WriteFile(ctx, s.layout.PlatformLinkPath(link.Provider, link.PlatformUserID), data)
}

// ReadPlatformLink reads an external platform-id link record, yielding
// models.ErrNotFound when no link exists.
func (s *ProfileStore) ReadPlatformLink(ctx context.Context, provider, platformUserID string) (*models.PlatformLink, error) {
	data, err := s.backend.ReadFile(ctx, s.layout.PlatformLinkPath(provider, platformUserID))
	if errors.Is(err, storage.ErrNotExist) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var link models.PlatformLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to decode platform link: %w", err)
	}
	return &link, nil
}

// fixupProfile corrects legacy zero levels left by older writers. Levels
// floor at 1.
func fixupProfile(profile *models.UserProfile) {
	if profile.Extensions.Progression.PlayerProfileXP.ProfileLevel == 0 {
		profile.Extensions.Progression.PlayerProfileXP.ProfileLevel = 1
	}
	for key, loc := range profile.Extensions.Progression.Locations {
		if loc.Level == 0 {
			loc.Level = 1
			profile.Extensions.Progression.Locations[key] = loc
		}
	}
	if profile.Extensions.Saves == nil {
		profile.Extensions.Saves = map[string]models.SaveRecord{}
	}
	if profile.Extensions.ChallengeProgression == nil {
		profile.Extensions.ChallengeProgression = map[string]models.ChallengeProgression{}
	}
	if profile.Extensions.Progression.Locations == nil {
		profile.Extensions.Progression.Locations = map[string]models.LocationProgression{}
	}
}
