package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"contract-server/internal/models"
)

// DefaultMasteryMaxLevel caps location mastery when the package does not
// declare its own ceiling.
const DefaultMasteryMaxLevel = 20

// xpPerLevel is the slope of the mastery XP curve.
const xpPerLevel = 6000

// XPRequiredForLevel returns the total XP at which a mastery level is
// reached. Monotonic non-decreasing in level; level 1 requires 0 XP.
func XPRequiredForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * xpPerLevel
}

// LevelForXP returns the mastery level earned by a total XP amount, floored
// at 1.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/xpPerLevel + 1
}

// ClampLevel bounds level to [low, high].
func ClampLevel(level, low, high int) int {
	if level < low {
		return low
	}
	if level > high {
		return high
	}
	return level
}

// MasteryService computes per-location XP/level/completion and filters a
// location's drop catalog by the player's current mastery level. Packages and
// unlockable catalogs are registered once at startup and read-only afterward.
type MasteryService struct {
	profiles *ProfileStore
	logger   *zap.Logger

	mu          sync.RWMutex
	packages    map[string]models.MasteryPackage
	unlockables map[string][]models.Unlockable // keyed by game version
}

// NewMasteryService creates a mastery service reading and writing progression
// through the profile store.
func NewMasteryService(profiles *ProfileStore, logger *zap.Logger) *MasteryService {
	return &MasteryService{
		profiles:    profiles,
		logger:      logger.Named("MasteryService"),
		packages:    map[string]models.MasteryPackage{},
		unlockables: map[string][]models.Unlockable{},
	}
}

// RegisterMasteryData stores a package by id. A later registration with the
// same id replaces the earlier one.
func (m *MasteryService) RegisterMasteryData(pkg models.MasteryPackage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[pkg.ID] = pkg
}

// RegisterUnlockables stores the global unlockable catalog for a game
// version.
func (m *MasteryService) RegisterUnlockables(gameVersion string, catalog []models.Unlockable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockables[gameVersion] = catalog
}

func (m *MasteryService) lookupProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if profile, ok := m.profiles.GetProfile(userID); ok {
		return profile, nil
	}
	return m.profiles.Load(ctx, userID)
}

// GetCompletionData returns the mastery summary for a location. An
// unregistered location parent yields the "no data" sentinel (Available
// false), not an error, and leaves the profile untouched.
func (m *MasteryService) GetCompletionData(ctx context.Context, locationParentID, subLocationID, gameVersion, userID string) (models.CompletionData, error) {
	m.mu.RLock()
	pkg, registered := m.packages[locationParentID]
	m.mu.RUnlock()
	if !registered {
		return models.CompletionData{Available: false}, nil
	}

	profile, err := m.lookupProfile(ctx, userID)
	if err != nil {
		return models.CompletionData{}, err
	}

	locationKey := strings.ToLower(locationParentID)
	location, ok := profile.Extensions.Progression.Locations[locationKey]
	if !ok {
		location = models.LocationProgression{Xp: 0, Level: 1}
		profile.Extensions.Progression.Locations[locationKey] = location
		m.profiles.MarkDirty(userID)
	}

	maxLevel := pkg.MaxLevel
	if maxLevel == 0 {
		maxLevel = DefaultMasteryMaxLevel
	}
	nextLevel := ClampLevel(location.Level+1, 0, maxLevel)
	nextLevelXP := XPRequiredForLevel(nextLevel)

	completion := 1.0
	xpLeft := 0
	if nextLevelXP > 0 {
		completion = float64(location.Xp) / float64(nextLevelXP)
		xpLeft = nextLevelXP - location.Xp
	}

	return models.CompletionData{
		Available:             true,
		Level:                 location.Level,
		MaxLevel:              maxLevel,
		XP:                    location.Xp,
		Completion:            completion,
		XpLeft:                xpLeft,
		ID:                    pkg.ID,
		SubLocationID:         subLocationID,
		HideProgression:       false,
		IsLocationProgression: true,
	}, nil
}

// GetMasteryData returns the location's drop catalog annotated with lock
// state. An unregistered location or an empty drop list yields an empty
// slice. Drops whose unlockable id is missing from the game-version catalog
// are skipped with a diagnostic log: catalog version skew is tolerated, not
// fatal.
func (m *MasteryService) GetMasteryData(ctx context.Context, locationParentID, gameVersion, userID string) ([]models.MasteryDropView, error) {
	m.mu.RLock()
	pkg, registered := m.packages[locationParentID]
	catalog := m.unlockables[gameVersion]
	m.mu.RUnlock()
	if !registered || len(pkg.Drops) == 0 {
		return []models.MasteryDropView{}, nil
	}

	dropIDs := make(map[string]struct{}, len(pkg.Drops))
	for _, drop := range pkg.Drops {
		dropIDs[drop.ID] = struct{}{}
	}
	byID := make(map[string]models.Unlockable, len(dropIDs))
	for _, unlockable := range catalog {
		if _, wanted := dropIDs[unlockable.ID]; wanted {
			byID[unlockable.ID] = unlockable
		}
	}

	completion, err := m.GetCompletionData(ctx, locationParentID, "", gameVersion, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.MasteryDropView, 0, len(pkg.Drops))
	for _, drop := range pkg.Drops {
		unlockable, ok := byID[drop.ID]
		if !ok {
			m.logger.Debug("Skipping mastery drop with unresolvable unlockable",
				zap.String("locationParentID", locationParentID),
				zap.String("unlockableID", drop.ID),
				zap.String("gameVersion", gameVersion))
			continue
		}
		views = append(views, models.MasteryDropView{
			Unlockable:  unlockable,
			Level:       drop.Level,
			IsLocked:    drop.Level > completion.Level,
			TypeLocaKey: typeLocaKey(unlockable.Type),
		})
	}
	return views, nil
}

// AddLocationXP accrues mission XP into a location's mastery track and the
// account-wide XP total, re-deriving levels through the curve. XP and levels
// never decrease. The profile is marked dirty for the next background flush.
func (m *MasteryService) AddLocationXP(ctx context.Context, userID, locationParentID string, xp int) error {
	if xp < 0 {
		return fmt.Errorf("%w: negative XP award %d", models.ErrInternalInvariant, xp)
	}
	profile, err := m.lookupProfile(ctx, userID)
	if err != nil {
		return err
	}

	m.mu.RLock()
	pkg, registered := m.packages[locationParentID]
	m.mu.RUnlock()
	maxLevel := DefaultMasteryMaxLevel
	if registered && pkg.MaxLevel != 0 {
		maxLevel = pkg.MaxLevel
	}

	locationKey := strings.ToLower(locationParentID)
	location, ok := profile.Extensions.Progression.Locations[locationKey]
	if !ok {
		location = models.LocationProgression{Xp: 0, Level: 1}
	}
	location.Xp += xp
	if level := ClampLevel(LevelForXP(location.Xp), 1, maxLevel); level > location.Level {
		location.Level = level
	}
	profile.Extensions.Progression.Locations[locationKey] = location

	profileXP := &profile.Extensions.Progression.PlayerProfileXP
	profileXP.Total += xp
	if level := LevelForXP(profileXP.Total); level > profileXP.ProfileLevel {
		profileXP.ProfileLevel = level
	}

	m.profiles.MarkDirty(userID)
	m.logger.Debug("Location XP awarded",
		zap.String("userID", userID),
		zap.String("locationParentID", locationParentID),
		zap.Int("xp", xp),
		zap.Int("newLevel", location.Level))
	return nil
}

// typeLocaKey derives the localization key used for a drop's type label.
func typeLocaKey(unlockableType string) string {
	return "UI_MENU_PAGE_MASTERY_UNLOCKABLE_NAME_" + strings.ToUpper(unlockableType)
}
