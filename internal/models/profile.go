package models

// SaveRecord describes the durable snapshot currently occupying a save slot.
// Timestamp ordering between an incoming save and this record drives conflict
// resolution: an incoming save must be strictly newer to replace it.
type SaveRecord struct {
	Timestamp         int64  `json:"Timestamp"`
	ContractSessionID string `json:"ContractSessionId"`
	Token             string `json:"Token"`
}

// ChallengeProgression is the per-challenge progression record stored on a
// profile. Completed, once true, is never reset by a session load.
type ChallengeProgression struct {
	CurrentState string                 `json:"CurrentState"`
	State        map[string]interface{} `json:"State"`
	Completed    bool                   `json:"Completed"`
	Ticked       bool                   `json:"Ticked"`
}

// LocationProgression is the per-location mastery track. Level never drops
// below 1; a stored 0 is a legacy artifact corrected at load time.
type LocationProgression struct {
	Xp    int `json:"Xp"`
	Level int `json:"Level"`
}

// PlayerProfileXP is the account-wide XP track.
type PlayerProfileXP struct {
	Total        int `json:"Total"`
	ProfileLevel int `json:"ProfileLevel"`
}

// ProfileProgression groups the progression fields this layer owns inside a
// profile's Extensions block.
type ProfileProgression struct {
	Locations       map[string]LocationProgression `json:"Locations"`
	PlayerProfileXP PlayerProfileXP                `json:"PlayerProfileXP"`
}

// ProfileExtensions holds the nested profile state owned by the player-state
// layer.
type ProfileExtensions struct {
	Saves                map[string]SaveRecord           `json:"Saves"`
	ChallengeProgression map[string]ChallengeProgression `json:"ChallengeProgression"`
	Progression          ProfileProgression              `json:"progression"`
}

// UserProfile is the authoritative per-player record, keyed by
// (userId, gameVersion). It is owned exclusively by the ProfileStore and
// mutated in place by progression and mastery logic while loaded.
type UserProfile struct {
	ID          string            `json:"Id"`
	GameVersion string            `json:"GameVersion"`
	Extensions  ProfileExtensions `json:"Extensions"`
}

// PlatformLink records an external platform identity resolved to an internal
// profile id, stored under userdata/<provider>/<platformUserId>.json.
type PlatformLink struct {
	PlatformUserID string `json:"PlatformUserId"`
	ProfileID      string `json:"ProfileId"`
	Provider       string `json:"Provider"`
}

// NewDefaultProfile builds the empty profile scaffold for a brand-new player.
func NewDefaultProfile(userID, gameVersion string) *UserProfile {
	return &UserProfile{
		ID:          userID,
		GameVersion: gameVersion,
		Extensions: ProfileExtensions{
			Saves:                map[string]SaveRecord{},
			ChallengeProgression: map[string]ChallengeProgression{},
			Progression: ProfileProgression{
				Locations: map[string]LocationProgression{},
				PlayerProfileXP: PlayerProfileXP{
					Total:        0,
					ProfileLevel: 1,
				},
			},
		},
	}
}
