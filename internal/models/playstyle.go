package models

// KillClass is the coarse classification recorded for a kill.
type KillClass string

const (
	KillClassBallistic KillClass = "ballistic"
	KillClassMelee     KillClass = "melee"
	KillClassExplosion KillClass = "explosion"
	KillClassUnknown   KillClass = "unknown"
	KillClassPoison    KillClass = "poison"
)

// KillRecord is one kill as recorded during a session, consumed by the
// playstyle classifier at mission end.
type KillRecord struct {
	RepositoryID     string    `json:"RepositoryId"`
	KillClass        KillClass `json:"KillClass"`
	KillMethodBroad  string    `json:"KillMethodBroad"`
	KillMethodStrict string    `json:"KillMethodStrict"`
	KillItemCategory string    `json:"KillItemCategory"`
	IsHeadshot       bool      `json:"IsHeadshot"`
	OutfitRepoID     string    `json:"OutfitRepoId,omitempty"`
}

// Playstyle is one scored archetype. Score is recomputed from zero on every
// classification call and never persisted between calls.
type Playstyle struct {
	ID    string  `json:"Id"`
	Name  string  `json:"Name"`
	Type  string  `json:"Type"`
	Score float64 `json:"Score"`
}
