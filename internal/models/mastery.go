package models

// MasteryDrop ties an unlockable to the mastery level that unlocks it.
type MasteryDrop struct {
	ID    string `json:"Id"`
	Level int    `json:"Level"`
}

// MasteryPackage is the static mastery catalog entry for one location parent.
// Registered once at startup, read-only afterward. MaxLevel of 0 means the
// default cap applies.
type MasteryPackage struct {
	ID       string        `json:"Id"`
	MaxLevel int           `json:"MaxLevel,omitempty"`
	Drops    []MasteryDrop `json:"Drops"`
}

// Unlockable is one entry of the game-version-specific global unlockable
// catalog.
type Unlockable struct {
	ID      string `json:"Id"`
	Type    string `json:"Type"`
	Subtype string `json:"Subtype,omitempty"`
	Name    string `json:"Name,omitempty"`
}

// CompletionData is the per-location mastery summary returned to UI assembly
// code. Available is false when no mastery package is registered for the
// location, in which case the remaining fields are zero values.
type CompletionData struct {
	Available             bool    `json:"Available"`
	Level                 int     `json:"Level"`
	MaxLevel              int     `json:"MaxLevel"`
	XP                    int     `json:"XP"`
	Completion            float64 `json:"Completion"`
	XpLeft                int     `json:"XpLeft"`
	ID                    string  `json:"Id"`
	SubLocationID         string  `json:"SubLocationId"`
	HideProgression       bool    `json:"HideProgression"`
	IsLocationProgression bool    `json:"IsLocationProgression"`
}

// MasteryDropView pairs a configured drop with its resolved unlockable for
// display, IsLocked reflecting the player's current mastery level.
type MasteryDropView struct {
	Unlockable  Unlockable `json:"Unlockable"`
	Level       int        `json:"Level"`
	IsLocked    bool       `json:"IsLocked"`
	TypeLocaKey string     `json:"TypeLocaKey"`
}
