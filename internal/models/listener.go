package models

// ListenerType tags a listener descriptor variant.
type ListenerType string

const (
	ListenerChallengeCounter ListenerType = "challenge-counter"
	ListenerChallengeTree    ListenerType = "challenge-tree"
	ListenerToggle           ListenerType = "toggle"
	ListenerCustom           ListenerType = "custom"
	ListenerMatchArrays      ListenerType = "match-arrays"
	ListenerObjectiveCounter ListenerType = "objective-counter"
	ListenerForceUpdate      ListenerType = "force-update"
)

// Listener is a declarative descriptor deriving UI-facing aggregate data from
// a live evaluation context. Comparand, Count and Total are each either a
// literal value or a pointer expression resolved by the external evaluator.
type Listener struct {
	Type      ListenerType `json:"type"`
	Comparand interface{}  `json:"comparand,omitempty"`
	Count     interface{}  `json:"count,omitempty"`
	Total     interface{}  `json:"total,omitempty"`
}

// ChallengeCountData is the per-category completion counter derived from
// challenge-counter listeners.
type ChallengeCountData struct {
	Count float64 `json:"count"`
	Total float64 `json:"total"`
}

// ChallengeAggregate is the output of listener aggregation, consumed by UI
// assembly code.
type ChallengeAggregate struct {
	ChallengeTreeIDs []string           `json:"challengeTreeIds"`
	CountData        ChallengeCountData `json:"challengeCountData"`
}

// ChallengeDefinition is the catalog entry a saved challenge id must resolve
// to at session load. A nil resolution is fatal to the load (corrupt or
// version-mismatched save data).
type ChallengeDefinition struct {
	ID   string `json:"Id"`
	Type string `json:"Type"` // contract | profile | global
}

// PersistsProgress reports whether the challenge type carries progression
// across sessions, in which case the profile's saved State seeds the
// session's challenge context at load.
func (d ChallengeDefinition) PersistsProgress() bool {
	return d.Type == "profile" || d.Type == "global"
}
