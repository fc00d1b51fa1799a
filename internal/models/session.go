package models

import "encoding/json"

// StringSet is an insertion-ordered set of repository ids. The wire form of a
// set field is a plain JSON array of its elements, in insertion order.
type StringSet struct {
	items []string
	index map[string]struct{}
}

// NewStringSet builds a set from the given items, dropping duplicates while
// preserving first-seen order.
func NewStringSet(items ...string) *StringSet {
	s := &StringSet{index: map[string]struct{}{}}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts item if absent. Re-adding an existing item keeps its original
// position.
func (s *StringSet) Add(item string) {
	if s.index == nil {
		s.index = map[string]struct{}{}
	}
	if _, ok := s.index[item]; ok {
		return
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
}

// Has reports whether item is a member.
func (s *StringSet) Has(item string) bool {
	if s == nil || s.index == nil {
		return false
	}
	_, ok := s.index[item]
	return ok
}

// Values returns the members in insertion order. The returned slice is a copy.
func (s *StringSet) Values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Size returns the number of members.
func (s *StringSet) Size() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// MarshalJSON encodes the set as an array of its elements.
func (s *StringSet) MarshalJSON() ([]byte, error) {
	if s == nil || s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON decodes an array of elements into the set.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = nil
	s.index = map[string]struct{}{}
	for _, item := range items {
		s.Add(item)
	}
	return nil
}

// SessionTimer is one running timer inside a challenge or scoring state
// machine, owned by the external evaluator.
type SessionTimer struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// ChallengeContext is the per-challenge runtime state embedded in a session.
// It is seeded from the owning profile's ChallengeProgression at session load
// for challenge types that persist progress across sessions.
type ChallengeContext struct {
	Context        map[string]interface{} `json:"context"`
	State          string                 `json:"state"`
	Timers         []SessionTimer         `json:"timers"`
	TimesCompleted int                    `json:"timesCompleted"`
}

// SessionScoring is the optional scoring state machine block of a session.
type SessionScoring struct {
	Settings   map[string]interface{} `json:"Settings"`
	Context    map[string]interface{} `json:"Context"`
	Definition map[string]interface{} `json:"Definition"`
	State      string                 `json:"State"`
	Timers     []SessionTimer         `json:"Timers"`
}

// ObjectiveState tracks one objective's state machine position and context
// while a mission is in progress.
type ObjectiveState struct {
	CurrentState string                 `json:"CurrentState"`
	Context      map[string]interface{} `json:"Context"`
}

// ContractSession is the live, then persisted, state of one playthrough
// attempt. Sets and maps are rewritten by the session store's wire adapters
// on durable save and load.
type ContractSession struct {
	ID         string `json:"Id"`
	ContractID string `json:"ContractId"`
	UserID     string `json:"UserId"`
	// LastUpdate is the incoming timestamp used for slot conflict ordering.
	LastUpdate int64 `json:"LastUpdate"`

	Kills               *StringSet `json:"kills"`
	Pacifications       *StringSet `json:"pacifications"`
	Witnesses           *StringSet `json:"witnesses"`
	KilledTargets       *StringSet `json:"killedTargets"`
	CompletedObjectives *StringSet `json:"completedObjectives"`
	FailedObjectives    *StringSet `json:"failedObjectives"`
	MarkedTargets       *StringSet `json:"markedTargets"`
	RecordingsDestroyed *StringSet `json:"recordingsDestroyed"`

	ObjectiveStates      map[string]ObjectiveState   `json:"objectiveStates"`
	ObjectiveDefinitions map[string]interface{}      `json:"objectiveDefinitions"`
	ChallengeContexts    map[string]ChallengeContext `json:"challengeContexts"`

	Scoring *SessionScoring `json:"scoring,omitempty"`

	KillRecords []KillRecord `json:"killRecords,omitempty"`
}

// NewContractSession builds an empty live session for a contract start.
func NewContractSession(id, contractID, userID string) *ContractSession {
	return &ContractSession{
		ID:                   id,
		ContractID:           contractID,
		UserID:               userID,
		Kills:                NewStringSet(),
		Pacifications:        NewStringSet(),
		Witnesses:            NewStringSet(),
		KilledTargets:        NewStringSet(),
		CompletedObjectives:  NewStringSet(),
		FailedObjectives:     NewStringSet(),
		MarkedTargets:        NewStringSet(),
		RecordingsDestroyed:  NewStringSet(),
		ObjectiveStates:      map[string]ObjectiveState{},
		ObjectiveDefinitions: map[string]interface{}{},
		ChallengeContexts:    map[string]ChallengeContext{},
	}
}
