package models

// StateMachine is a declarative objective definition driven by the external
// evaluator during gameplay. States hold ordered rule lists keyed by event
// name; their shape is owned by the evaluator, so they stay loosely typed.
type StateMachine struct {
	Scope            string                 `json:"Scope,omitempty"`
	Context          map[string]interface{} `json:"Context,omitempty"`
	States           map[string]interface{} `json:"States"`
	ContextListeners map[string]interface{} `json:"ContextListeners,omitempty"`
}

// TargetCondition back-links a secondary objective (outfit, weapon) into the
// primary kill objective for UI check-mark display. Conditions generated by
// the objective builder are always soft (HardCondition false).
type TargetCondition struct {
	Type          string `json:"Type"` // hitmansuit | disguise | killmethod
	RepositoryID  string `json:"RepositoryId,omitempty"`
	KillMethod    string `json:"KillMethod,omitempty"`
	HardCondition bool   `json:"HardCondition"`
	ObjectiveID   string `json:"ObjectiveId"`
}

// Objective is one generated objective definition of a player-created
// contract.
type Objective struct {
	ID                 string            `json:"Id"`
	Category           string            `json:"Category"`
	ObjectiveType      string            `json:"ObjectiveType,omitempty"`
	Image              string            `json:"Image,omitempty"`
	BriefingName       string            `json:"BriefingName,omitempty"`
	BriefingText       string            `json:"BriefingText,omitempty"`
	LongBriefingText   string            `json:"LongBriefingText,omitempty"`
	HUDTemplate        map[string]string `json:"HUDTemplate,omitempty"`
	Type               string            `json:"Type"` // statemachine
	IgnoreIfInactive   bool              `json:"IgnoreIfInactive,omitempty"`
	ExcludeFromScoring bool              `json:"ExcludeFromScoring,omitempty"`
	Definition         StateMachine      `json:"Definition"`
	TargetConditions   []TargetCondition `json:"TargetConditions,omitempty"`
}

// ContractWeapon is the weapon requirement of a contract-creation target.
// RequiredKillMethodType 0 means any method is accepted.
type ContractWeapon struct {
	RepositoryID           string `json:"RepositoryId"`
	RequiredKillMethodType int    `json:"RequiredKillMethodType"`
	KillMethodBroad        string `json:"KillMethodBroad"`
	KillMethodStrict       string `json:"KillMethodStrict"`
}

// ContractOutfit is the outfit requirement of a contract-creation target.
type ContractOutfit struct {
	RepositoryID string `json:"RepositoryId"`
	Required     bool   `json:"Required"`
	IsHitmanSuit bool   `json:"IsHitmanSuit"`
}

// ContractTarget is one target block of structured contract-creation input.
type ContractTarget struct {
	RepositoryID string          `json:"RepositoryId"`
	Weapon       *ContractWeapon `json:"Weapon,omitempty"`
	Outfit       ContractOutfit  `json:"Outfit"`
}
