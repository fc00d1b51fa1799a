// Package service implements the player-state persistence and
// progression-derivation layer: the profile cache with background write-back,
// the contract-session durable-save protocol, challenge aggregation, mastery
// computation, playstyle classification and objective generation.
package service

import (
	"context"

	"go.uber.org/zap"

	"contract-server/internal/models"
)

// RunOptions parameterizes one state-machine advance on a gameplay event.
type RunOptions struct {
	Timers       []models.SessionTimer
	CurrentState string
	EventName    string
	Timestamp    float64
	ContractID   string
	Logger       *zap.Logger
}

// RunResult is the state-machine position after one event.
type RunResult struct {
	Context interface{}
	State   string
}

// Evaluator is the external declarative rule evaluator. Evaluate resolves a
// pointer expression against a context; Run advances a state-machine
// definition on one gameplay event. Both are out-of-scope collaborators of
// this layer.
type Evaluator interface {
	Evaluate(ctx context.Context, pointer string, evalContext interface{}) (interface{}, error)
	Run(ctx context.Context, definition interface{}, smContext interface{}, event interface{}, opts RunOptions) (RunResult, error)
}

// ProgressionCatalog resolves challenge ids referenced by saved data to their
// static definitions. A nil resolution at session load is fatal (the save
// references a challenge this catalog version does not know).
type ProgressionCatalog interface {
	GetChallengeDefinition(id string) *models.ChallengeDefinition
}
