package service

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contract-server/internal/models"
)

// KillMethodCategory names one entry of the closed weapon classification
// table.
type KillMethodCategory string

const (
	KillMethodAny               KillMethodCategory = "any"
	KillMethodPistol            KillMethodCategory = "pistol"
	KillMethodPistolElimination KillMethodCategory = "pistol-elimination"
	KillMethodSMG               KillMethodCategory = "smg"
	KillMethodSniperRifle       KillMethodCategory = "sniper-rifle"
	KillMethodAssaultRifle      KillMethodCategory = "assault-rifle"
	KillMethodShotgun           KillMethodCategory = "shotgun"
	KillMethodFiberWire         KillMethodCategory = "fiber-wire"
	KillMethodThrownAny         KillMethodCategory = "thrown-any"
	KillMethodThrownObject      KillMethodCategory = "thrown-object"
	KillMethodMeleeAny          KillMethodCategory = "melee-any"
	KillMethodMeleeObject       KillMethodCategory = "melee-object"
	KillMethodPoisonAny         KillMethodCategory = "poison-any"
	KillMethodPoisonConsumed    KillMethodCategory = "poison-consumed"
	KillMethodPoisonInjected    KillMethodCategory = "poison-injected"
	KillMethodUnarmed           KillMethodCategory = "unarmed"
	KillMethodAccident          KillMethodCategory = "accident"
	KillMethodExplosive         KillMethodCategory = "explosive"
)

// Strict method constants special-cased by the classification table.
const (
	strictPistolElimination = "close_combat_pistol_elimination"
	strictPoisonConsumed    = "consumed_poison"
	strictPoisonInjected    = "injected_poison"
)

// KillMethodSpec is a classified weapon requirement: the named category plus
// the observed kill-method string the success predicate matches. Method is
// empty only for the any category.
type KillMethodSpec struct {
	Category KillMethodCategory
	Method   string
}

// ObjectiveBuilder generates declarative objective and condition trees for
// player-created contracts. The definitions it emits are driven by the
// external evaluator during gameplay.
type ObjectiveBuilder struct {
	logger *zap.Logger
}

// NewObjectiveBuilder creates an objective builder.
func NewObjectiveBuilder(logger *zap.Logger) *ObjectiveBuilder {
	return &ObjectiveBuilder{logger: logger.Named("ObjectiveBuilder")}
}

// WeaponToKillMethod classifies a weapon requirement through the fixed
// precedence table. The weapon catalog is closed and assumed well-formed: a
// combination the table does not cover is a fatal internal-invariant error,
// meant to be caught against the static catalog during development.
func (b *ObjectiveBuilder) WeaponToKillMethod(weapon *models.ContractWeapon) (KillMethodSpec, error) {
	if weapon.RequiredKillMethodType == 0 {
		return KillMethodSpec{Category: KillMethodAny}, nil
	}

	// RequiredKillMethodType 1 requires the broad method; 2 pins the
	// specific object or variant carried in the strict method.
	specific := weapon.RequiredKillMethodType == 2

	switch weapon.KillMethodBroad {
	case "pistol":
		if weapon.KillMethodStrict == strictPistolElimination {
			return KillMethodSpec{Category: KillMethodPistolElimination, Method: strictPistolElimination}, nil
		}
		return KillMethodSpec{Category: KillMethodPistol, Method: "pistol"}, nil
	case "smg":
		return KillMethodSpec{Category: KillMethodSMG, Method: "smg"}, nil
	case "sniperrifle":
		return KillMethodSpec{Category: KillMethodSniperRifle, Method: "sniperrifle"}, nil
	case "assaultrifle":
		return KillMethodSpec{Category: KillMethodAssaultRifle, Method: "assaultrifle"}, nil
	case "shotgun":
		return KillMethodSpec{Category: KillMethodShotgun, Method: "shotgun"}, nil
	case "fiberwire":
		return KillMethodSpec{Category: KillMethodFiberWire, Method: "fiberwire"}, nil
	case "throw":
		if specific {
			return KillMethodSpec{Category: KillMethodThrownObject, Method: weapon.KillMethodStrict}, nil
		}
		return KillMethodSpec{Category: KillMethodThrownAny, Method: "throw"}, nil
	case "melee_lethal":
		if specific {
			return KillMethodSpec{Category: KillMethodMeleeObject, Method: weapon.KillMethodStrict}, nil
		}
		return KillMethodSpec{Category: KillMethodMeleeAny, Method: "melee_lethal"}, nil
	case "poison":
		if !specific {
			return KillMethodSpec{Category: KillMethodPoisonAny, Method: "poison"}, nil
		}
		switch weapon.KillMethodStrict {
		case strictPoisonConsumed:
			return KillMethodSpec{Category: KillMethodPoisonConsumed, Method: strictPoisonConsumed}, nil
		case strictPoisonInjected:
			return KillMethodSpec{Category: KillMethodPoisonInjected, Method: strictPoisonInjected}, nil
		}
	case "unarmed":
		return KillMethodSpec{Category: KillMethodUnarmed, Method: "unarmed"}, nil
	case "accident":
		return KillMethodSpec{Category: KillMethodAccident, Method: "accident"}, nil
	case "explosive":
		return KillMethodSpec{Category: KillMethodExplosive, Method: "explosive"}, nil
	}

	b.logger.Error("Unhandled weapon classification",
		zap.Int("requiredKillMethodType", weapon.RequiredKillMethodType),
		zap.String("killMethodBroad", weapon.KillMethodBroad),
		zap.String("killMethodStrict", weapon.KillMethodStrict))
	return KillMethodSpec{}, fmt.Errorf("%w: unhandled weapon classification (type=%d broad=%q strict=%q)",
		models.ErrInternalInvariant, weapon.RequiredKillMethodType, weapon.KillMethodBroad, weapon.KillMethodStrict)
}

// KillSuccessCondition builds the kill-method success predicate for a
// classified weapon. Pistol and pistol-elimination accept either method
// string; every other category requires an exact match. Both the broad and
// strict observed fields are checked.
func (b *ObjectiveBuilder) KillSuccessCondition(spec KillMethodSpec) map[string]interface{} {
	methods := []string{spec.Method}
	if spec.Category == KillMethodPistol || spec.Category == KillMethodPistolElimination {
		methods = []string{"pistol", strictPistolElimination}
	}
	clauses := make([]interface{}, 0, len(methods)*2)
	for _, method := range methods {
		clauses = append(clauses,
			map[string]interface{}{"$eq": []interface{}{"$Value.KillMethodBroad", method}},
			map[string]interface{}{"$eq": []interface{}{"$Value.KillMethodStrict", method}},
		)
	}
	return map[string]interface{}{"$or": clauses}
}

func objectiveID(override string) string {
	if override != "" {
		return override
	}
	return uuid.New().String()
}

// onTargetKillCondition matches a kill event on the given target.
func onTargetKillCondition(targetRepoID string) map[string]interface{} {
	return map[string]interface{}{
		"$eq": []interface{}{"$Value.RepositoryId", targetRepoID},
	}
}

// CreateTargetKillObjective generates the primary single-state kill
// objective: Start transitions to Success iff the kill event's repository id
// equals the target's. id may be overridden for reproducible persisted ids;
// empty generates one.
func (b *ObjectiveBuilder) CreateTargetKillObjective(target models.ContractTarget, id string) models.Objective {
	return models.Objective{
		ID:       objectiveID(id),
		Category: "primary",
		Type:     "statemachine",
		Definition: models.StateMachine{
			Scope: "Hit",
			Context: map[string]interface{}{
				"Targets": []interface{}{target.RepositoryID},
			},
			States: map[string]interface{}{
				"Start": map[string]interface{}{
					"Kill": []interface{}{
						map[string]interface{}{
							"Condition":  onTargetKillCondition(target.RepositoryID),
							"Transition": "Success",
						},
					},
				},
			},
		},
		TargetConditions: []models.TargetCondition{},
	}
}

// CreateRequiredOutfitObjective generates the secondary outfit objective:
// an ordered fallthrough rule pair where an on-target kill in the required
// outfit succeeds and any other on-target kill fails. The second rule is only
// consulted when the first condition was false.
func (b *ObjectiveBuilder) CreateRequiredOutfitObjective(target models.ContractTarget, id string) models.Objective {
	var outfitPredicate map[string]interface{}
	if target.Outfit.IsHitmanSuit {
		outfitPredicate = map[string]interface{}{
			"$eq": []interface{}{"$Value.OutfitIsHitmanSuit", true},
		}
	} else {
		outfitPredicate = map[string]interface{}{
			"$eq": []interface{}{"$Value.OutfitRepositoryId", target.Outfit.RepositoryID},
		}
	}

	return models.Objective{
		ID:               objectiveID(id),
		Category:         "secondary",
		IgnoreIfInactive: true,
		Type:             "statemachine",
		Definition: models.StateMachine{
			Scope: "Hit",
			States: map[string]interface{}{
				"Start": map[string]interface{}{
					"Kill": []interface{}{
						map[string]interface{}{
							"Condition": map[string]interface{}{
								"$and": []interface{}{
									onTargetKillCondition(target.RepositoryID),
									outfitPredicate,
								},
							},
							"Transition": "Success",
						},
						map[string]interface{}{
							"Condition":  onTargetKillCondition(target.RepositoryID),
							"Transition": "Failure",
						},
					},
				},
			},
		},
	}
}

// CreateWeaponObjective generates the secondary kill-method objective for a
// target, with the same fallthrough pattern as the outfit objective.
func (b *ObjectiveBuilder) CreateWeaponObjective(weapon *models.ContractWeapon, targetRepoID, id string) (models.Objective, KillMethodSpec, error) {
	spec, err := b.WeaponToKillMethod(weapon)
	if err != nil {
		return models.Objective{}, KillMethodSpec{}, err
	}

	return models.Objective{
		ID:               objectiveID(id),
		Category:         "secondary",
		IgnoreIfInactive: true,
		Type:             "statemachine",
		Definition: models.StateMachine{
			Scope: "Hit",
			States: map[string]interface{}{
				"Start": map[string]interface{}{
					"Kill": []interface{}{
						map[string]interface{}{
							"Condition": map[string]interface{}{
								"$and": []interface{}{
									onTargetKillCondition(targetRepoID),
									b.KillSuccessCondition(spec),
								},
							},
							"Transition": "Success",
						},
						map[string]interface{}{
							"Condition":  onTargetKillCondition(targetRepoID),
							"Transition": "Failure",
						},
					},
				},
			},
		},
	}, spec, nil
}

// TargetObjectiveIDs optionally pins generated objective ids, needed when
// regenerating definitions that must match persisted ids. Empty fields
// generate fresh ids.
type TargetObjectiveIDs struct {
	Kill   string
	Outfit string
	Weapon string
}

// CreateObjectivesForTarget generates the full objective set for one target:
// always the kill objective; the outfit objective iff the outfit is required;
// the weapon objective iff a kill method is required. Secondary objectives
// are back-linked into the kill objective's TargetConditions for UI
// check-mark display. Generated conditions are always soft.
func (b *ObjectiveBuilder) CreateObjectivesForTarget(target models.ContractTarget, ids TargetObjectiveIDs) ([]models.Objective, error) {
	kill := b.CreateTargetKillObjective(target, ids.Kill)
	objectives := []models.Objective{kill}

	if target.Outfit.Required {
		outfit := b.CreateRequiredOutfitObjective(target, ids.Outfit)
		condition := models.TargetCondition{
			Type:          "disguise",
			RepositoryID:  target.Outfit.RepositoryID,
			HardCondition: false,
			ObjectiveID:   outfit.ID,
		}
		if target.Outfit.IsHitmanSuit {
			condition.Type = "hitmansuit"
			condition.RepositoryID = ""
		}
		objectives[0].TargetConditions = append(objectives[0].TargetConditions, condition)
		objectives = append(objectives, outfit)
	}

	if target.Weapon != nil && target.Weapon.RequiredKillMethodType != 0 {
		weapon, spec, err := b.CreateWeaponObjective(target.Weapon, target.RepositoryID, ids.Weapon)
		if err != nil {
			return nil, err
		}
		objectives[0].TargetConditions = append(objectives[0].TargetConditions, models.TargetCondition{
			Type:          "killmethod",
			KillMethod:    spec.Method,
			HardCondition: false,
			ObjectiveID:   weapon.ID,
		})
		objectives = append(objectives, weapon)
	}

	return objectives, nil
}

// FormatTimeLimit renders a second count as H:MM:SS, omitting the hour
// segment when it is zero.
func FormatTimeLimit(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// CreateTimeLimit generates the session-scoped timer objective. The timer
// starts when the intro cutscene ends, succeeds on reaching an exit gate and
// fails once the elapsed time exceeds the configured limit. An optional time
// limit is a secondary objective; a mandatory one is primary.
func (b *ObjectiveBuilder) CreateTimeLimit(seconds int, optional bool) models.Objective {
	category := "primary"
	if optional {
		category = "secondary"
	}
	display := FormatTimeLimit(seconds)

	return models.Objective{
		ID:                 uuid.New().String(),
		Category:           category,
		ObjectiveType:      "custom",
		ExcludeFromScoring: optional,
		BriefingName:       fmt.Sprintf("Time limit: %s", display),
		BriefingText:       fmt.Sprintf("Complete the contract within %s.", display),
		HUDTemplate: map[string]string{
			"display": fmt.Sprintf("Time limit: %s", display),
		},
		Type: "statemachine",
		Definition: models.StateMachine{
			Scope: "Hit",
			States: map[string]interface{}{
				"Start": map[string]interface{}{
					"IntroCutEnd": []interface{}{
						map[string]interface{}{
							"Transition": "TimerRunning",
						},
					},
				},
				"TimerRunning": map[string]interface{}{
					"exit_gate": []interface{}{
						map[string]interface{}{
							"Transition": "Success",
						},
					},
					"$timer": []interface{}{
						map[string]interface{}{
							"Condition": map[string]interface{}{
								"$after": seconds,
							},
							"Transition": "Failure",
						},
					},
				},
			},
		},
	}
}
