package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contract-server/internal/models"
	"contract-server/internal/service"
)

func newBuilder() *service.ObjectiveBuilder {
	return service.NewObjectiveBuilder(zap.NewNop())
}

func TestWeaponToKillMethod(t *testing.T) {
	builder := newBuilder()

	t.Run("Type 0 accepts any method", func(t *testing.T) {
		spec, err := builder.WeaponToKillMethod(&models.ContractWeapon{RequiredKillMethodType: 0})
		require.NoError(t, err)
		assert.Equal(t, service.KillMethodAny, spec.Category)
		assert.Empty(t, spec.Method)
	})

	t.Run("Broad categories", func(t *testing.T) {
		cases := []struct {
			broad    string
			category service.KillMethodCategory
			method   string
		}{
			{"pistol", service.KillMethodPistol, "pistol"},
			{"smg", service.KillMethodSMG, "smg"},
			{"sniperrifle", service.KillMethodSniperRifle, "sniperrifle"},
			{"assaultrifle", service.KillMethodAssaultRifle, "assaultrifle"},
			{"shotgun", service.KillMethodShotgun, "shotgun"},
			{"fiberwire", service.KillMethodFiberWire, "fiberwire"},
			{"unarmed", service.KillMethodUnarmed, "unarmed"},
			{"accident", service.KillMethodAccident, "accident"},
			{"explosive", service.KillMethodExplosive, "explosive"},
		}
		for _, tc := range cases {
			spec, err := builder.WeaponToKillMethod(&models.ContractWeapon{
				RequiredKillMethodType: 1,
				KillMethodBroad:        tc.broad,
			})
			require.NoError(t, err, tc.broad)
			assert.Equal(t, tc.category, spec.Category, tc.broad)
			assert.Equal(t, tc.method, spec.Method, tc.broad)
		}
	})

	t.Run("Pistol elimination strict overrides the broad category", func(t *testing.T) {
		spec, err := builder.WeaponToKillMethod(&models.ContractWeapon{
			RequiredKillMethodType: 2,
			KillMethodBroad:        "pistol",
			KillMethodStrict:       "close_combat_pistol_elimination",
		})
		require.NoError(t, err)
		assert.Equal(t, service.KillMethodPistolElimination, spec.Category)
		assert.Equal(t, "close_combat_pistol_elimination", spec.Method)
	})

	t.Run("Thrown and melee split on specificity", func(t *testing.T) {
		spec, err := builder.WeaponToKillMethod(&models.ContractWeapon{
			RequiredKillMethodType: 1,
			KillMethodBroad:        "throw",
		})
		require.NoError(t, err)
		assert.Equal(t, service.KillMethodThrownAny, spec.Category)

		spec, err = builder.WeaponToKillMethod(&models.ContractWeapon{
			RequiredKillMethodType: 2,
			KillMethodBroad:        "melee_lethal",
			KillMethodStrict:       "katana",
		})
		require.NoError(t, err)
		assert.Equal(t, service.KillMethodMeleeObject, spec.Category)
		assert.Equal(t, "katana", spec.Method)
	})

	t.Run("Poison variants", func(t *testing.T) {
		spec, err := builder.WeaponToKillMethod(&models.ContractWeapon{
			RequiredKillMethodType: 1,
			KillMethodBroad:        "poison",
		})
		require.NoError(t, err)
		assert.Equal(t, service.KillMethodPoisonAny, spec.Category)

		spec, err = builder.WeaponToKillMethod(&models.ContractWeapon{
			RequiredKillMethodType: 2,
			KillMethodBroad:        "poison",
			KillMethodStrict:       "injected_poison",
		})
		require.NoError(t, err)
		assert.Equal(t, service.KillMethodPoisonInjected, spec.Category)
	})

	t.Run("Uncovered combination is an internal invariant error", func(t *testing.T) {
		_, err := builder.WeaponToKillMethod(&models.ContractWeapon{
			RequiredKillMethodType: 2,
			KillMethodBroad:        "poison",
			KillMethodStrict:       "mystery_poison",
		})
		assert.ErrorIs(t, err, models.ErrInternalInvariant)

		_, err = builder.WeaponToKillMethod(&models.ContractWeapon{
			RequiredKillMethodType: 1,
			KillMethodBroad:        "plasma_rifle",
		})
		assert.ErrorIs(t, err, models.ErrInternalInvariant)
	})
}

func TestCreateTargetKillObjective(t *testing.T) {
	builder := newBuilder()
	target := models.ContractTarget{RepositoryID: "target-repo-1"}

	t.Run("Generated id", func(t *testing.T) {
		objective := builder.CreateTargetKillObjective(target, "")
		assert.NotEmpty(t, objective.ID)
		assert.Equal(t, "primary", objective.Category)
		assert.Equal(t, "statemachine", objective.Type)
		assert.NotNil(t, objective.TargetConditions)
		assert.Empty(t, objective.TargetConditions)
	})

	t.Run("Pinned id", func(t *testing.T) {
		objective := builder.CreateTargetKillObjective(target, "fixed-id")
		assert.Equal(t, "fixed-id", objective.ID)
	})
}

func TestCreateObjectivesForTarget(t *testing.T) {
	builder := newBuilder()

	t.Run("Plain target yields only the kill objective", func(t *testing.T) {
		target := models.ContractTarget{
			RepositoryID: "target-1",
			Outfit:       models.ContractOutfit{Required: false},
			Weapon:       &models.ContractWeapon{RequiredKillMethodType: 0},
		}
		objectives, err := builder.CreateObjectivesForTarget(target, service.TargetObjectiveIDs{})
		require.NoError(t, err)
		require.Len(t, objectives, 1)
		assert.Empty(t, objectives[0].TargetConditions)
	})

	t.Run("Required disguise adds the outfit objective and a back-link", func(t *testing.T) {
		target := models.ContractTarget{
			RepositoryID: "target-1",
			Outfit:       models.ContractOutfit{RepositoryID: "outfit-1", Required: true},
		}
		objectives, err := builder.CreateObjectivesForTarget(target, service.TargetObjectiveIDs{})
		require.NoError(t, err)
		require.Len(t, objectives, 2)

		conditions := objectives[0].TargetConditions
		require.Len(t, conditions, 1)
		assert.Equal(t, "disguise", conditions[0].Type)
		assert.Equal(t, "outfit-1", conditions[0].RepositoryID)
		assert.False(t, conditions[0].HardCondition)
		assert.Equal(t, objectives[1].ID, conditions[0].ObjectiveID)
	})

	t.Run("Hitman suit condition carries no repository id", func(t *testing.T) {
		target := models.ContractTarget{
			RepositoryID: "target-1",
			Outfit:       models.ContractOutfit{RepositoryID: "suit-id", Required: true, IsHitmanSuit: true},
		}
		objectives, err := builder.CreateObjectivesForTarget(target, service.TargetObjectiveIDs{})
		require.NoError(t, err)
		require.Len(t, objectives, 2)
		assert.Equal(t, "hitmansuit", objectives[0].TargetConditions[0].Type)
		assert.Empty(t, objectives[0].TargetConditions[0].RepositoryID)
	})

	t.Run("Weapon requirement adds the kill-method objective", func(t *testing.T) {
		target := models.ContractTarget{
			RepositoryID: "target-1",
			Weapon: &models.ContractWeapon{
				RequiredKillMethodType: 1,
				KillMethodBroad:        "shotgun",
			},
		}
		objectives, err := builder.CreateObjectivesForTarget(target, service.TargetObjectiveIDs{})
		require.NoError(t, err)
		require.Len(t, objectives, 2)

		conditions := objectives[0].TargetConditions
		require.Len(t, conditions, 1)
		assert.Equal(t, "killmethod", conditions[0].Type)
		assert.Equal(t, "shotgun", conditions[0].KillMethod)
		assert.Equal(t, objectives[1].ID, conditions[0].ObjectiveID)
	})

	t.Run("Full target yields kill, outfit and weapon objectives", func(t *testing.T) {
		target := models.ContractTarget{
			RepositoryID: "target-1",
			Outfit:       models.ContractOutfit{RepositoryID: "outfit-1", Required: true},
			Weapon: &models.ContractWeapon{
				RequiredKillMethodType: 1,
				KillMethodBroad:        "smg",
			},
		}
		objectives, err := builder.CreateObjectivesForTarget(target, service.TargetObjectiveIDs{
			Kill: "kill-id", Outfit: "outfit-obj", Weapon: "weapon-obj",
		})
		require.NoError(t, err)
		require.Len(t, objectives, 3)
		assert.Equal(t, "kill-id", objectives[0].ID)
		assert.Equal(t, "outfit-obj", objectives[1].ID)
		assert.Equal(t, "weapon-obj", objectives[2].ID)
		assert.Len(t, objectives[0].TargetConditions, 2)
	})

	t.Run("Invalid weapon classification surfaces", func(t *testing.T) {
		target := models.ContractTarget{
			RepositoryID: "target-1",
			Weapon: &models.ContractWeapon{
				RequiredKillMethodType: 1,
				KillMethodBroad:        "slingshot",
			},
		}
		_, err := builder.CreateObjectivesForTarget(target, service.TargetObjectiveIDs{})
		assert.ErrorIs(t, err, models.ErrInternalInvariant)
	})
}

func TestKillSuccessCondition(t *testing.T) {
	builder := newBuilder()

	t.Run("Pistol accepts both method strings", func(t *testing.T) {
		spec := service.KillMethodSpec{Category: service.KillMethodPistol, Method: "pistol"}
		condition := builder.KillSuccessCondition(spec)
		clauses := condition["$or"].([]interface{})
		// pistol and close_combat_pistol_elimination, each against broad and
		// strict.
		assert.Len(t, clauses, 4)
	})

	t.Run("Other categories match exactly", func(t *testing.T) {
		spec := service.KillMethodSpec{Category: service.KillMethodShotgun, Method: "shotgun"}
		condition := builder.KillSuccessCondition(spec)
		clauses := condition["$or"].([]interface{})
		assert.Len(t, clauses, 2)
	})
}

func TestFormatTimeLimit(t *testing.T) {
	assert.Equal(t, "00:00", service.FormatTimeLimit(0))
	assert.Equal(t, "01:31", service.FormatTimeLimit(91))
	assert.Equal(t, "59:59", service.FormatTimeLimit(3599))
	assert.Equal(t, "1:00:00", service.FormatTimeLimit(3600))
	assert.Equal(t, "1:01:01", service.FormatTimeLimit(3661))
	assert.Equal(t, "10:02:05", service.FormatTimeLimit(36125))
}

func TestCreateTimeLimit(t *testing.T) {
	builder := newBuilder()

	t.Run("Optional limit is secondary and excluded from scoring", func(t *testing.T) {
		objective := builder.CreateTimeLimit(300, true)
		assert.Equal(t, "secondary", objective.Category)
		assert.True(t, objective.ExcludeFromScoring)
	})

	t.Run("Mandatory limit is primary", func(t *testing.T) {
		objective := builder.CreateTimeLimit(300, false)
		assert.Equal(t, "primary", objective.Category)
		assert.False(t, objective.ExcludeFromScoring)
	})

	t.Run("State machine covers start, exit and expiry", func(t *testing.T) {
		objective := builder.CreateTimeLimit(91, true)
		states := objective.Definition.States
		require.Contains(t, states, "Start")
		require.Contains(t, states, "TimerRunning")
		assert.Contains(t, objective.BriefingName, "01:31")
	})
}
