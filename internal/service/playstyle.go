package service

import (
	"sort"
	"strings"

	"contract-server/internal/models"
)

// Archetype ids are stable; UI localization keys hang off them elsewhere.
const (
	PlaystyleHeadshot         = "0e16f8fd-3c43-4a36-b7b3-6c4e88a1a1a3"
	PlaystylePistol           = "0a4513e4-3345-4cbd-ac1a-dcf6dbdc6b26"
	PlaystyleShotgun          = "1ac36c8e-4a35-4d77-bbb4-7453e0b4a53a"
	PlaystyleAssaultRifle     = "2ba2d284-91fe-47eb-bbcd-7dd4bfcc76eb"
	PlaystyleSniper           = "310d1a7f-cb9a-4978-9a6c-5c0db5943a16"
	PlaystyleSMG              = "3c04a2c0-cbc2-44a5-a5a1-a2bd47cf1a93"
	PlaystyleVersatile        = "46b50076-b4bf-4669-9988-a1e04a6a5d8a"
	PlaystyleMelee            = "4b5934b2-c0f8-4a23-8cdc-8b4f15a183f3"
	PlaystyleUnarmed          = "54a50f5b-c372-4a36-9e6d-34cb96727c3e"
	PlaystyleFiberWire        = "5c207f69-4b80-4ae9-8f12-21a7e4c41a52"
	PlaystyleDrowning         = "63061d4a-1c44-49b0-a8e5-0b4b9f4c34a1"
	PlaystyleAccident         = "6ab3bf72-ae7b-42da-93a4-f4a0c4b7e7d5"
	PlaystyleElectrocution    = "731c29cd-0f48-4b0e-833d-e0e0a4e3b77e"
	PlaystyleFallingObject    = "7c2e1b54-3a52-4a37-8d11-9aa25a1e4bb3"
	PlaystyleArsonist         = "8b3a7de4-55c1-4a19-8e12-cf3ad6a6a0f0"
	PlaystyleExplosive        = "9a7b3c1e-6a50-4e1a-9d29-d3c0d6a5e9b2"
	PlaystylePoisoner         = "a42f1c3a-1ef1-4b83-b0a4-dfe5c6f4b412"
	PlaystyleMultidisciplined = "b8d2c5f0-f4aa-4b52-9d1c-7e6a2c8e9f31"
)

// playstyleCatalog is the fixed archetype list. Catalog order is the
// tie-break order of the ranked output and must stay stable.
var playstyleCatalog = []models.Playstyle{
	{ID: PlaystyleHeadshot, Name: "Headshot Assassin", Type: "HEADSHOT"},
	{ID: PlaystylePistol, Name: "Pistol Assassin", Type: "PISTOL"},
	{ID: PlaystyleShotgun, Name: "Shotgun Assassin", Type: "SHOTGUN"},
	{ID: PlaystyleAssaultRifle, Name: "Assault Rifle Assassin", Type: "ASSAULT_RIFLE"},
	{ID: PlaystyleSniper, Name: "Sniper Assassin", Type: "SNIPER_RIFLE"},
	{ID: PlaystyleSMG, Name: "SMG Assassin", Type: "SMG"},
	{ID: PlaystyleVersatile, Name: "Versatile Assassin", Type: "WEAPON_DIVERSITY"},
	{ID: PlaystyleMelee, Name: "Melee Assassin", Type: "MELEE"},
	{ID: PlaystyleUnarmed, Name: "Unarmed Assassin", Type: "UNARMED"},
	{ID: PlaystyleFiberWire, Name: "Fiber Wire Assassin", Type: "FIBER_WIRE"},
	{ID: PlaystyleDrowning, Name: "Drowning Assassin", Type: "DROWNING"},
	{ID: PlaystyleAccident, Name: "Accident Assassin", Type: "ACCIDENT_DIVERSITY"},
	{ID: PlaystyleElectrocution, Name: "Electrocution Assassin", Type: "ELECTROCUTION"},
	{ID: PlaystyleFallingObject, Name: "Falling Object Assassin", Type: "FALLING_OBJECT"},
	{ID: PlaystyleArsonist, Name: "Arsonist", Type: "BURN"},
	{ID: PlaystyleExplosive, Name: "Explosive Assassin", Type: "EXPLOSIVE"},
	{ID: PlaystylePoisoner, Name: "Poisoner", Type: "POISON"},
	{ID: PlaystyleMultidisciplined, Name: "Multidisciplined Assassin", Type: "METHOD_DIVERSITY"},
}

// Score deltas of the classification rule table.
const (
	headshotBonus   = 2000.0
	headshotPenalty = -2000.0
	categoryBonus   = 5000.0

	meleeBonus     = 5000.0
	unarmedBonus   = 5000.0
	fiberWireBonus = 5000.0
	drowningBonus  = 5000.0

	explosiveBonus         = 5000.0
	explosionAccidentBonus = 5000.0
	electrocutionBonus     = 5000.0
	fallingObjectBonus     = 5000.0
	burnBonus              = 5000.0
	poisonBonus            = 5000.0

	weaponDiversityBonus     = 3000.0
	weaponDiversityPenalty   = -3000.0
	accidentDiversityBonus   = 3000.0
	accidentDiversityPenalty = -3000.0
	methodDiversityBonus     = 4000.0
	methodDiversityPenalty   = -4000.0
)

// ballisticCategoryArchetype maps the kill item category of a ballistic kill
// to its archetype.
var ballisticCategoryArchetype = map[string]string{
	"pistol":       PlaystylePistol,
	"shotgun":      PlaystyleShotgun,
	"assaultrifle": PlaystyleAssaultRifle,
	"sniperrifle":  PlaystyleSniper,
	"smg":          PlaystyleSMG,
}

// unknownAccidentArchetype maps unknown-class accident strict methods to
// their archetypes.
var unknownAccidentArchetype = map[string]string{
	"accident_electric":         PlaystyleElectrocution,
	"accident_suspended_object": PlaystyleFallingObject,
	"accident_burn":             PlaystyleArsonist,
}

// ClassifyPlaystyle ranks the archetype catalog for one session's recorded
// kills. Every call starts every score at zero; diversity bonuses are scoped
// to the call through local seen-sets. The output preserves catalog order on
// equal scores, and index 0 is the selected playstyle.
func ClassifyPlaystyle(kills []models.KillRecord) []models.Playstyle {
	ranked := make([]models.Playstyle, len(playstyleCatalog))
	copy(ranked, playstyleCatalog)
	index := make(map[string]int, len(ranked))
	for i, style := range ranked {
		index[style.ID] = i
	}
	addScore := func(id string, delta float64) {
		ranked[index[id]].Score += delta
	}

	seenCategories := map[string]struct{}{}
	seenAccidents := map[string]struct{}{}
	seenClasses := map[models.KillClass]struct{}{}

	// First sighting earns the diversity bonus, every repeat the penalty.
	firstSeen := func(seen map[string]struct{}, key string) bool {
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		return true
	}
	accidentDiversity := func(strictMethod string) {
		if firstSeen(seenAccidents, strictMethod) {
			addScore(PlaystyleAccident, accidentDiversityBonus)
		} else {
			addScore(PlaystyleAccident, accidentDiversityPenalty)
		}
	}

	for _, kill := range kills {
		switch kill.KillClass {
		case models.KillClassBallistic:
			if kill.IsHeadshot {
				addScore(PlaystyleHeadshot, headshotBonus)
			} else {
				addScore(PlaystyleHeadshot, headshotPenalty)
			}
			if archetype, ok := ballisticCategoryArchetype[kill.KillItemCategory]; ok {
				addScore(archetype, categoryBonus)
			}
			if kill.KillItemCategory != "" {
				if firstSeen(seenCategories, kill.KillItemCategory) {
					addScore(PlaystyleVersatile, weaponDiversityBonus)
				} else {
					addScore(PlaystyleVersatile, weaponDiversityPenalty)
				}
			}

		case models.KillClassMelee:
			addScore(PlaystyleMelee, meleeBonus)
			switch {
			case kill.KillItemCategory == "unarmed":
				addScore(PlaystyleUnarmed, unarmedBonus)
			case kill.KillMethodStrict == "fiberwire":
				addScore(PlaystyleFiberWire, fiberWireBonus)
			case kill.KillMethodStrict == "accident_drown":
				addScore(PlaystyleDrowning, drowningBonus)
			}
			if isAccidentMethod(kill.KillMethodStrict) {
				accidentDiversity(kill.KillMethodStrict)
			}

		case models.KillClassExplosion:
			if kill.KillMethodStrict == "accident_explosion" {
				addScore(PlaystyleAccident, explosionAccidentBonus)
			} else {
				addScore(PlaystyleExplosive, explosiveBonus)
			}

		case models.KillClassUnknown:
			if archetype, ok := unknownAccidentArchetype[kill.KillMethodStrict]; ok {
				addScore(archetype, unknownAccidentBonus(kill.KillMethodStrict))
				accidentDiversity(kill.KillMethodStrict)
			}

		case models.KillClassPoison:
			addScore(PlaystylePoisoner, poisonBonus)
		}

		// Independent of the per-class rules above.
		if _, ok := seenClasses[kill.KillClass]; !ok {
			seenClasses[kill.KillClass] = struct{}{}
			addScore(PlaystyleMultidisciplined, methodDiversityBonus)
		} else {
			addScore(PlaystyleMultidisciplined, methodDiversityPenalty)
		}
	}

	// Stable sort: equal scores keep catalog order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func isAccidentMethod(strictMethod string) bool {
	return strings.HasPrefix(strictMethod, "accident_")
}

func unknownAccidentBonus(strictMethod string) float64 {
	switch strictMethod {
	case "accident_electric":
		return electrocutionBonus
	case "accident_suspended_object":
		return fallingObjectBonus
	case "accident_burn":
		return burnBonus
	default:
		return 0
	}
}
