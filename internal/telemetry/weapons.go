package telemetry

import (
	"sort"
	"strings"
)

// Weapon categories form a closed set; anything unmapped lands in Other.
const (
	CategoryAR        = "AR"
	CategoryDMR       = "DMR"
	CategorySR        = "SR"
	CategorySMG       = "SMG"
	CategoryShotgun   = "Shotgun"
	CategoryLMG       = "LMG"
	CategoryPistol    = "Pistol"
	CategoryMelee     = "Melee"
	CategoryThrowable = "Throwable"
	CategoryOther     = "Other"
)

// weaponCategories maps normalized damage-causer names to categories.
var weaponCategories = map[string]string{
	// Assault rifles
	"AK47": CategoryAR, "AUG": CategoryAR, "ACE32": CategoryAR,
	"BerylM762": CategoryAR, "FamasG2": CategoryAR, "G36C": CategoryAR,
	"Groza": CategoryAR, "HK416": CategoryAR, "K2": CategoryAR,
	"M16A4": CategoryAR, "Mk47Mutant": CategoryAR, "QBZ95": CategoryAR,
	"SCAR-L": CategoryAR, "Duncans": CategoryAR,

	// Designated marksman rifles
	"Dragunov": CategoryDMR, "FNFal": CategoryDMR, "Mini14": CategoryDMR,
	"Mk12": CategoryDMR, "Mk14": CategoryDMR, "QBU88": CategoryDMR,
	"SKS": CategoryDMR, "VSS": CategoryDMR,

	// Sniper rifles
	"AWM": CategorySR, "Kar98k": CategorySR, "L6": CategorySR,
	"M24": CategorySR, "Mosin": CategorySR, "Win1894": CategorySR,

	// Submachine guns
	"BizonPP19": CategorySMG, "JS9": CategorySMG, "MP5K": CategorySMG,
	"MP9": CategorySMG, "P90": CategorySMG, "Thompson": CategorySMG,
	"UMP": CategorySMG, "UZI": CategorySMG, "Vector": CategorySMG,
	"vzM61Skorpion": CategorySMG,

	// Shotguns
	"Berreta686": CategoryShotgun, "DP12": CategoryShotgun,
	"OriginS12": CategoryShotgun, "Saiga12": CategoryShotgun,
	"Sawnoff": CategoryShotgun, "Winchester": CategoryShotgun,

	// Light machine guns
	"DP28": CategoryLMG, "M249": CategoryLMG, "MG3": CategoryLMG,

	// Pistols
	"DesertEagle": CategoryPistol, "G18": CategoryPistol, "M1911": CategoryPistol,
	"M9": CategoryPistol, "NagantM1895": CategoryPistol, "Rhino": CategoryPistol,

	// Melee
	"Cowbar": CategoryMelee, "Machete": CategoryMelee, "Pan": CategoryMelee,
	"Sickle": CategoryMelee,
}

// NormalizeWeapon strips the upstream's Weap prefix and _C class suffix from
// a damage-causer name: WeapHK416_C becomes HK416.
func NormalizeWeapon(causerName string) string {
	name := strings.TrimSuffix(causerName, "_C")
	name = strings.TrimPrefix(name, "Weap")
	return name
}

// WeaponCategory classifies a damage-causer name into the closed category set.
func WeaponCategory(causerName string) string {
	name := NormalizeWeapon(causerName)
	if cat, ok := weaponCategories[name]; ok {
		return cat
	}
	switch {
	case strings.HasPrefix(causerName, "Proj"):
		return CategoryThrowable
	case strings.HasPrefix(name, "PlayerMale") || strings.HasPrefix(name, "PlayerFemale"):
		return CategoryMelee
	default:
		return CategoryOther
	}
}

// ProcessWeaponDistribution rolls damage, kill and knock events into
// per-(player, weapon-category) totals.
func ProcessWeaponDistribution(meta MatchMeta, events []Event) []WeaponDistRow {
	type key struct {
		player   string
		category string
	}
	acc := make(map[key]*WeaponDistRow)
	get := func(player, category string) *WeaponDistRow {
		k := key{player, category}
		if row, ok := acc[k]; ok {
			return row
		}
		row := &WeaponDistRow{MatchID: meta.MatchID, PlayerName: player, WeaponCategory: category}
		acc[k] = row
		return row
	}

	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case KindDamage:
			d := ev.Damage
			if d.Attacker == nil || IsNPC(d.Attacker.Name) || d.Attacker.Name == d.Victim.Name {
				continue
			}
			get(d.Attacker.Name, WeaponCategory(d.DamageCauserName)).Damage += d.Damage
		case KindKnock:
			k := ev.Knock
			if k.Attacker == nil || IsNPC(k.Attacker.Name) {
				continue
			}
			get(k.Attacker.Name, WeaponCategory(k.DamageCauserName)).Knocks++
		case KindKill:
			k := ev.Kill
			if k.Killer == nil || IsNPC(k.Killer.Name) || k.Killer.Name == k.Victim.Name {
				continue
			}
			get(k.Killer.Name, WeaponCategory(k.FinishDamageInfo.DamageCauserName)).Kills++
		}
	}

	rows := make([]WeaponDistRow, 0, len(acc))
	for _, row := range acc {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PlayerName != rows[j].PlayerName {
			return rows[i].PlayerName < rows[j].PlayerName
		}
		return rows[i].WeaponCategory < rows[j].WeaponCategory
	})
	return rows
}
