package telemetry

import (
	"sort"
	"strings"
)

// Throwable item ids that count as combat throwables. Novelty items (decoys,
// snowballs, spray cans) are excluded. Flashbangs count as throwables but
// not as smokes.
var combatThrowables = map[string]bool{
	"Item_Weapon_Grenade_C":         true,
	"Item_Weapon_FlashBang_C":       true,
	"Item_Weapon_Molotov_C":         true,
	"Item_Weapon_SmokeBomb_C":       true,
	"Item_Weapon_StickyGrenade_C":   true,
	"Item_Weapon_BluezoneGrenade_C": true,
	"Item_Weapon_C4_C":              true,
}

const smokeItemID = "Item_Weapon_SmokeBomb_C"

// ProcessItemUsage counts heals, boosts and thrown throwables per player.
// Throws are taken from attack events so unconsumed cooking does not count.
func ProcessItemUsage(meta MatchMeta, events []Event) []ItemUsageRow {
	acc := make(map[string]*ItemUsageRow)
	get := func(name string) *ItemUsageRow {
		if row, ok := acc[name]; ok {
			return row
		}
		row := &ItemUsageRow{MatchID: meta.MatchID, PlayerName: name}
		acc[name] = row
		return row
	}

	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case KindItemUse:
			u := ev.ItemUse
			if u.Character.Name == "" || IsNPC(u.Character.Name) {
				continue
			}
			switch u.Item.SubCategory {
			case "Heal":
				get(u.Character.Name).Heals++
			case "Boost":
				get(u.Character.Name).Boosts++
			}
		case KindAttack:
			a := ev.Attack
			if a.Attacker.Name == "" || IsNPC(a.Attacker.Name) {
				continue
			}
			if !strings.EqualFold(a.AttackType, "Weapon") || !combatThrowables[a.Weapon.ItemID] {
				continue
			}
			row := get(a.Attacker.Name)
			row.ThrowablesThrown++
			if a.Weapon.ItemID == smokeItemID {
				row.SmokesThrown++
			}
		}
	}

	rows := make([]ItemUsageRow, 0, len(acc))
	for _, row := range acc {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PlayerName < rows[j].PlayerName })
	return rows
}
