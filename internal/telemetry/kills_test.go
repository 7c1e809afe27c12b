package telemetry

import (
	"testing"
	"time"
)

func TestProcessKills(t *testing.T) {
	killer := chr("Alpha", 1, 10, 10)
	victim := chr("Bravo", 2, 20, 10)

	tests := []struct {
		name       string
		event      Event
		wantKiller bool
		check      func(t *testing.T, row KillRow)
	}{
		{
			name:       "normal kill",
			event:      killEvent(5*time.Second, &killer, victim, "WeapHK416_C", "HeadShot", "Damage_Gun", 1500),
			wantKiller: true,
			check: func(t *testing.T, row KillRow) {
				if row.WeaponID != "HK416" || row.WeaponCategory != CategoryAR {
					t.Errorf("weapon = %s/%s", row.WeaponID, row.WeaponCategory)
				}
				if !row.IsHeadshot {
					t.Error("expected headshot")
				}
				if row.Distance != 15 {
					t.Errorf("distance = %v m, want 15", row.Distance)
				}
			},
		},
		{
			name: "suicide has no killer",
			event: func() Event {
				self := chr("Bravo", 2, 20, 10)
				ev := killEvent(5*time.Second, &self, victim, "WeapMolotov_C", "NonSpecific", "Damage_Molotov", 0)
				ev.Kill.IsSuicide = true
				return ev
			}(),
			wantKiller: false,
			check: func(t *testing.T, row KillRow) {
				if !row.IsSuicide {
					t.Error("expected suicide flag")
				}
			},
		},
		{
			name:       "blue zone death has no killer",
			event:      killEvent(5*time.Second, nil, victim, "", "NonSpecific", "Damage_BlueZone", 0),
			wantKiller: false,
			check: func(t *testing.T, row KillRow) {
				if !row.IsBlueZone {
					t.Error("expected blue-zone flag")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := ProcessKills(testMeta(), []Event{tt.event})
			if len(rows) != 1 {
				t.Fatalf("rows = %d, want 1", len(rows))
			}
			row := rows[0]
			if (row.KillerName != nil) != tt.wantKiller {
				t.Errorf("killer present = %v, want %v", row.KillerName != nil, tt.wantKiller)
			}
			if row.VictimName != "Bravo" {
				t.Errorf("victim = %q", row.VictimName)
			}
			tt.check(t, row)
		})
	}
}

func TestProcessKillsFiltersNPCVictims(t *testing.T) {
	killer := chr("Alpha", 1, 0, 0)
	events := []Event{
		killEvent(time.Second, &killer, chr("ai_bot_42", 100, 5, 5), "WeapAK47_C", "TorsoShot", "Damage_Gun", 100),
		killEvent(2*time.Second, &killer, chr("Commander", 101, 5, 5), "WeapAK47_C", "TorsoShot", "Damage_Gun", 100),
	}
	if rows := ProcessKills(testMeta(), events); len(rows) != 0 {
		t.Errorf("NPC kills produced %d rows", len(rows))
	}
}

func TestProcessFinishingKillSteal(t *testing.T) {
	a := chr("Alpha", 1, 0, 0)
	b := chr("Beta", 3, 5, 0)
	victim := chr("Victim", 2, 10, 0)

	events := []Event{
		// Alpha softens the victim inside the window, Beta lands the kill.
		damageEvent(0, &a, victim, "WeapSCAR-L_C", "Damage_Gun", 80),
		killEvent(5*time.Second, &b, victim, "WeapKar98k_C", "HeadShot", "Damage_Gun", 8000),
	}
	rows := ProcessFinishing(testMeta(), events)

	byName := map[string]FinishingRow{}
	for _, r := range rows {
		byName[r.PlayerName] = r
	}
	if got := byName["Beta"]; got.Kills != 1 || got.KillSteals != 0 {
		t.Errorf("Beta = %+v, want 1 kill and no steals", got)
	}
	if got := byName["Alpha"]; got.KillSteals != 1 {
		t.Errorf("Alpha = %+v, want 1 kill steal", got)
	}
}

func TestProcessFinishingKillStealWindowExpires(t *testing.T) {
	a := chr("Alpha", 1, 0, 0)
	b := chr("Beta", 3, 5, 0)
	victim := chr("Victim", 2, 10, 0)

	events := []Event{
		// Damage lands 11 seconds before the death, outside the 10s window.
		damageEvent(0, &a, victim, "WeapSCAR-L_C", "Damage_Gun", 80),
		killEvent(11*time.Second, &b, victim, "WeapKar98k_C", "HeadShot", "Damage_Gun", 8000),
	}
	rows := ProcessFinishing(testMeta(), events)
	for _, r := range rows {
		if r.PlayerName == "Alpha" && r.KillSteals != 0 {
			t.Errorf("Alpha credited a steal outside the window: %+v", r)
		}
	}
}

func TestProcessFinishingTimeOutsideZone(t *testing.T) {
	victim := chr("Victim", 2, 10, 0)
	events := []Event{
		damageEvent(0, nil, victim, "", "Damage_BlueZone", 1),
		damageEvent(time.Second, nil, victim, "", "Damage_BlueZone", 1),
		damageEvent(2*time.Second, nil, victim, "", "Damage_BlueZone", 1),
	}
	rows := ProcessFinishing(testMeta(), events)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].TimeOutsideZone != 3 {
		t.Errorf("TimeOutsideZone = %v, want 3", rows[0].TimeOutsideZone)
	}
}
