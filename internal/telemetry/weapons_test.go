package telemetry

import (
	"testing"
	"time"
)

func TestNormalizeWeapon(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WeapHK416_C", "HK416"},
		{"WeapKar98k_C", "Kar98k"},
		{"ProjGrenade_C", "ProjGrenade"},
		{"PlayerMale_A_C", "PlayerMale_A"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeWeapon(tt.in); got != tt.want {
			t.Errorf("NormalizeWeapon(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWeaponCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WeapAK47_C", CategoryAR},
		{"WeapMini14_C", CategoryDMR},
		{"WeapAWM_C", CategorySR},
		{"WeapUMP_C", CategorySMG},
		{"WeapSaiga12_C", CategoryShotgun},
		{"WeapM249_C", CategoryLMG},
		{"WeapDesertEagle_C", CategoryPistol},
		{"WeapPan_C", CategoryMelee},
		{"ProjGrenade_C", CategoryThrowable},
		{"PlayerMale_A_C", CategoryMelee},
		{"WeapMysteryGun_C", CategoryOther},
	}
	for _, tt := range tests {
		if got := WeaponCategory(tt.in); got != tt.want {
			t.Errorf("WeaponCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProcessWeaponDistribution(t *testing.T) {
	a := chr("Alpha", 1, 0, 0)
	victim := chr("Victim", 2, 10, 0)

	events := []Event{
		damageEvent(time.Second, &a, victim, "WeapHK416_C", "Damage_Gun", 30),
		damageEvent(2*time.Second, &a, victim, "WeapAK47_C", "Damage_Gun", 25),
		knockEvent(3*time.Second, &a, victim, "WeapHK416_C", 1000),
		killEvent(4*time.Second, &a, victim, "WeapHK416_C", "TorsoShot", "Damage_Gun", 1000),
	}

	rows := ProcessWeaponDistribution(testMeta(), events)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 (both weapons are ARs)", len(rows))
	}
	row := rows[0]
	if row.WeaponCategory != CategoryAR {
		t.Errorf("category = %q", row.WeaponCategory)
	}
	if row.Damage != 55 || row.Kills != 1 || row.Knocks != 1 {
		t.Errorf("totals = %v/%d/%d, want 55/1/1", row.Damage, row.Kills, row.Knocks)
	}
}

func TestIsNPC(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"", true},
		{"ai_soldier_12", true},
		{"AI_Scout", true},
		{"Commander", true},
		{"ZombieSoldier", true},
		{"RegularPlayer", false},
		{"aimbot_accuser", false},
	}
	for _, tt := range tests {
		if got := IsNPC(tt.name); got != tt.want {
			t.Errorf("IsNPC(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
