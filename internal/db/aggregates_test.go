package db

import "testing"

func TestMatchTypeBucket(t *testing.T) {
	tests := []struct {
		gameType     string
		isTournament bool
		want         string
	}{
		{"competitive", false, BucketRanked},
		{"ranked", false, BucketRanked},
		{"esports", false, BucketRanked},
		{"normal", false, BucketNormal},
		{"official", false, BucketNormal},
		{"arcade", false, BucketNormal},
		{"custom", false, BucketNormal},
		{"official", true, BucketTournament},
	}
	for _, tt := range tests {
		if got := MatchTypeBucket(tt.gameType, tt.isTournament); got != tt.want {
			t.Errorf("MatchTypeBucket(%q, %v) = %q, want %q", tt.gameType, tt.isTournament, got, tt.want)
		}
	}
}

func TestStageFlagValidation(t *testing.T) {
	s := &Store{}
	if err := s.SetStageFlag(nil, "m1", "drop table"); err == nil {
		t.Error("expected rejection of unknown flag")
	}
	if err := s.SetBackfillFlag(nil, 1, "bogus"); err == nil {
		t.Error("expected rejection of unknown backfill flag")
	}
}
