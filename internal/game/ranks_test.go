package game

import "testing"

// TestRankForXP verifies thresholds resolve to the right names
func TestRankForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want string
	}{
		{0, "Recruit"},
		{499, "Recruit"},
		{500, "Private"},
		{1500, "Corporal"},
		{2999, "Corporal"},
		{3000, "Sergeant"},
		{10000, "Captain"},
		{49999, "Colonel"},
		{50000, "General"},
		{1000000, "General"},
	}

	for _, tt := range tests {
		if got := RankForXP(tt.xp); got != tt.want {
			t.Errorf("RankForXP(%d) = %s, want %s", tt.xp, got, tt.want)
		}
	}
}

// TestActorRankCombinesXP verifies rank derives from lifetime plus match XP
func TestActorRankCombinesXP(t *testing.T) {
	a := Actor{TotalXP: 400, MatchXP: 150}
	if got := a.Rank(); got != "Private" {
		t.Errorf("rank = %s, want Private (400+150 crosses the threshold)", got)
	}
}
