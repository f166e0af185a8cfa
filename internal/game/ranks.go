package game

// Rank maps a lifetime XP threshold to a display name.
type Rank struct {
	MinXP int    `json:"minXp"`
	Name  string `json:"name"`
}

// RankTable is ordered by ascending MinXP. An entity's rank is the last
// entry whose threshold its XP meets. Rank is always derived, never stored.
var RankTable = []Rank{
	{0, "Recruit"},
	{500, "Private"},
	{1500, "Corporal"},
	{3000, "Sergeant"},
	{6000, "Lieutenant"},
	{10000, "Captain"},
	{20000, "Major"},
	{35000, "Colonel"},
	{50000, "General"},
}

// RankForXP returns the rank name for a lifetime XP total.
func RankForXP(xp int) string {
	name := RankTable[0].Name
	for _, r := range RankTable {
		if xp < r.MinXP {
			break
		}
		name = r.Name
	}
	return name
}
