package game

// Weapon represents a weapon configuration
type Weapon struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Damage       int     `json:"damage"`
	Range        float64 `json:"range"` // world units
	HeadshotMult float64 `json:"headshotMult"`
	SplashRadius float64 `json:"splashRadius,omitempty"` // 0 = no splash
	SplashDamage int     `json:"splashDamage,omitempty"`
}

// Weapons is the map of all available weapons.
// Damage is the pre-falloff base; falloff reduces it up to 50% as the
// target approaches full Range.
var Weapons = map[string]Weapon{
	"pistol": {
		ID:           "pistol",
		Name:         "Pistol",
		Damage:       18,
		Range:        40,
		HeadshotMult: 1.8,
	},
	"smg": {
		ID:           "smg",
		Name:         "SMG",
		Damage:       16,
		Range:        35,
		HeadshotMult: 1.5,
	},
	"assault": {
		ID:           "assault",
		Name:         "Assault Rifle",
		Damage:       28,
		Range:        50,
		HeadshotMult: 1.7,
	},
	"shotgun": {
		ID:           "shotgun",
		Name:         "Shotgun",
		Damage:       60,
		Range:        15,
		HeadshotMult: 1.3,
	},
	"sniper": {
		ID:           "sniper",
		Name:         "Sniper Rifle",
		Damage:       85,
		Range:        120,
		HeadshotMult: 2.0,
	},
	"rocket": {
		ID:           "rocket",
		Name:         "Rocket Launcher",
		Damage:       100,
		Range:        80,
		HeadshotMult: 1.0,
		SplashRadius: 8,
		SplashDamage: 80,
	},
}

// DefaultWeapon is what every entity holds until it equips something else.
const DefaultWeapon = "assault"

// GetWeapon returns a weapon by ID. Unknown keys report false so combat
// can reject shots from unrecognized weapons instead of defaulting.
func GetWeapon(id string) (Weapon, bool) {
	w, ok := Weapons[id]
	return w, ok
}

// GetAllWeapons returns all weapons as a slice
func GetAllWeapons() []Weapon {
	weapons := make([]Weapon, 0, len(Weapons))
	for _, w := range Weapons {
		weapons = append(weapons, w)
	}
	return weapons
}
