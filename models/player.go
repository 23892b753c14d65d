package models

// Vec3 is a world-space position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotation carries pitch (X) and yaw (Y) in radians.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is one combatant inside a room. The connection-scoped ID is
// regenerated on every authenticate; AccountID is stable across sessions.
type Player struct {
	ID             string   `json:"id"`
	AccountID      string   `json:"accountId"`
	Username       string   `json:"username"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	Position       Vec3     `json:"position"`
	Rotation       Rotation `json:"rotation"`
	Health         int      `json:"health"`
	Kills          int      `json:"kills"`
	IsAlive        bool     `json:"isAlive"`
	Weapon         string   `json:"weapon"`
	Ammo           int      `json:"ammo"`
	IsReloading    bool     `json:"isReloading"`
}

// MaxHealth is the round-start health of every combatant.
const MaxHealth = 100

// BotAccountID marks the bot's pseudo account. Bots never touch the ledger.
const BotAccountID = "bot"

func (p *Player) IsBot() bool {
	return p.AccountID == BotAccountID
}
