package models

import "encoding/json"

// Envelope is the wire format for every WebSocket message in both
// directions: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types.
const (
	MsgAuthenticate       = "authenticate"
	MsgListRooms          = "list_rooms"
	MsgCreateRoom         = "create_room"
	MsgCreateWagerRoom    = "create_wager_room"
	MsgCreateSinglePlayer = "create_singleplayer"
	MsgJoinRoom           = "join_room"
	MsgLeaveRoom          = "leave_room"
	MsgPlayerUpdate       = "player_update"
	MsgShoot              = "shoot"
	MsgHit                = "hit"
	MsgWeaponSwitch       = "weapon_switch"
	MsgReloadStart        = "reload_start"
	MsgReloadComplete     = "reload_complete"
	MsgStartGame          = "start_game"
	MsgPlayerReady        = "player_ready"
	MsgGetWallet          = "get_wallet"
)

// Outbound message types.
const (
	MsgAuthenticated      = "authenticated"
	MsgAuthError          = "auth_error"
	MsgRoomsList          = "rooms_list"
	MsgRoomJoined         = "room_joined"
	MsgPlayerJoined       = "player_joined"
	MsgPlayerLeft         = "player_left"
	MsgGameStarted        = "game_started"
	MsgGameActive         = "game_active"
	MsgPlayerMoved        = "player_moved"
	MsgBulletFired        = "bullet_fired"
	MsgWeaponSwitched     = "player_weapon_switched"
	MsgReloadStarted      = "reload_started"
	MsgReloadCompleted    = "reload_completed"
	MsgPlayerDamaged      = "player_damaged"
	MsgPlayerKilled       = "player_killed"
	MsgRoundEnded         = "round_ended"
	MsgRoundStarted       = "round_started"
	MsgMatchEnded         = "match_ended"
	MsgGameEnded          = "game_ended"
	MsgCountdownStart     = "countdown_start"
	MsgCountdownTick      = "countdown_tick"
	MsgRoomFull           = "room_full"
	MsgPlayerReadyStatus  = "player_ready_status"
	MsgWalletUpdated      = "wallet_updated"
	MsgWalletData         = "wallet_data"
	MsgError              = "error"
)

type AuthenticatePayload struct {
	SessionToken string `json:"sessionToken"`
	ExperienceID string `json:"experienceId"`
}

type ListRoomsPayload struct {
	ExperienceID string `json:"experienceId,omitempty"`
}

type CreateRoomPayload struct {
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type CreateWagerRoomPayload struct {
	EntryFee       int64  `json:"entryFee"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type JoinRoomPayload struct {
	RoomID         string `json:"roomId"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type PlayerUpdatePayload struct {
	Position    *Vec3     `json:"position,omitempty"`
	Rotation    *Rotation `json:"rotation,omitempty"`
	Ammo        *int      `json:"ammo,omitempty"`
	IsReloading *bool     `json:"isReloading,omitempty"`
}

type ShootPayload struct {
	Position   Vec3    `json:"position"`
	Direction  Vec3    `json:"direction"`
	WeaponType string  `json:"weaponType"`
	Damage     int     `json:"damage"`
	Speed      float64 `json:"speed"`
	Size       float64 `json:"size"`
}

type HitPayload struct {
	TargetPlayerID string `json:"targetPlayerId"`
	Damage         int    `json:"damage"`
}

type WeaponSwitchPayload struct {
	Weapon string `json:"weapon"`
	Ammo   int    `json:"ammo"`
}

type ReloadStartPayload struct {
	ReloadTime int64 `json:"reloadTime"`
	MaxAmmo    int   `json:"maxAmmo"`
}

type GetWalletPayload struct {
	Username string `json:"username"`
}

type ErrorPayload struct {
	Message  string `json:"message"`
	Required int64  `json:"required,omitempty"`
	Current  int64  `json:"current,omitempty"`
}
