package models

type RoomType string

const (
	RoomFree  RoomType = "free"
	RoomWager RoomType = "wager"
	RoomSolo  RoomType = "solo"
)

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomStarting RoomStatus = "starting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

type RoundPhase string

const (
	PhasePlaying   RoundPhase = "playing"
	PhaseRoundOver RoundPhase = "round_over"
	PhaseMatchOver RoundPhase = "match_over"
)

// RoundState tracks best-of-N progress. Win counters only increase and
// the phase never regresses within a match.
type RoundState struct {
	CurrentRound int            `json:"currentRound"`
	MaxRounds    int            `json:"maxRounds"`
	PlayerWins   map[string]int `json:"playerWins"`
	Phase        RoundPhase     `json:"roundPhase"`
}

func NewRoundState(maxRounds int) RoundState {
	return RoundState{
		CurrentRound: 1,
		MaxRounds:    maxRounds,
		PlayerWins:   make(map[string]int),
		Phase:        PhasePlaying,
	}
}

// WinsNeeded is ceil(maxRounds/2) regardless of configuration.
func (rs *RoundState) WinsNeeded() int {
	return (rs.MaxRounds + 1) / 2
}

// Bullet is transient bookkeeping for broadcast replay; hit resolution
// for hit-scan weapons already happened at creation time.
type Bullet struct {
	ID         string  `json:"id"`
	PlayerID   string  `json:"playerId"`
	Position   Vec3    `json:"position"`
	Direction  Vec3    `json:"direction"`
	WeaponType string  `json:"weaponType"`
	Damage     int     `json:"damage"`
	Speed      float64 `json:"speed"`
	Size       float64 `json:"size"`
}

// RoomInfo is the lobby-view summary broadcast in rooms_list.
type RoomInfo struct {
	ID          string     `json:"id"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	Status      RoomStatus `json:"status"`
	RoomType    RoomType   `json:"roomType"`
	EntryFee    int64      `json:"entryFee"`
	PrizePool   int64      `json:"prizePool"`
}
