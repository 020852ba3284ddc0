package types

import "time"

type Mode string

const (
	ModeDuel         Mode = "duel"
	ModeRush         Mode = "rush"
	ModeBattleground Mode = "battleground"
)

// ModeConfig is the static, read-only configuration of one contest mode.
type ModeConfig struct {
	Players     int           `json:"players"`
	RatingRange int           `json:"rating_range"`
	BaseWait    time.Duration `json:"-"`
}

// BaseWaitSeconds is the floor of the wait estimate for the mode.
func (c ModeConfig) BaseWaitSeconds() int { return int(c.BaseWait / time.Second) }

func DefaultModes() map[Mode]ModeConfig {
	return map[Mode]ModeConfig{
		ModeDuel:         {Players: 2, RatingRange: 200, BaseWait: 30 * time.Second},
		ModeRush:         {Players: 4, RatingRange: 300, BaseWait: 60 * time.Second},
		ModeBattleground: {Players: 100, RatingRange: 500, BaseWait: 120 * time.Second},
	}
}

const DefaultRating = 1200

// Preferences are the recognised matching options. Unknown JSON fields are ignored.
type Preferences struct {
	RatingRange       int    `json:"rating_range,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
	Region            string `json:"region,omitempty"`
}

type Presence struct {
	IsOnline        bool      `json:"is_online"`
	LastActiveAt    time.Time `json:"last_active_at"`
	LookingForMatch bool      `json:"looking_for_match"`
	PreferredMode   Mode      `json:"preferred_mode,omitempty"`
}

// RatingChange is one entry of a player's append-only rating history.
type RatingChange struct {
	Timestamp    time.Time `json:"timestamp"`
	OldRating    int       `json:"old_rating"`
	NewRating    int       `json:"new_rating"`
	RatingChange int       `json:"rating_change"`
	Placement    int       `json:"placement"`
	Mode         Mode      `json:"mode,omitempty"`
}

type Profile struct {
	Key                  string         `json:"key"`
	DisplayName          string         `json:"display_name,omitempty"`
	Rating               int            `json:"rating"`
	RatingHistory        []RatingChange `json:"rating_history,omitempty"`
	ContestsParticipated int            `json:"contests_participated"`
	LastContestAt        time.Time      `json:"last_contest_at"`
	CurrentStreak        int            `json:"current_streak"`
	Presence             Presence       `json:"presence"`
	Preferences          Preferences    `json:"preferences"`
}

// NewProfile returns the profile an unknown player key starts with.
func NewProfile(key string) Profile {
	return Profile{Key: key, Rating: DefaultRating}
}

// ProfileUpdate carries the fields to merge into a profile; nil fields are left alone.
type ProfileUpdate struct {
	DisplayName          *string
	Rating               *int
	ContestsParticipated *int
	LastContestAt        *time.Time
	CurrentStreak        *int
	IsOnline             *bool
	LastActiveAt         *time.Time
	LookingForMatch      *bool
	PreferredMode        *Mode
	Preferences          *Preferences
}

func (p *Profile) Apply(u ProfileUpdate) {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.Rating != nil {
		p.Rating = *u.Rating
	}
	if u.ContestsParticipated != nil {
		p.ContestsParticipated = *u.ContestsParticipated
	}
	if u.LastContestAt != nil {
		p.LastContestAt = *u.LastContestAt
	}
	if u.CurrentStreak != nil {
		p.CurrentStreak = *u.CurrentStreak
	}
	if u.IsOnline != nil {
		p.Presence.IsOnline = *u.IsOnline
	}
	if u.LastActiveAt != nil {
		p.Presence.LastActiveAt = *u.LastActiveAt
	}
	if u.LookingForMatch != nil {
		p.Presence.LookingForMatch = *u.LookingForMatch
	}
	if u.PreferredMode != nil {
		p.Presence.PreferredMode = *u.PreferredMode
	}
	if u.Preferences != nil {
		p.Preferences = *u.Preferences
	}
}

// Ptr is a helper for building ProfileUpdate literals.
func Ptr[T any](v T) *T { return &v }

// StatusUpdate is the subset of presence a player may set directly.
type StatusUpdate struct {
	IsOnline        *bool `json:"is_online,omitempty"`
	LookingForMatch *bool `json:"looking_for_match,omitempty"`
	PreferredMode   *Mode `json:"preferred_mode,omitempty"`
}

type JoinRequest struct {
	PlayerKey   string      `json:"player_key"`
	Mode        Mode        `json:"mode"`
	Preferences Preferences `json:"preferences"`
}

type QueueEntry struct {
	PlayerKey     string      `json:"player_key"`
	DisplayRating int         `json:"display_rating"`
	JoinedAt      time.Time   `json:"joined_at"`
	Preferences   Preferences `json:"preferences"`
}

type MatchStatus string

const MatchStatusReady MatchStatus = "ready"

type Match struct {
	ID        string       `json:"id"`
	Mode      Mode         `json:"mode"`
	Players   []QueueEntry `json:"players"`
	CreatedAt time.Time    `json:"created_at"`
	Status    MatchStatus  `json:"status"`
}

// PlayerKeys lists the match participants in queue order.
func (m Match) PlayerKeys() []string {
	keys := make([]string, len(m.Players))
	for i, p := range m.Players {
		keys[i] = p.PlayerKey
	}
	return keys
}

type JoinResult struct {
	QueuePosition        int     `json:"queue_position"`
	EstimatedWaitSeconds int     `json:"estimated_wait_seconds"`
	Matches              []Match `json:"matches"`
}

type OpponentSearch struct {
	MatchingUsers  []Profile  `json:"matching_users"`
	SuggestedUsers []Profile  `json:"suggested_users"`
	UserRating     int        `json:"user_rating"`
	Config         ModeConfig `json:"config"`
}

// Standing is one player's finishing position in a completed contest.
type Standing struct {
	PlayerKey string `json:"player_key"`
	Placement int    `json:"placement"`
}

type ContestResult struct {
	Mode      Mode       `json:"mode"`
	Standings []Standing `json:"standings"`
}

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const EventMatchFound = "match_found"
