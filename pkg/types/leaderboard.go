package types

type Tier string

const (
	TierBronze      Tier = "Bronze"
	TierSilver      Tier = "Silver"
	TierGold        Tier = "Gold"
	TierPlatinum    Tier = "Platinum"
	TierDiamond     Tier = "Diamond"
	TierMaster      Tier = "Master"
	TierGrandmaster Tier = "Grandmaster"
)

// Tiers in ascending order.
var Tiers = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond, TierMaster, TierGrandmaster}

// Rank is the tier's position in ascending order, -1 if unknown.
func (t Tier) Rank() int {
	for i, x := range Tiers {
		if x == t {
			return i
		}
	}
	return -1
}

type Timeframe string

const (
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeAll   Timeframe = "all"
)

type LeaderboardEntry struct {
	Rank                 int     `json:"rank"`
	PlayerKey            string  `json:"player_key"`
	DisplayName          string  `json:"display_name,omitempty"`
	Rating               int     `json:"rating"`
	DisplayRating        int     `json:"display_rating"`
	Tier                 Tier    `json:"tier"`
	WinRate              int     `json:"win_rate"`
	AveragePlacement     float64 `json:"average_placement"`
	RecentChange         int     `json:"recent_change"`
	ContestsParticipated int     `json:"contests_participated"`
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

type LeaderboardStats struct {
	TotalPlayers     int          `json:"total_players"`
	AverageRating    float64      `json:"average_rating"`
	TierDistribution map[Tier]int `json:"tier_distribution"`
}

type LeaderboardPage struct {
	Timeframe  Timeframe          `json:"timeframe"`
	Entries    []LeaderboardEntry `json:"entries"`
	Pagination Pagination         `json:"pagination"`
	Stats      LeaderboardStats   `json:"stats"`
}

type StreakStatus string

const (
	StreakActive StreakStatus = "active"
	StreakAtRisk StreakStatus = "at-risk"
	StreakBroken StreakStatus = "broken"
)

// ActivitySummary is the per-player activity view.
type ActivitySummary struct {
	PlayerKey            string       `json:"player_key"`
	Rating               int          `json:"rating"`
	Tier                 Tier         `json:"tier"`
	CurrentStreak        int          `json:"current_streak"`
	StreakStatus         StreakStatus `json:"streak_status"`
	WinRate              int          `json:"win_rate"`
	AveragePlacement     float64      `json:"average_placement"`
	WeekChange           int          `json:"week_change"`
	MonthChange          int          `json:"month_change"`
	ContestsParticipated int          `json:"contests_participated"`
	IsOnline             bool         `json:"is_online"`
}
