package pubg

import (
	"encoding/json"
	"time"
)

// JSON:API envelope pieces. Unknown fields are ignored by encoding/json;
// partial records (null stats) decode to zero values rather than failing.

type resourceID struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type relationship struct {
	Data []resourceID `json:"data"`
}

type playersEnvelope struct {
	Data []playerResource `json:"data"`
}

type playerResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Name    string `json:"name"`
		ShardID string `json:"shardId"`
	} `json:"attributes"`
	Relationships struct {
		Matches relationship `json:"matches"`
	} `json:"relationships"`
}

type matchEnvelope struct {
	Data     matchResource     `json:"data"`
	Included []json.RawMessage `json:"included"`
}

type matchResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		CreatedAt     time.Time `json:"createdAt"`
		Duration      int       `json:"duration"`
		GameMode      string    `json:"gameMode"`
		MapName       string    `json:"mapName"`
		MatchType     string    `json:"matchType"`
		IsCustomMatch bool      `json:"isCustomMatch"`
		ShardID       string    `json:"shardId"`
	} `json:"attributes"`
	Relationships struct {
		Assets  relationship `json:"assets"`
		Rosters relationship `json:"rosters"`
	} `json:"relationships"`
}

// includedResource is the discriminated shape of entries in the match
// envelope's included array (participant, roster, asset).
type includedResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		// asset
		URL  string `json:"URL"`
		Name string `json:"name"`
		// roster
		Won   string `json:"won"`
		Stats struct {
			// roster stats
			Rank   int `json:"rank"`
			TeamID int `json:"teamId"`
		} `json:"stats"`
	} `json:"attributes"`
	Relationships struct {
		Participants relationship `json:"participants"`
	} `json:"relationships"`
}

type participantResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Stats ParticipantStats `json:"stats"`
	} `json:"attributes"`
}

// ParticipantStats is the per-player summary the upstream attaches to each
// participant. Field coverage matches what the summary worker persists.
type ParticipantStats struct {
	Name            string  `json:"name"`
	PlayerID        string  `json:"playerId"`
	WinPlace        int     `json:"winPlace"`
	Kills           int     `json:"kills"`
	Assists         int     `json:"assists"`
	DBNOs           int     `json:"DBNOs"`
	DamageDealt     float64 `json:"damageDealt"`
	HeadshotKills   int     `json:"headshotKills"`
	Heals           int     `json:"heals"`
	Boosts          int     `json:"boosts"`
	Revives         int     `json:"revives"`
	KillPlace       int     `json:"killPlace"`
	KillStreaks     int     `json:"killStreaks"`
	LongestKill     float64 `json:"longestKill"`
	RideDistance    float64 `json:"rideDistance"`
	SwimDistance    float64 `json:"swimDistance"`
	WalkDistance    float64 `json:"walkDistance"`
	RoadKills       int     `json:"roadKills"`
	TeamKills       int     `json:"teamKills"`
	TimeSurvived    float64 `json:"timeSurvived"`
	VehicleDestroys int     `json:"vehicleDestroys"`
	WeaponsAcquired int     `json:"weaponsAcquired"`
	DeathType       string  `json:"deathType"`
}

// PlayerInfo is the resolved identity of one tracked player plus the match
// ids the upstream currently lists for them.
type PlayerInfo struct {
	AccountID string
	Name      string
	MatchIDs  []string
}

// Participant is one player's roster membership and summary in a match.
type Participant struct {
	ParticipantID string
	Stats         ParticipantStats
	TeamID        int
	Placement     int
}

// Roster is one team in a match.
type Roster struct {
	RosterID       string
	TeamID         int
	Placement      int
	Won            bool
	ParticipantIDs []string
}

// Match is the parsed match-fetch response.
type Match struct {
	MatchID       string
	MapName       string
	GameMode      string
	MatchType     string
	IsCustomMatch bool
	CreatedAt     time.Time
	Duration      int
	TelemetryURL  string
	Participants  []Participant
	Rosters       []Roster
}

// Season is one entry from the season list.
type Season struct {
	ID             string
	IsCurrent      bool
	IsOffseason    bool
}

type seasonsEnvelope struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			IsCurrentSeason bool `json:"isCurrentSeason"`
			IsOffseason     bool `json:"isOffseason"`
		} `json:"attributes"`
	} `json:"data"`
}

// RankedStats is the per-game-mode ranked record for one player and season.
type RankedStats struct {
	GameMode     string
	CurrentTier  string
	CurrentSub   string
	CurrentPoint int
	BestTier     string
	BestPoint    int
	Rounds       int
	Wins         int
	Kills        int
	Deaths       int
	KDA          float64
	AvgRank      float64
	Top10Ratio   float64
	DamageDealt  float64
}

type rankedEnvelope struct {
	Data struct {
		Attributes struct {
			RankedGameModeStats map[string]struct {
				CurrentTier struct {
					Tier    string `json:"tier"`
					SubTier string `json:"subTier"`
				} `json:"currentTier"`
				CurrentRankPoint int `json:"currentRankPoint"`
				BestTier         struct {
					Tier string `json:"tier"`
				} `json:"bestTier"`
				BestRankPoint int     `json:"bestRankPoint"`
				RoundsPlayed  int     `json:"roundsPlayed"`
				Wins          int     `json:"wins"`
				Kills         int     `json:"kills"`
				Deaths        int     `json:"deaths"`
				KDA           float64 `json:"kda"`
				AvgRank       float64 `json:"avgRank"`
				Top10Ratio    float64 `json:"top10Ratio"`
				DamageDealt   float64 `json:"damageDealt"`
			} `json:"rankedGameModeStats"`
		} `json:"attributes"`
	} `json:"data"`
}

// parseMatchEnvelope flattens a JSON:API match document into a Match.
func parseMatchEnvelope(env *matchEnvelope) (*Match, error) {
	m := &Match{
		MatchID:       env.Data.ID,
		MapName:       env.Data.Attributes.MapName,
		GameMode:      env.Data.Attributes.GameMode,
		MatchType:     env.Data.Attributes.MatchType,
		IsCustomMatch: env.Data.Attributes.IsCustomMatch,
		CreatedAt:     env.Data.Attributes.CreatedAt,
		Duration:      env.Data.Attributes.Duration,
	}

	participants := make(map[string]Participant)
	for _, raw := range env.Included {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			continue
		}
		switch head.Type {
		case "participant":
			var pr participantResource
			if err := json.Unmarshal(raw, &pr); err != nil {
				continue
			}
			participants[pr.ID] = Participant{ParticipantID: pr.ID, Stats: pr.Attributes.Stats}
		case "roster":
			var rr includedResource
			if err := json.Unmarshal(raw, &rr); err != nil {
				continue
			}
			roster := Roster{
				RosterID:  rr.ID,
				TeamID:    rr.Attributes.Stats.TeamID,
				Placement: rr.Attributes.Stats.Rank,
				Won:       rr.Attributes.Won == "true",
			}
			for _, pid := range rr.Relationships.Participants.Data {
				roster.ParticipantIDs = append(roster.ParticipantIDs, pid.ID)
			}
			m.Rosters = append(m.Rosters, roster)
		case "asset":
			var ar includedResource
			if err := json.Unmarshal(raw, &ar); err != nil {
				continue
			}
			if ar.Attributes.Name == "telemetry" && m.TelemetryURL == "" {
				m.TelemetryURL = ar.Attributes.URL
			}
		}
	}

	// Stamp roster membership onto participants.
	for _, roster := range m.Rosters {
		for _, pid := range roster.ParticipantIDs {
			if p, ok := participants[pid]; ok {
				p.TeamID = roster.TeamID
				p.Placement = roster.Placement
				participants[pid] = p
			}
		}
	}
	for _, p := range participants {
		m.Participants = append(m.Participants, p)
	}
	return m, nil
}
