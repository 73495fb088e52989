package guilds

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// SecondsPerSong is the playtime credited to each play command
const SecondsPerSong = 180

// TopUsersLimit caps the per-user ranking of a music stats report
const TopUsersLimit = 10

// MusicRanges maps the accepted music stats windows to days; 0 means all time
var MusicRanges = map[string]int{
	"7d":  7,
	"30d": 30,
	"all": 0,
}

// UserMusicActivity is one user's share of a guild's playback
type UserMusicActivity struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	SongsPlayed int     `json:"songsPlayed"`
	Avatar      *string `json:"avatar"`
}

// DailyMusicActivity counts one UTC day of a guild's commands
type DailyMusicActivity struct {
	Date     string `json:"date"`
	Songs    int    `json:"songs"`
	Commands int    `json:"commands"`
}

// MusicStats summarizes a guild's command log over one window
type MusicStats struct {
	Range         string               `json:"range"`
	TotalSongs    int                  `json:"totalSongs"`
	TotalPlaytime int                  `json:"totalPlaytime"`
	TotalCommands int                  `json:"totalCommands"`
	ActiveUsers   int                  `json:"activeUsers"`
	DailyActivity []DailyMusicActivity `json:"dailyActivity"`
	TopUsers      []UserMusicActivity  `json:"topUsers"`
}

// MusicStats reports a guild's playback from its command log. Unknown
// ranges read as 7d.
func (s *Service) MusicStats(ctx context.Context, serverID, rng string) (*MusicStats, error) {
	if serverID == "" {
		return nil, errors.BadRequest("Server ID required")
	}
	days, ok := MusicRanges[rng]
	if !ok {
		rng, days = DefaultPeriod, Periods[DefaultPeriod]
	}

	guild, err := s.store.Guilds.Get(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("reading guild %s: %w", serverID, err)
	}
	if guild == nil {
		return nil, errors.NotFound("Server not found")
	}

	now := s.now().UTC()
	window := bson.M{"$lte": now}
	if days > 0 {
		window["$gte"] = now.Add(-time.Duration(days) * 24 * time.Hour)
	}
	logs, err := s.store.CommandLogs.Find(ctx, database.Query{
		Filter: bson.M{"guildId": serverID, "timestamp": window},
		Sort:   []database.SortField{database.Asc("timestamp")},
	})
	if err != nil {
		return nil, fmt.Errorf("reading command logs of %s: %w", serverID, err)
	}

	out := &MusicStats{Range: rng, DailyActivity: []DailyMusicActivity{}, TopUsers: []UserMusicActivity{}}
	users := make(map[string]*UserMusicActivity)
	var order []string
	daily := make(map[string]*DailyMusicActivity)

	for _, l := range logs {
		play := models.IsPlayCommand(l.Command)
		out.TotalCommands++
		if play {
			out.TotalSongs++
			out.TotalPlaytime += SecondsPerSong
		}

		u, seen := users[l.UserID]
		if !seen {
			u = &UserMusicActivity{UserID: l.UserID, Username: l.Username}
			users[l.UserID] = u
			order = append(order, l.UserID)
		}
		if play {
			u.SongsPlayed++
		}

		key := l.Timestamp.UTC().Format(time.DateOnly)
		d, seen := daily[key]
		if !seen {
			d = &DailyMusicActivity{Date: key}
			daily[key] = d
		}
		d.Commands++
		if play {
			d.Songs++
		}
	}

	out.ActiveUsers = len(users)
	for _, d := range daily {
		out.DailyActivity = append(out.DailyActivity, *d)
	}
	sort.Slice(out.DailyActivity, func(i, j int) bool {
		return out.DailyActivity[i].Date < out.DailyActivity[j].Date
	})

	for _, id := range order {
		out.TopUsers = append(out.TopUsers, *users[id])
	}
	sort.SliceStable(out.TopUsers, func(i, j int) bool {
		return out.TopUsers[i].SongsPlayed > out.TopUsers[j].SongsPlayed
	})
	if len(out.TopUsers) > TopUsersLimit {
		out.TopUsers = out.TopUsers[:TopUsersLimit]
	}
	return out, nil
}
