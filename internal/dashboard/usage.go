package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// Windows and caps of the usage reports
const (
	AdminUsageDays    = 30
	RecentErrorsLimit = 50
	AdminUsersLimit   = 50

	DefaultChartDays = 7
	MaxChartDays     = 90
	TopCommandsLimit = 6
)

const unknownField = "Unknown"

// AdminStats is the admin overview with per-guild and per-user detail
type AdminStats struct {
	TotalServers  int64            `json:"totalServers"`
	TotalUsers    int64            `json:"totalUsers"`
	TotalCommands int              `json:"totalCommands"`
	TotalSongs    int              `json:"totalSongs"`
	BotStats      *models.BotStats `json:"botStats"`
	RecentErrors  int              `json:"recentErrors"`
	Performance   Performance      `json:"performance"`
	SensitiveData SensitiveData    `json:"sensitiveData"`
}

// Performance is derived from the usage and error logs
type Performance struct {
	// ErrorRate is errors per hundred commands; 0 without commands
	ErrorRate float64 `json:"errorRate"`
}

// SensitiveData is only served to admins
type SensitiveData struct {
	Guilds []AdminGuild `json:"guilds"`
	Users  []AdminUser  `json:"users"`
	Errors []AdminError `json:"errors"`
}

// AdminGuild is a guild row of the admin overview
type AdminGuild struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	OwnerID      string     `json:"ownerId"`
	OwnerName    string     `json:"ownerName"`
	MemberCount  int        `json:"memberCount"`
	CommandsUsed int64      `json:"commandsUsed"`
	SongsPlayed  int64      `json:"songsPlayed"`
	LastActive   *time.Time `json:"lastActive"`
}

// AdminUser is a user row of the admin overview
type AdminUser struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	CommandsUsed int        `json:"commandsUsed"`
	SongsPlayed  int        `json:"songsPlayed"`
	LastSeen     *time.Time `json:"lastSeen"`
}

// AdminError is an error row of the admin overview
type AdminError struct {
	Error     string     `json:"error"`
	Timestamp *time.Time `json:"timestamp"`
	UserID    string     `json:"userId,omitempty"`
	GuildID   string     `json:"guildId,omitempty"`
	Severity  string     `json:"severity,omitempty"`
}

// Series is one chart: a label per bucket and its value
type Series struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// Charts holds the day-bucketed usage series
type Charts struct {
	CommandUsage Series `json:"commandUsage"`
	MusicUsage   Series `json:"musicUsage"`
	TopCommands  Series `json:"topCommands"`
}

// usageWindow filters documents whose timestamp lies in [start, end]
func usageWindow(start, end time.Time) database.Query {
	return database.Query{
		Filter: bson.M{"timestamp": bson.M{"$gte": start, "$lte": end}},
		Sort:   []database.SortField{database.Desc("timestamp")},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// AdminStats builds the admin overview from the last AdminUsageDays of
// command and music usage plus the most recent errors
func (s *Service) AdminStats(ctx context.Context) (*AdminStats, error) {
	now := s.now().UTC()
	window := usageWindow(now.Add(-AdminUsageDays*24*time.Hour), now)

	var (
		guilds   []*models.Guild
		users    int64
		stats    *models.BotStats
		commands []*models.CommandUsage
		music    []*models.MusicUsage
		errs     []*models.ErrorLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		guilds, err = s.store.Guilds.Find(gctx, database.Query{Sort: []database.SortField{database.Desc("lastActive")}})
		return err
	})
	g.Go(func() (err error) {
		users, err = s.store.Users.Count(gctx, bson.M{})
		return err
	})
	g.Go(func() (err error) {
		stats, err = s.store.BotStats.Get(gctx, models.BotStatsID)
		return err
	})
	g.Go(func() (err error) {
		commands, err = s.store.CommandUsage.Find(gctx, window)
		return err
	})
	g.Go(func() (err error) {
		music, err = s.store.MusicUsage.Find(gctx, window)
		return err
	})
	g.Go(func() (err error) {
		errs, err = s.store.Errors.Find(gctx, database.Query{
			Sort:  []database.SortField{database.Desc("timestamp")},
			Limit: RecentErrorsLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading admin stats: %w", err)
	}

	out := &AdminStats{
		TotalServers:  int64(len(guilds)),
		TotalUsers:    users,
		TotalCommands: len(commands),
		BotStats:      stats,
		RecentErrors:  len(errs),
		SensitiveData: SensitiveData{
			Guilds: make([]AdminGuild, 0, len(guilds)),
			Users:  []AdminUser{},
			Errors: make([]AdminError, 0, len(errs)),
		},
	}
	if len(commands) > 0 {
		out.Performance.ErrorRate = float64(len(errs)) / float64(len(commands)) * 100
	}

	// usage is newest first, so the first sighting of a user is their last seen
	byUser := make(map[string]*AdminUser)
	var order []string
	seen := func(id, username string, at models.Timestamp) *AdminUser {
		u, ok := byUser[id]
		if !ok {
			u = &AdminUser{ID: id, Username: username, LastSeen: at.Ptr()}
			byUser[id] = u
			order = append(order, id)
		}
		return u
	}
	for _, c := range commands {
		seen(c.UserID, c.Username, c.Timestamp).CommandsUsed++
	}
	for _, m := range music {
		u := seen(m.UserID, m.Username, m.Timestamp)
		if m.Action == "play" {
			u.SongsPlayed++
			out.TotalSongs++
		}
	}
	for _, id := range order {
		if len(out.SensitiveData.Users) == AdminUsersLimit {
			break
		}
		out.SensitiveData.Users = append(out.SensitiveData.Users, *byUser[id])
	}

	for _, guild := range guilds {
		out.SensitiveData.Guilds = append(out.SensitiveData.Guilds, AdminGuild{
			ID:           guild.ID,
			Name:         valueOr(guild.Name, unknownField),
			OwnerID:      valueOr(guild.OwnerID, unknownField),
			OwnerName:    valueOr(guild.OwnerName, unknownField),
			MemberCount:  guild.MemberCount,
			CommandsUsed: guild.CommandsUsed,
			SongsPlayed:  guild.SongsPlayed,
			LastActive:   guild.LastActive.Ptr(),
		})
	}
	for _, e := range errs {
		out.SensitiveData.Errors = append(out.SensitiveData.Errors, AdminError{
			Error:     e.Error,
			Timestamp: e.Timestamp.Ptr(),
			UserID:    e.UserID,
			GuildID:   e.GuildID,
			Severity:  e.Severity,
		})
	}
	return out, nil
}

// Charts buckets the last days of command and music usage by UTC day,
// oldest first, and ranks the most used commands
func (s *Service) Charts(ctx context.Context, days int) (*Charts, error) {
	if days < 1 || days > MaxChartDays {
		return nil, errors.BadRequest(fmt.Sprintf("Days must be between 1 and %d", MaxChartDays))
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))
	window := usageWindow(start, now)

	var (
		commands []*models.CommandUsage
		music    []*models.MusicUsage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		commands, err = s.store.CommandUsage.Find(gctx, window)
		return err
	})
	g.Go(func() (err error) {
		music, err = s.store.MusicUsage.Find(gctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading chart data: %w", err)
	}

	labels := make([]string, days)
	index := make(map[string]int, days)
	for i := range labels {
		labels[i] = start.AddDate(0, 0, i).Format(time.DateOnly)
		index[labels[i]] = i
	}
	bucket := func(ts []models.Timestamp) Series {
		data := make([]int, days)
		for _, t := range ts {
			if i, ok := index[t.UTC().Format(time.DateOnly)]; ok {
				data[i]++
			}
		}
		return Series{Labels: append([]string(nil), labels...), Data: data}
	}

	commandTimes := make([]models.Timestamp, len(commands))
	counts := make(map[string]int)
	for i, c := range commands {
		commandTimes[i] = c.Timestamp
		counts[c.Command]++
	}
	musicTimes := make([]models.Timestamp, len(music))
	for i, m := range music {
		musicTimes[i] = m.Timestamp
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > TopCommandsLimit {
		names = names[:TopCommandsLimit]
	}
	top := Series{Labels: names, Data: make([]int, len(names))}
	for i, name := range names {
		top.Data[i] = counts[name]
	}

	return &Charts{
		CommandUsage: bucket(commandTimes),
		MusicUsage:   bucket(musicTimes),
		TopCommands:  top,
	}, nil
}
