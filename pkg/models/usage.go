package models

// Commands that start playback; they count as songs in usage reports
var PlayCommands = []string{"play", "resume"}

// IsPlayCommand reports whether command starts playback
func IsPlayCommand(command string) bool {
	for _, c := range PlayCommands {
		if c == command {
			return true
		}
	}
	return false
}

// CommandLog is one command run in a guild, written by the bot
type CommandLog struct {
	ID        string    `bson:"_id" json:"id"`
	GuildID   string    `bson:"guildId" json:"guildId"`
	UserID    string    `bson:"userId" json:"userId"`
	Username  string    `bson:"username" json:"username"`
	Command   string    `bson:"command" json:"command"`
	Timestamp Timestamp `bson:"timestamp" json:"timestamp"`
}

// CommandUsage is one command run, across all guilds
type CommandUsage struct {
	ID        string    `bson:"_id" json:"id"`
	Command   string    `bson:"command" json:"command"`
	UserID    string    `bson:"userId" json:"userId"`
	Username  string    `bson:"username" json:"username"`
	GuildID   string    `bson:"guildId,omitempty" json:"guildId,omitempty"`
	Timestamp Timestamp `bson:"timestamp" json:"timestamp"`
}

// MusicUsage is one playback action (play, skip, stop, ...)
type MusicUsage struct {
	ID        string    `bson:"_id" json:"id"`
	Action    string    `bson:"action" json:"action"`
	UserID    string    `bson:"userId" json:"userId"`
	Username  string    `bson:"username" json:"username"`
	GuildID   string    `bson:"guildId,omitempty" json:"guildId,omitempty"`
	Title     string    `bson:"title,omitempty" json:"title,omitempty"`
	Timestamp Timestamp `bson:"timestamp" json:"timestamp"`
}

// ErrorLog is an error the bot reported
type ErrorLog struct {
	ID        string    `bson:"_id" json:"id"`
	Error     string    `bson:"error" json:"error"`
	UserID    string    `bson:"userId,omitempty" json:"userId,omitempty"`
	GuildID   string    `bson:"guildId,omitempty" json:"guildId,omitempty"`
	Severity  string    `bson:"severity,omitempty" json:"severity,omitempty"`
	Timestamp Timestamp `bson:"timestamp" json:"timestamp"`
}

// FavoriteSong is one saved song of a user
type FavoriteSong struct {
	ID        string `bson:"id" json:"id"`
	Title     string `bson:"title" json:"title"`
	Artist    string `bson:"artist" json:"artist"`
	Thumbnail string `bson:"thumbnail" json:"thumbnail"`
	URL       string `bson:"url" json:"url"`
	AddedAt   string `bson:"addedAt" json:"addedAt"`
}

// UserFavorites holds a user's saved songs, keyed by user ID
type UserFavorites struct {
	ID    string         `bson:"_id" json:"id"`
	Songs []FavoriteSong `bson:"songs" json:"songs"`
}
