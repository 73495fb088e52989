package models

// Singleton document keys
const (
	BotStatsID = "global"
	DevModeID  = "devMode"
)

// BotStats is the bot's heartbeat singleton (botStats/global)
type BotStats struct {
	ID                string    `bson:"_id" json:"-"`
	TotalGuilds       int64     `bson:"totalGuilds" json:"totalGuilds"`
	TotalActiveGuilds int64     `bson:"totalActiveGuilds" json:"totalActiveGuilds"`
	TotalUsers        int64     `bson:"totalUsers" json:"totalUsers"`
	CommandsUsed      int64     `bson:"commandsUsed" json:"commandsUsed"`
	TotalSongs        int64     `bson:"totalSongs" json:"totalSongs"`
	Uptime            string    `bson:"uptime" json:"uptime"`
	Status            string    `bson:"status" json:"status"`
	MaintenanceMode   bool      `bson:"maintenanceMode" json:"maintenanceMode"`
	DevMode           bool      `bson:"devMode" json:"devMode"`
	LastUpdated       Timestamp `bson:"lastUpdated" json:"lastUpdated"`
	LastStatusUpdate  Timestamp `bson:"lastStatusUpdate,omitempty" json:"lastStatusUpdate,omitempty"`
}

// DevMode is the dev-mode flag with its audit trail (botSettings/devMode).
// The bot clears NeedsNotification after announcing the change.
type DevMode struct {
	ID                string    `bson:"_id" json:"-"`
	Enabled           bool      `bson:"enabled" json:"enabled"`
	LastToggled       Timestamp `bson:"lastToggled" json:"lastToggled"`
	ToggledBy         string    `bson:"toggledBy" json:"toggledBy"`
	ToggledByUserID   string    `bson:"toggledByUserId" json:"toggledByUserId"`
	ToggledFrom       string    `bson:"toggledFrom" json:"toggledFrom"`
	NeedsNotification bool      `bson:"needsNotification" json:"needsNotification"`
	NotificationSent  bool      `bson:"notificationSent" json:"notificationSent"`
}

// ServerSettings are the resolved per-guild playback preferences
type ServerSettings struct {
	DefaultVolume      int      `json:"defaultVolume"`
	MaxQueueSize       int      `json:"maxQueueSize"`
	AutoLeave          bool     `json:"autoLeave"`
	AutoLeaveTimeout   int      `json:"autoLeaveTimeout"`
	AllowedChannels    []string `json:"allowedChannels"`
	BlockedChannels    []string `json:"blockedChannels"`
	WelcomeMessages    bool     `json:"welcomeMessages"`
	NowPlayingMessages bool     `json:"nowPlayingMessages"`
	DeleteCommands     bool     `json:"deleteCommands"`
}

// DefaultServerSettings is what a guild gets before anyone saves settings
func DefaultServerSettings() ServerSettings {
	return ServerSettings{
		DefaultVolume:      50,
		MaxQueueSize:       100,
		AutoLeave:          true,
		AutoLeaveTimeout:   5,
		AllowedChannels:    []string{},
		BlockedChannels:    []string{},
		WelcomeMessages:    true,
		NowPlayingMessages: true,
	}
}

// ServerSettingsDoc is the stored, partial form of ServerSettings
// (serverSettings). Nil fields were never saved and resolve to defaults.
// It doubles as the merge patch submitted by the settings form.
type ServerSettingsDoc struct {
	ID                 string    `bson:"_id,omitempty" json:"-"`
	DefaultVolume      *int      `bson:"defaultVolume,omitempty" json:"defaultVolume,omitempty" binding:"omitempty,min=0,max=200"`
	MaxQueueSize       *int      `bson:"maxQueueSize,omitempty" json:"maxQueueSize,omitempty" binding:"omitempty,min=1,max=1000"`
	AutoLeave          *bool     `bson:"autoLeave,omitempty" json:"autoLeave,omitempty"`
	AutoLeaveTimeout   *int      `bson:"autoLeaveTimeout,omitempty" json:"autoLeaveTimeout,omitempty" binding:"omitempty,min=0,max=1440"`
	AllowedChannels    *[]string `bson:"allowedChannels,omitempty" json:"allowedChannels,omitempty"`
	BlockedChannels    *[]string `bson:"blockedChannels,omitempty" json:"blockedChannels,omitempty"`
	WelcomeMessages    *bool     `bson:"welcomeMessages,omitempty" json:"welcomeMessages,omitempty"`
	NowPlayingMessages *bool     `bson:"nowPlayingMessages,omitempty" json:"nowPlayingMessages,omitempty"`
	DeleteCommands     *bool     `bson:"deleteCommands,omitempty" json:"deleteCommands,omitempty"`
}

// Empty reports whether the patch sets nothing
func (d *ServerSettingsDoc) Empty() bool {
	return d == nil || (d.DefaultVolume == nil && d.MaxQueueSize == nil && d.AutoLeave == nil &&
		d.AutoLeaveTimeout == nil && d.AllowedChannels == nil && d.BlockedChannels == nil &&
		d.WelcomeMessages == nil && d.NowPlayingMessages == nil && d.DeleteCommands == nil)
}

// Resolve lays the stored values over the defaults. A nil doc resolves to
// the defaults.
func (d *ServerSettingsDoc) Resolve() ServerSettings {
	out := DefaultServerSettings()
	if d == nil {
		return out
	}
	setInt(&out.DefaultVolume, d.DefaultVolume)
	setInt(&out.MaxQueueSize, d.MaxQueueSize)
	setInt(&out.AutoLeaveTimeout, d.AutoLeaveTimeout)
	setBool(&out.AutoLeave, d.AutoLeave)
	setBool(&out.WelcomeMessages, d.WelcomeMessages)
	setBool(&out.NowPlayingMessages, d.NowPlayingMessages)
	setBool(&out.DeleteCommands, d.DeleteCommands)
	if d.AllowedChannels != nil && *d.AllowedChannels != nil {
		out.AllowedChannels = *d.AllowedChannels
	}
	if d.BlockedChannels != nil && *d.BlockedChannels != nil {
		out.BlockedChannels = *d.BlockedChannels
	}
	return out
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Song is a track as reported by the bot
type Song struct {
	Title     string `bson:"title" json:"title"`
	Artist    string `bson:"artist,omitempty" json:"artist,omitempty"`
	Duration  string `bson:"duration,omitempty" json:"duration,omitempty"`
	Thumbnail string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	URL       string `bson:"url,omitempty" json:"url,omitempty"`
}

// MusicStatus is the bot's playback snapshot for one guild (musicStatus)
type MusicStatus struct {
	ID          string    `bson:"_id" json:"-"`
	CurrentSong *Song     `bson:"currentSong" json:"currentSong"`
	Queue       []Song    `bson:"queue" json:"queue"`
	IsPlaying   bool      `bson:"isPlaying" json:"isPlaying"`
	Volume      int       `bson:"volume" json:"volume"`
	Position    int64     `bson:"position" json:"position"`
	LastUpdated Timestamp `bson:"lastUpdated" json:"lastUpdated"`
}
