package models

// Guild is a Discord server the bot has been in.
// Leaving flips BotPresent to false; documents are never deleted.
type Guild struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Icon         string    `bson:"icon,omitempty" json:"icon,omitempty"`
	MemberCount  int       `bson:"memberCount" json:"memberCount"`
	OwnerID      string    `bson:"ownerId" json:"ownerId"`
	OwnerName    string    `bson:"ownerName,omitempty" json:"ownerName,omitempty"`
	BotPresent   bool      `bson:"botPresent" json:"botPresent"`
	CommandsUsed int64     `bson:"commandsUsed" json:"commandsUsed"`
	SongsPlayed  int64     `bson:"songsPlayed" json:"songsPlayed"`
	JoinedAt     Timestamp `bson:"joinedAt,omitempty" json:"joinedAt"`
	BotJoinedAt  Timestamp `bson:"botJoinedAt,omitempty" json:"botJoinedAt"`
	LeftAt       Timestamp `bson:"leftAt,omitempty" json:"leftAt"`
	LastActive   Timestamp `bson:"lastActive,omitempty" json:"lastActive"`
	LastUpdated  Timestamp `bson:"lastUpdated,omitempty" json:"lastUpdated"`
}

// User is the profile snapshot upserted on every login
type User struct {
	ID        string    `bson:"_id" json:"id"`
	Username  string    `bson:"username" json:"username"`
	Avatar    string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Email     string    `bson:"email,omitempty" json:"email,omitempty"`
	LastLogin Timestamp `bson:"lastLogin,omitempty" json:"lastLogin"`
}
