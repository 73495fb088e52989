package models

// SubscriptionType is how long a premium grant lasts
type SubscriptionType string

const (
	SubscriptionPermanent SubscriptionType = "permanent"
	SubscriptionMonthly   SubscriptionType = "monthly"
)

// Valid reports whether s is a known subscription type
func (s SubscriptionType) Valid() bool {
	return s == SubscriptionPermanent || s == SubscriptionMonthly
}

// RenewalReminders tracks which expiry reminders have been sent
type RenewalReminders struct {
	SevenDays bool `bson:"sevenDays" json:"sevenDays"`
	ThreeDays bool `bson:"threeDays" json:"threeDays"`
	OneDay    bool `bson:"oneDay" json:"oneDay"`
}

// ReminderWarning is one entry of a premium user's reminder history
type ReminderWarning struct {
	Period string    `bson:"period" json:"period"`
	SentAt Timestamp `bson:"sentAt" json:"sentAt"`
}

// PremiumUser is a premium subscription keyed by Discord user ID
type PremiumUser struct {
	ID                  string            `bson:"_id" json:"id"`
	UserID              string            `bson:"userId" json:"userId"`
	Username            string            `bson:"username" json:"username"`
	AddedBy             string            `bson:"addedBy" json:"addedBy"`
	AddedByUsername     string            `bson:"addedByUsername" json:"addedByUsername"`
	AddedAt             Timestamp         `bson:"addedAt,omitempty" json:"addedAt"`
	IsActive            bool              `bson:"isActive" json:"isActive"`
	SubscriptionType    SubscriptionType  `bson:"subscriptionType" json:"subscriptionType"`
	ExpiresAt           Timestamp         `bson:"expiresAt" json:"expiresAt"`
	Tier                string            `bson:"tier" json:"tier"`
	Benefits            []string          `bson:"benefits" json:"benefits"`
	WarningsSent        []ReminderWarning `bson:"warningsSent" json:"warningsSent"`
	RenewalReminders    RenewalReminders  `bson:"renewalReminders" json:"renewalReminders"`
	NeedsWelcomeMessage bool              `bson:"needsWelcomeMessage" json:"needsWelcomeMessage"`
	WelcomeMessageSent  bool              `bson:"welcomeMessageSent" json:"welcomeMessageSent"`
	Status              string            `bson:"status,omitempty" json:"status,omitempty"`
	RemovedAt           Timestamp         `bson:"removedAt,omitempty" json:"removedAt,omitempty"`
	ExpiredAt           Timestamp         `bson:"expiredAt,omitempty" json:"expiredAt,omitempty"`
	RenewedAt           Timestamp         `bson:"renewedAt,omitempty" json:"renewedAt,omitempty"`
	RenewedBy           string            `bson:"renewedBy,omitempty" json:"renewedBy,omitempty"`
	RenewedByUsername   string            `bson:"renewedByUsername,omitempty" json:"renewedByUsername,omitempty"`
}

// CustomCommand is a user-defined shortcut that plays a fixed playlist
type CustomCommand struct {
	ID                 string    `bson:"_id" json:"id"`
	UserID             string    `bson:"userId" json:"userId"`
	CommandName        string    `bson:"commandName" json:"commandName"`
	DisplayName        string    `bson:"displayName" json:"displayName"`
	Playlist           []string  `bson:"playlist" json:"playlist"`
	Description        string    `bson:"description" json:"description"`
	CreatedAt          Timestamp `bson:"createdAt,omitempty" json:"createdAt"`
	IsActive           bool      `bson:"isActive" json:"isActive"`
	UsageCount         int64     `bson:"usageCount" json:"usageCount"`
	LastUsed           Timestamp `bson:"lastUsed" json:"lastUsed"`
	LastUpdated        Timestamp `bson:"lastUpdated,omitempty" json:"lastUpdated,omitempty"`
	DeactivatedAt      Timestamp `bson:"deactivatedAt,omitempty" json:"deactivatedAt,omitempty"`
	DeactivationReason string    `bson:"deactivationReason,omitempty" json:"deactivationReason,omitempty"`
	ReactivatedAt      Timestamp `bson:"reactivatedAt,omitempty" json:"reactivatedAt,omitempty"`
	DeletedAt          Timestamp `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}
