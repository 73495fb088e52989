// Package premium manages premium subscriptions and their cascade onto the
// owner's custom commands. Every cascade is a single batch: the premium
// record and the command flags change together or not at all.
package premium

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PancyStudios/PancyDash/internal/live"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/metrics"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Deactivation reasons written on custom commands
const (
	ReasonRemoved = "Premium status removed"
	ReasonExpired = "Premium subscription expired"
)

const (
	// MonthlyPeriod is how long a monthly grant or renewal lasts
	MonthlyPeriod = 30 * 24 * time.Hour
	// Tier is the only tier the dashboard grants
	Tier = "premium"
)

// Benefits are stored on every premium record for the bot's welcome message
var Benefits = []string{
	"Priority support",
	"Premium badge",
	"Early access to features",
	"Higher command rate limits",
	"Custom playlist commands",
}

// Publisher receives premium changes for live clients
type Publisher interface {
	Publish(e live.Event)
}

// Service implements grant, revoke, renew and expiry handling
type Service struct {
	store  *database.Store
	events Publisher
	now    func() time.Time
}

// NewService creates a premium service. events may be nil.
func NewService(store *database.Store, events Publisher) *Service {
	return &Service{store: store, events: events, now: time.Now}
}

// GrantRequest is the admin form for granting premium
type GrantRequest struct {
	UserID           string                  `json:"userId"`
	Username         string                  `json:"username"`
	SubscriptionType models.SubscriptionType `json:"subscriptionType"`
}

// GrantResult is the written record and how many commands came back
type GrantResult struct {
	Record      *models.PremiumUser `json:"data"`
	Reactivated int                 `json:"commandsReactivated"`
}

// RenewResult is the new expiry and how many commands came back
type RenewResult struct {
	ExpiresAt   time.Time `json:"newExpirationDate"`
	Reactivated int       `json:"commandsReactivated"`
}

// ExpiredUser is a subscription deactivated by SweepExpired
type ExpiredUser struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Deactivated int       `json:"commandsDeactivated"`
}

// ExpiringUser is a subscription due for a renewal reminder
type ExpiringUser struct {
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DaysRemaining int       `json:"daysRemaining"`
	WarningType   string    `json:"warningType"`
}

type reminderPeriod struct {
	days int
	key  string
}

var reminderPeriods = []reminderPeriod{
	{days: 7, key: "sevenDays"},
	{days: 3, key: "threeDays"},
	{days: 1, key: "oneDay"},
}

func (s *Service) publish(userID, action string) {
	if s.events == nil {
		return
	}
	s.events.Publish(live.Event{
		Type:   live.EventPremium,
		UserID: userID,
		Data:   map[string]string{"userId": userID, "action": action},
	})
}

// commandsOf lists an owner's commands matching extra, skipping deleted ones
func (s *Service) commandsOf(ctx context.Context, userID string, extra bson.M) ([]*models.CustomCommand, error) {
	filter := bson.M{"userId": userID, "deletedAt": nil}
	for k, v := range extra {
		filter[k] = v
	}
	cmds, err := s.store.CustomCommands.Find(ctx, database.Query{Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("listing custom commands of %s: %w", userID, err)
	}
	return cmds, nil
}

func reactivateOps(cmds []*models.CustomCommand) []database.Op {
	ops := make([]database.Op, 0, len(cmds))
	for _, c := range cmds {
		ops = append(ops, database.Op{
			Collection: database.CollCustomCommands,
			ID:         c.ID,
			Update: bson.M{
				"isActive":           true,
				"reactivatedAt":      database.ServerTimestamp,
				"deactivationReason": database.DeleteField,
			},
		})
	}
	return ops
}

func deactivateOps(cmds []*models.CustomCommand, reason string) []database.Op {
	ops := make([]database.Op, 0, len(cmds))
	for _, c := range cmds {
		ops = append(ops, database.Op{
			Collection: database.CollCustomCommands,
			ID:         c.ID,
			Update: bson.M{
				"isActive":           false,
				"deactivatedAt":      database.ServerTimestamp,
				"deactivationReason": reason,
			},
		})
	}
	return ops
}

// Grant writes a fresh premium record for the user and reactivates the
// commands a previous revoke switched off. Commands switched off for any
// other reason stay as they are.
func (s *Service) Grant(ctx context.Context, actor *session.User, req GrantRequest) (*GrantResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, errors.BadRequest("User ID is required")
	}
	if req.SubscriptionType == "" {
		req.SubscriptionType = models.SubscriptionPermanent
	}
	if !req.SubscriptionType.Valid() {
		return nil, errors.BadRequest("Invalid subscription type")
	}
	if req.Username == "" {
		// The bot resolves the real name when it sends the welcome message
		req.Username = "User"
	}

	now := s.now()
	record := &models.PremiumUser{
		ID:                  req.UserID,
		UserID:              req.UserID,
		Username:            req.Username,
		AddedBy:             actor.ID,
		AddedByUsername:     actor.DisplayName(),
		AddedAt:             models.NewTimestamp(now),
		IsActive:            true,
		SubscriptionType:    req.SubscriptionType,
		Tier:                Tier,
		Benefits:            append([]string(nil), Benefits...),
		WarningsSent:        []models.ReminderWarning{},
		NeedsWelcomeMessage: true,
	}
	if req.SubscriptionType == models.SubscriptionMonthly {
		record.ExpiresAt = models.NewTimestamp(now.Add(MonthlyPeriod))
	}

	cmds, err := s.commandsOf(ctx, req.UserID, bson.M{"deactivationReason": ReasonRemoved})
	if err != nil {
		return nil, err
	}

	ops := []database.Op{{Collection: database.CollPremiumUsers, ID: req.UserID, Replace: record}}
	ops = append(ops, reactivateOps(cmds)...)
	if err := s.store.Batch(ctx, ops); err != nil {
		return nil, fmt.Errorf("granting premium to %s: %w", req.UserID, err)
	}

	metrics.PremiumCascade.WithLabelValues("grant").Add(float64(len(cmds)))
	if len(cmds) > 0 {
		logger.Info(fmt.Sprintf("🔓 Reactivados %d comandos personalizados de %s", len(cmds), req.UserID), "Premium")
	}
	logger.Success(fmt.Sprintf("Premium %s otorgado a %s (%s) por %s", req.SubscriptionType, req.Username, req.UserID, actor.DisplayName()), "Premium")
	s.publish(req.UserID, "granted")

	return &GrantResult{Record: record, Reactivated: len(cmds)}, nil
}

// Revoke deactivates the premium record and every active command of the
// owner in one batch.
func (s *Service) Revoke(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, errors.BadRequest("User ID is required")
	}

	record, err := s.store.PremiumUsers.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("reading premium user %s: %w", userID, err)
	}
	if record == nil {
		return 0, errors.NotFound("Premium user not found")
	}

	cmds, err := s.commandsOf(ctx, userID, bson.M{"isActive": true})
	if err != nil {
		return 0, err
	}

	ops := []database.Op{{
		Collection: database.CollPremiumUsers,
		ID:         userID,
		Update:     bson.M{"isActive": false, "removedAt": database.ServerTimestamp},
	}}
	ops = append(ops, deactivateOps(cmds, ReasonRemoved)...)
	if err := s.store.Batch(ctx, ops); err != nil {
		return 0, fmt.Errorf("revoking premium of %s: %w", userID, err)
	}

	metrics.PremiumCascade.WithLabelValues("revoke").Add(float64(len(cmds)))
	logger.Info(fmt.Sprintf("🔒 Premium retirado a %s, %d comandos desactivados", userID, len(cmds)), "Premium")
	s.publish(userID, "revoked")

	return len(cmds), nil
}

// Renew extends the subscription a full period from now, clears the
// expired status and reminder flags and reactivates commands switched off
// by either a revoke or an expiry.
func (s *Service) Renew(ctx context.Context, actor *session.User, userID string) (*RenewResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.BadRequest("User ID is required")
	}

	record, err := s.store.PremiumUsers.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading premium user %s: %w", userID, err)
	}
	if record == nil {
		return nil, errors.New(http.StatusNotFound, "User not found in premium users")
	}

	expires := s.now().Add(MonthlyPeriod)
	cmds, err := s.commandsOf(ctx, userID, bson.M{
		"deactivationReason": bson.M{"$in": []string{ReasonRemoved, ReasonExpired}},
	})
	if err != nil {
		return nil, err
	}

	ops := []database.Op{{
		Collection: database.CollPremiumUsers,
		ID:         userID,
		Update: bson.M{
			"isActive":          true,
			"expiresAt":         models.NewTimestamp(expires),
			"renewedAt":         database.ServerTimestamp,
			"renewedBy":         actor.ID,
			"renewedByUsername": actor.DisplayName(),
			"status":            database.DeleteField,
			"renewalReminders":  models.RenewalReminders{},
		},
	}}
	ops = append(ops, reactivateOps(cmds)...)
	if err := s.store.Batch(ctx, ops); err != nil {
		return nil, fmt.Errorf("renewing premium of %s: %w", userID, err)
	}

	metrics.PremiumCascade.WithLabelValues("renew").Add(float64(len(cmds)))
	logger.Success(fmt.Sprintf("Suscripción de %s renovada hasta %s (%d comandos reactivados)", userID, expires.UTC().Format(time.RFC3339), len(cmds)), "Premium")
	s.publish(userID, "renewed")

	return &RenewResult{ExpiresAt: models.NewTimestamp(expires).Time, Reactivated: len(cmds)}, nil
}

// ListActive returns active premium users, newest grant first
func (s *Service) ListActive(ctx context.Context) ([]*models.PremiumUser, error) {
	users, err := s.store.PremiumUsers.Find(ctx, database.Query{
		Filter: bson.M{"isActive": true},
		Sort:   []database.SortField{database.Desc("addedAt")},
	})
	if err != nil {
		return nil, fmt.Errorf("listing premium users: %w", err)
	}
	return users, nil
}

// IsPremium reports whether the user holds an active subscription
func (s *Service) IsPremium(ctx context.Context, userID string) (bool, error) {
	record, err := s.store.PremiumUsers.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("reading premium user %s: %w", userID, err)
	}
	return record != nil && record.IsActive, nil
}

// SweepExpired deactivates monthly subscriptions past their expiry and
// their owners' active commands, all in one batch.
func (s *Service) SweepExpired(ctx context.Context) ([]ExpiredUser, error) {
	now := s.now()
	records, err := s.store.PremiumUsers.Find(ctx, database.Query{Filter: bson.M{
		"subscriptionType": models.SubscriptionMonthly,
		"isActive":         true,
		"expiresAt":        bson.M{"$lte": now},
	}})
	if err != nil {
		return nil, fmt.Errorf("listing expired subscriptions: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var (
		ops     []database.Op
		expired = make([]ExpiredUser, 0, len(records))
		total   int
	)
	for _, r := range records {
		cmds, err := s.commandsOf(ctx, r.ID, bson.M{"isActive": true})
		if err != nil {
			return nil, err
		}
		ops = append(ops, database.Op{
			Collection: database.CollPremiumUsers,
			ID:         r.ID,
			Update: bson.M{
				"isActive":  false,
				"expiredAt": database.ServerTimestamp,
				"status":    "expired",
			},
		})
		ops = append(ops, deactivateOps(cmds, ReasonExpired)...)
		expired = append(expired, ExpiredUser{UserID: r.ID, Username: r.Username, ExpiresAt: r.ExpiresAt.Time, Deactivated: len(cmds)})
		total += len(cmds)
	}

	if err := s.store.Batch(ctx, ops); err != nil {
		return nil, fmt.Errorf("expiring subscriptions: %w", err)
	}

	metrics.PremiumCascade.WithLabelValues("expire").Add(float64(total))
	logger.Info(fmt.Sprintf("✅ %d suscripciones premium expiradas desactivadas", len(expired)), "Premium")
	for _, e := range expired {
		s.publish(e.UserID, "expired")
	}
	return expired, nil
}

// ExpiringSoon lists monthly subscriptions that expire on the UTC day 7, 3
// or 1 days from now and have not been reminded for that period yet.
func (s *Service) ExpiringSoon(ctx context.Context) ([]ExpiringUser, error) {
	now := s.now().UTC()
	out := []ExpiringUser{}

	for _, p := range reminderPeriods {
		target := now.AddDate(0, 0, p.days)
		start := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
		end := start.Add(24*time.Hour - time.Millisecond)

		records, err := s.store.PremiumUsers.Find(ctx, database.Query{Filter: bson.M{
			"subscriptionType":          models.SubscriptionMonthly,
			"isActive":                  true,
			"expiresAt":                 bson.M{"$gte": start, "$lte": end},
			"renewalReminders." + p.key: false,
		}})
		if err != nil {
			return nil, fmt.Errorf("listing subscriptions expiring in %d days: %w", p.days, err)
		}
		for _, r := range records {
			out = append(out, ExpiringUser{
				UserID:        r.ID,
				Username:      r.Username,
				ExpiresAt:     r.ExpiresAt.Time,
				DaysRemaining: p.days,
				WarningType:   p.key,
			})
		}
	}
	return out, nil
}

// MarkReminderSent records that the reminder for period has been delivered
func (s *Service) MarkReminderSent(ctx context.Context, userID, period string) error {
	valid := false
	for _, p := range reminderPeriods {
		if p.key == period {
			valid = true
			break
		}
	}
	if !valid {
		return errors.BadRequest("Invalid warning type")
	}

	record, err := s.store.PremiumUsers.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("reading premium user %s: %w", userID, err)
	}
	if record == nil {
		return errors.NotFound("Premium user not found")
	}

	warnings := append(record.WarningsSent, models.ReminderWarning{Period: period, SentAt: models.NewTimestamp(s.now())})
	err = s.store.PremiumUsers.Update(ctx, userID, bson.M{
		"renewalReminders." + period: true,
		"warningsSent":               warnings,
	})
	if err != nil {
		return fmt.Errorf("marking %s reminder for %s: %w", period, userID, err)
	}
	logger.Debug(fmt.Sprintf("Aviso %s marcado como enviado para %s", period, userID), "Premium")
	return nil
}
