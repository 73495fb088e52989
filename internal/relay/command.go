package relay

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
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/google/uuid"
)

// ErrBotNotPresent matches the 403 returned for guilds without the bot
var ErrBotNotPresent = errors.Sentinel("bot not present in guild")

// Submission is a playback command from the dashboard
type Submission struct {
	ServerID string `json:"serverId"`
	Command  string `json:"command"`
	Args     string `json:"args"`
}

// Result is what the caller receives for a submission
type Result struct {
	Status     int        `json:"-"`
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
	CommandID  string     `json:"commandId,omitempty"`
}

// CommandStatus is a re-poll of one request
type CommandStatus struct {
	Status      models.RequestStatus `json:"status"`
	Response    *string              `json:"response"`
	Error       *string              `json:"error"`
	CompletedAt *time.Time           `json:"completedAt"`
}

// CommandRelay queues playback commands for the bot
type CommandRelay struct {
	store    *database.Store
	notifier Notifier
	events   Publisher
	policy   Policy
	now      func() time.Time
	newID    func() string
}

// NewCommandRelay creates a relay under CommandPolicy. notifier and events
// may be nil.
func NewCommandRelay(store *database.Store, notifier Notifier, events Publisher) *CommandRelay {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &CommandRelay{
		store:    store,
		notifier: notifier,
		events:   events,
		policy:   CommandPolicy,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Submit queues one command and waits briefly for the bot's answer.
// Every call that passes validation writes exactly one request document.
func (r *CommandRelay) Submit(ctx context.Context, caller *session.User, sub Submission) (*Result, error) {
	sub.ServerID = strings.TrimSpace(sub.ServerID)
	sub.Command = strings.TrimSpace(sub.Command)
	if sub.ServerID == "" || sub.Command == "" {
		return nil, errors.BadRequest("Server ID and command required")
	}

	// Membership in the guild is not verified; admins skip the presence check
	if !caller.IsAdmin {
		guild, err := r.store.Guilds.Get(ctx, sub.ServerID)
		if err != nil {
			return nil, fmt.Errorf("looking up guild %s: %w", sub.ServerID, err)
		}
		if guild == nil || !guild.BotPresent {
			return nil, errors.Wrap(http.StatusForbidden, "Bot not present in this server", ErrBotNotPresent)
		}
	}

	req := &models.CommandRequest{
		ID:        r.newID(),
		ServerID:  sub.ServerID,
		UserID:    caller.ID,
		Username:  caller.DisplayName(),
		Command:   sub.Command,
		Args:      sub.Args,
		Timestamp: models.NewTimestamp(r.now()),
		Status:    models.StatusPending,
		Source:    "web",
	}
	logger.Info(fmt.Sprintf("Comando %s encolado para el servidor %s por %s (%s)", req.Command, req.ServerID, req.Username, req.ID), "Relay")

	doc, done, err := enqueue(ctx, r.notifier, r.policy, KindCommand, req.ID, r.store.CommandQueue, req,
		func(c *models.CommandRequest) models.RequestStatus { return c.Status })
	if err != nil {
		return nil, err
	}

	if !done {
		logger.Warn(fmt.Sprintf("El comando %s no respondió en %s", req.ID, r.policy.Timeout), "Relay")
		return &Result{
			Status:    http.StatusAccepted,
			Success:   true,
			Message:   "Command sent to bot (processing may take a moment)",
			CommandID: req.ID,
		}, nil
	}

	r.events.Publish(live.Event{
		Type:   live.EventCommandResult,
		UserID: caller.ID,
		Data:   commandEvent(doc),
	})

	if doc.Status == models.StatusCompleted {
		msg := doc.Response
		if msg == "" {
			msg = sub.Command + " executed successfully"
		}
		return &Result{Status: http.StatusOK, Success: true, Message: msg, ExecutedAt: doc.CompletedAt.Ptr()}, nil
	}

	msg := doc.Error
	if msg == "" {
		msg = "Command failed to execute"
	}
	logger.Warn(fmt.Sprintf("El comando %s falló: %s", req.ID, msg), "Relay")
	return &Result{Status: http.StatusBadRequest, Success: false, Message: msg}, nil
}

// Status re-reads one request. Only its author and admins may see it.
func (r *CommandRelay) Status(ctx context.Context, caller *session.User, commandID string) (*CommandStatus, error) {
	if commandID == "" {
		return nil, errors.BadRequest("Command ID required")
	}

	doc, err := r.store.CommandQueue.Get(ctx, commandID)
	if err != nil {
		return nil, fmt.Errorf("reading command %s: %w", commandID, err)
	}
	if doc == nil {
		return nil, errors.NotFound("Command not found")
	}
	if doc.UserID != caller.ID && !caller.IsAdmin {
		return nil, errors.Forbidden("Access denied")
	}

	status := doc.Status
	if status == "" {
		status = "unknown"
	}
	return &CommandStatus{
		Status:      status,
		Response:    nullable(doc.Response),
		Error:       nullable(doc.Error),
		CompletedAt: doc.CompletedAt.Ptr(),
	}, nil
}

// commandEvent shapes a finished request for live clients
func commandEvent(doc *models.CommandRequest) map[string]any {
	return map[string]any{
		"commandId": doc.ID,
		"serverId":  doc.ServerID,
		"command":   doc.Command,
		"status":    doc.Status,
		"response":  doc.Response,
		"error":     doc.Error,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
