package relay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PancyStudios/PancyDash/internal/live"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/google/uuid"
)

// ProcessActions are the process-manager actions the bot host accepts
var ProcessActions = []string{"restart", "stop", "start", "status", "logs"}

// ProcessOutcome is what the caller receives for a process-control action
type ProcessOutcome struct {
	Status  int    `json:"-"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Output  string `json:"output,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ProcessControl queues process-manager actions for the bot host
type ProcessControl struct {
	store    *database.Store
	notifier Notifier
	events   Publisher
	policy   Policy
	now      func() time.Time
	newID    func() string
}

// NewProcessControl creates a controller under ProcessPolicy. notifier and
// events may be nil.
func NewProcessControl(store *database.Store, notifier Notifier, events Publisher) *ProcessControl {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &ProcessControl{
		store:    store,
		notifier: notifier,
		events:   events,
		policy:   ProcessPolicy,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func validAction(action string) bool {
	for _, a := range ProcessActions {
		if a == action {
			return true
		}
	}
	return false
}

// Execute queues one action and waits for the host to run it. A silent host
// is a hard failure (408), unlike playback commands.
func (p *ProcessControl) Execute(ctx context.Context, caller *session.User, action string) (*ProcessOutcome, error) {
	if !caller.IsAdmin {
		return nil, errors.Forbidden("Admin access required")
	}
	if !validAction(action) {
		return nil, errors.BadRequest("Invalid action")
	}

	name := caller.Name
	if name == "" {
		name = "User-" + caller.ID
	}
	now := models.NewTimestamp(p.now())
	cmd := &models.ProcessCommand{
		ID:              p.newID(),
		Action:          action,
		Status:          models.StatusPending,
		RequestedBy:     caller.ID,
		RequestedByName: name,
		Timestamp:       now,
		CreatedAt:       now,
	}
	logger.Info(fmt.Sprintf("Admin %s encoló la acción de proceso %s (%s)", name, action, cmd.ID), "Process")

	doc, done, err := enqueue(ctx, p.notifier, p.policy, KindProcess, cmd.ID, p.store.ProcessCommands, cmd,
		func(c *models.ProcessCommand) models.RequestStatus { return c.Status })
	if err != nil {
		return nil, err
	}

	if !done {
		logger.Warn(fmt.Sprintf("La acción %s expiró tras %s", action, p.policy.Timeout), "Process")
		return &ProcessOutcome{
			Status:  http.StatusRequestTimeout,
			Success: false,
			Error:   "Command execution timed out. The bot server might be unresponsive.",
		}, nil
	}

	p.events.Publish(live.Event{
		Type:      live.EventProcessResult,
		AdminOnly: true,
		Data:      map[string]any{"id": doc.ID, "action": doc.Action, "status": doc.Status},
	})

	if doc.Status == models.StatusCompleted {
		out := &ProcessOutcome{Status: http.StatusOK, Success: true}
		if doc.Result != nil {
			out.Message = doc.Result.Message
			out.Output = doc.Result.Output
			out.Stderr = doc.Result.Stderr
		}
		logger.Success(fmt.Sprintf("Acción de proceso %s completada", action), "Process")
		return out, nil
	}

	logger.Error(fmt.Sprintf("La acción de proceso %s falló: %s", action, doc.Error), "Process")
	return &ProcessOutcome{
		Status:  http.StatusInternalServerError,
		Success: false,
		Error:   doc.Error,
		Stderr:  doc.Stderr,
	}, nil
}
