package models

// RequestStatus is the lifecycle state of a queued request.
// Only the bot moves a request out of StatusPending.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
	StatusFailed    RequestStatus = "failed"
)

// Terminal reports whether the bot has finished with the request
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CommandRequest is a playback command queued for the bot (commandQueue)
type CommandRequest struct {
	ID          string        `bson:"_id" json:"id"`
	ServerID    string        `bson:"serverId" json:"serverId"`
	UserID      string        `bson:"userId" json:"userId"`
	Username    string        `bson:"username" json:"username"`
	Command     string        `bson:"command" json:"command"`
	Args        string        `bson:"args" json:"args"`
	Timestamp   Timestamp     `bson:"timestamp" json:"timestamp"`
	Status      RequestStatus `bson:"status" json:"status"`
	Source      string        `bson:"source" json:"source"`
	Response    string        `bson:"response,omitempty" json:"response,omitempty"`
	Error       string        `bson:"error,omitempty" json:"error,omitempty"`
	CompletedAt Timestamp     `bson:"completedAt,omitempty" json:"completedAt"`
	ExecutedAt  Timestamp     `bson:"executedAt,omitempty" json:"executedAt,omitempty"`
}

// ProcessResult is what the bot host reports for a process-control action
type ProcessResult struct {
	Message string `bson:"message" json:"message"`
	Output  string `bson:"output,omitempty" json:"output,omitempty"`
	Stderr  string `bson:"stderr,omitempty" json:"stderr,omitempty"`
}

// ProcessCommand is a process-manager action queued for the bot host (pm2Commands)
type ProcessCommand struct {
	ID              string         `bson:"_id" json:"id"`
	Action          string         `bson:"action" json:"action"`
	Status          RequestStatus  `bson:"status" json:"status"`
	RequestedBy     string         `bson:"requestedBy" json:"requestedBy"`
	RequestedByName string         `bson:"requestedByName" json:"requestedByName"`
	Timestamp       Timestamp      `bson:"timestamp" json:"timestamp"`
	CreatedAt       Timestamp      `bson:"createdAt" json:"createdAt"`
	Result          *ProcessResult `bson:"result,omitempty" json:"result,omitempty"`
	Error           string         `bson:"error,omitempty" json:"error,omitempty"`
	Stderr          string         `bson:"stderr,omitempty" json:"stderr,omitempty"`
	CompletedAt     Timestamp      `bson:"completedAt,omitempty" json:"completedAt"`
}
