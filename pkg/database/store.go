package database

import (
	"context"
	"errors"
	"strings"

	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Collection names shared with the bot process
const (
	CollGuilds          = "guilds"
	CollUsers           = "users"
	CollPremiumUsers    = "premiumUsers"
	CollCustomCommands  = "customCommands"
	CollCommandQueue    = "commandQueue"
	CollProcessCommands = "pm2Commands"
	CollBotStats        = "botStats"
	CollBotSettings     = "botSettings"
	CollServerSettings  = "serverSettings"
	CollMusicStatus     = "musicStatus"
	CollCommandLogs     = "commandLogs"
	CollCommandUsage    = "commandUsage"
	CollMusicUsage      = "musicUsage"
	CollErrors          = "errors"
	CollUserFavorites   = "userFavorites"
)

var (
	// ErrNotFound is returned by Update and batches when the target document is missing
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned by Insert when the key already exists
	ErrDuplicate = errors.New("document already exists")
)

// Field operators carried by a FieldValue
const (
	OpCurrentDate = "$currentDate"
	OpUnset       = "$unset"
	OpAddToSet    = "$addToSet"
	OpPull        = "$pull"
)

// FieldValue is a special value understood by Set(merge), Update and Batch.
// Compare values by Op; array operators carry an argument.
type FieldValue struct {
	op  string
	arg any
}

var (
	// ServerTimestamp stores the store's current time in the field
	ServerTimestamp = FieldValue{op: OpCurrentDate}
	// DeleteField removes the field from the document
	DeleteField = FieldValue{op: OpUnset}
)

// ArrayUnion appends each value to an array field unless an equal element
// is already there. A missing field starts as an empty array.
func ArrayUnion(values ...any) FieldValue {
	return FieldValue{op: OpAddToSet, arg: values}
}

// ArrayRemoveWhere removes the array elements matching cond
func ArrayRemoveWhere(cond bson.M) FieldValue {
	return FieldValue{op: OpPull, arg: cond}
}

// Op names the update operator
func (f FieldValue) Op() string { return f.op }

// Values returns the elements of an ArrayUnion
func (f FieldValue) Values() []any {
	values, _ := f.arg.([]any)
	return values
}

// Cond returns the condition of an ArrayRemoveWhere
func (f FieldValue) Cond() bson.M {
	cond, _ := f.arg.(bson.M)
	return cond
}

// operand is the value placed under the operator in an update document
func (f FieldValue) operand() any {
	switch f.op {
	case OpUnset:
		return ""
	case OpCurrentDate:
		return true
	case OpAddToSet:
		return bson.M{"$each": f.Values()}
	}
	return f.arg
}

// SortField orders query results by one field
type SortField struct {
	Field string
	Desc  bool
}

// Asc and Desc build sort fields
func Asc(field string) SortField  { return SortField{Field: field} }
func Desc(field string) SortField { return SortField{Field: field, Desc: true} }

// Query is a filtered, ordered, limited read. Filters use MongoDB syntax;
// dotted keys address nested fields.
type Query struct {
	Filter bson.M
	Sort   []SortField
	Limit  int64
}

// Collection is typed access to one top-level collection
type Collection[T any] interface {
	Name() string
	// Get returns nil, nil when the document does not exist
	Get(ctx context.Context, id string) (*T, error)
	Find(ctx context.Context, q Query) ([]*T, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	// Insert creates the document keyed by its _id field
	Insert(ctx context.Context, doc *T) error
	// Set upserts. With merge only the given fields change; doc may be a
	// bson.M (FieldValue allowed) or a struct. Without merge doc replaces
	// the stored document.
	Set(ctx context.Context, id string, doc any, merge bool) error
	// Update changes fields of an existing document
	Update(ctx context.Context, id string, fields bson.M) error
}

// Op is one write of a batch. Exactly one of Replace and Update is set.
type Op struct {
	Collection string
	ID         string
	Replace    any
	Update     bson.M
}

// Batcher applies a set of writes atomically: either all land or none do
type Batcher interface {
	Batch(ctx context.Context, ops []Op) error
}

// StatusReporter describes the backing store for health endpoints
type StatusReporter interface {
	GetStatus() (string, bool)
	// Transactional is false once a batch had to be applied without a
	// transaction, so cascades are no longer all-or-nothing.
	Transactional() bool
}

// Store bundles the typed collections the dashboard uses
type Store struct {
	Guilds          Collection[models.Guild]
	Users           Collection[models.User]
	PremiumUsers    Collection[models.PremiumUser]
	CustomCommands  Collection[models.CustomCommand]
	CommandQueue    Collection[models.CommandRequest]
	ProcessCommands Collection[models.ProcessCommand]
	BotStats        Collection[models.BotStats]
	BotSettings     Collection[models.DevMode]
	ServerSettings  Collection[models.ServerSettingsDoc]
	MusicStatus     Collection[models.MusicStatus]
	CommandLogs     Collection[models.CommandLog]
	CommandUsage    Collection[models.CommandUsage]
	MusicUsage      Collection[models.MusicUsage]
	Errors          Collection[models.ErrorLog]
	UserFavorites   Collection[models.UserFavorites]

	Batcher
	Status StatusReporter
}

// NewStore builds the MongoDB-backed store
func NewStore(db *Database) *Store {
	return &Store{
		Guilds:          NewCollection[models.Guild](db, CollGuilds),
		Users:           NewCollection[models.User](db, CollUsers),
		PremiumUsers:    NewCollection[models.PremiumUser](db, CollPremiumUsers),
		CustomCommands:  NewCollection[models.CustomCommand](db, CollCustomCommands),
		CommandQueue:    NewCollection[models.CommandRequest](db, CollCommandQueue),
		ProcessCommands: NewCollection[models.ProcessCommand](db, CollProcessCommands),
		BotStats:        NewCollection[models.BotStats](db, CollBotStats),
		BotSettings:     NewCollection[models.DevMode](db, CollBotSettings),
		ServerSettings:  NewCollection[models.ServerSettingsDoc](db, CollServerSettings),
		MusicStatus:     NewCollection[models.MusicStatus](db, CollMusicStatus),
		CommandLogs:     NewCollection[models.CommandLog](db, CollCommandLogs),
		CommandUsage:    NewCollection[models.CommandUsage](db, CollCommandUsage),
		MusicUsage:      NewCollection[models.MusicUsage](db, CollMusicUsage),
		Errors:          NewCollection[models.ErrorLog](db, CollErrors),
		UserFavorites:   NewCollection[models.UserFavorites](db, CollUserFavorites),
		Batcher:         db,
		Status:          db,
	}
}

// updateDocument builds a MongoDB update document from a field map. Plain
// values go to $set; each FieldValue goes under its own operator.
func updateDocument(fields bson.M) bson.M {
	update := bson.M{}
	put := func(op, key string, value any) {
		part, ok := update[op].(bson.M)
		if !ok {
			part = bson.M{}
			update[op] = part
		}
		part[key] = value
	}
	for key, value := range fields {
		if fv, ok := value.(FieldValue); ok {
			put(fv.op, key, fv.operand())
			continue
		}
		put("$set", key, value)
	}
	return update
}

// sortDocument converts sort fields into a MongoDB sort document
func sortDocument(fields []SortField) bson.D {
	out := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: f.Field, Value: dir})
	}
	return out
}

// IsOperator reports whether a filter key is a query operator
func IsOperator(key string) bool {
	return strings.HasPrefix(key, "$")
}
