// Package memstore is an in-memory implementation of the database contracts.
// It backs tests and local runs with mongodbUrl=memory://. Filters support
// equality and $eq, $ne, $gt, $gte, $lt, $lte, $in, $exists on dotted paths.
// Updates support ServerTimestamp, DeleteField, ArrayUnion and
// ArrayRemoveWhere.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Backend holds every collection as canonical BSON maps
type Backend struct {
	mu   sync.RWMutex
	data map[string]map[string]bson.M
	// Now is the clock used for ServerTimestamp values
	Now func() time.Time
}

// NewBackend returns an empty backend
func NewBackend() *Backend {
	return &Backend{
		data: make(map[string]map[string]bson.M),
		Now:  time.Now,
	}
}

// New returns a Store backed by a fresh in-memory backend
func New() *database.Store {
	return NewStore(NewBackend())
}

// NewStore wires the typed collections onto b
func NewStore(b *Backend) *database.Store {
	return &database.Store{
		Guilds:          Collection[models.Guild](b, database.CollGuilds),
		Users:           Collection[models.User](b, database.CollUsers),
		PremiumUsers:    Collection[models.PremiumUser](b, database.CollPremiumUsers),
		CustomCommands:  Collection[models.CustomCommand](b, database.CollCustomCommands),
		CommandQueue:    Collection[models.CommandRequest](b, database.CollCommandQueue),
		ProcessCommands: Collection[models.ProcessCommand](b, database.CollProcessCommands),
		BotStats:        Collection[models.BotStats](b, database.CollBotStats),
		BotSettings:     Collection[models.DevMode](b, database.CollBotSettings),
		ServerSettings:  Collection[models.ServerSettingsDoc](b, database.CollServerSettings),
		MusicStatus:     Collection[models.MusicStatus](b, database.CollMusicStatus),
		CommandLogs:     Collection[models.CommandLog](b, database.CollCommandLogs),
		CommandUsage:    Collection[models.CommandUsage](b, database.CollCommandUsage),
		MusicUsage:      Collection[models.MusicUsage](b, database.CollMusicUsage),
		Errors:          Collection[models.ErrorLog](b, database.CollErrors),
		UserFavorites:   Collection[models.UserFavorites](b, database.CollUserFavorites),
		Batcher:         b,
		Status:          b,
	}
}

// GetStatus implements database.StatusReporter
func (b *Backend) GetStatus() (string, bool) {
	return "🟢 | En memoria", true
}

// Transactional implements database.StatusReporter; batches are applied
// under one lock after validation.
func (b *Backend) Transactional() bool { return true }

// Len returns the number of documents in a collection
func (b *Backend) Len(collection string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data[collection])
}

// Raw returns a copy of a stored document, for assertions on exact fields
func (b *Backend) Raw(collection, id string) (bson.M, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	doc, ok := b.data[collection][id]
	if !ok {
		return nil, false
	}
	copied, _ := canonicalDoc(doc)
	return copied, true
}

func (b *Backend) table(name string) map[string]bson.M {
	t, ok := b.data[name]
	if !ok {
		t = make(map[string]bson.M)
		b.data[name] = t
	}
	return t
}

// Batch validates every op before applying any, so a failing op leaves the
// backend untouched.
func (b *Backend) Batch(ctx context.Context, ops []database.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	created := make(map[string]bool)
	apply := make([]func(), 0, len(ops))
	now := b.Now()

	for _, op := range ops {
		op := op
		key := op.Collection + "/" + op.ID
		switch {
		case op.Replace != nil:
			doc, err := toDoc(op.Replace)
			if err != nil {
				return err
			}
			doc["_id"] = op.ID
			created[key] = true
			apply = append(apply, func() { b.table(op.Collection)[op.ID] = doc })
		case len(op.Update) > 0:
			if _, ok := b.table(op.Collection)[op.ID]; !ok && !created[key] {
				return fmt.Errorf("batch update %s: %w", key, database.ErrNotFound)
			}
			fields, err := canonicalFields(op.Update)
			if err != nil {
				return err
			}
			apply = append(apply, func() { applyFields(b.table(op.Collection)[op.ID], fields, now) })
		default:
			return fmt.Errorf("batch op on %s has no write", key)
		}
	}

	for _, fn := range apply {
		fn()
	}
	return nil
}

// memCollection implements database.Collection over a Backend
type memCollection[T any] struct {
	name string
	b    *Backend
}

// Collection returns typed access to one collection of b
func Collection[T any](b *Backend, name string) database.Collection[T] {
	return &memCollection[T]{name: name, b: b}
}

func (c *memCollection[T]) Name() string { return c.name }

func (c *memCollection[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.b.mu.RLock()
	doc, ok := c.b.data[c.name][id]
	var out *T
	var err error
	if ok {
		out, err = decode[T](doc)
	}
	c.b.mu.RUnlock()
	return out, err
}

func (c *memCollection[T]) Find(ctx context.Context, q database.Query) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.b.mu.RLock()
	defer c.b.mu.RUnlock()

	filter, err := canonicalFilter(q.Filter)
	if err != nil {
		return nil, err
	}

	matched := make([]bson.M, 0)
	for _, doc := range c.b.data[c.name] {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}

	sortDocs(matched, q.Sort)
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	results := make([]*T, 0, len(matched))
	for _, doc := range matched {
		out, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

func (c *memCollection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.b.mu.RLock()
	defer c.b.mu.RUnlock()

	f, err := canonicalFilter(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range c.b.data[c.name] {
		if matches(doc, f) {
			n++
		}
	}
	return n, nil
}

func (c *memCollection[T]) Insert(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := toDoc(doc)
	if err != nil {
		return err
	}
	id, ok := m["_id"].(string)
	if !ok || id == "" {
		return fmt.Errorf("insert %s: document has no string _id", c.name)
	}

	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	t := c.b.table(c.name)
	if _, exists := t[id]; exists {
		return database.ErrDuplicate
	}
	t[id] = m
	return nil
}

func (c *memCollection[T]) Set(ctx context.Context, id string, doc any, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var fields bson.M
	var err error
	if m, ok := doc.(bson.M); ok && merge {
		fields, err = canonicalFields(m)
	} else {
		fields, err = toDoc(doc)
	}
	if err != nil {
		return err
	}

	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	t := c.b.table(c.name)
	existing, ok := t[id]
	if !merge || !ok {
		existing = bson.M{}
	}
	applyFields(existing, fields, c.b.Now())
	existing["_id"] = id
	t[id] = existing
	return nil
}

func (c *memCollection[T]) Update(ctx context.Context, id string, fields bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	canon, err := canonicalFields(fields)
	if err != nil {
		return err
	}

	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	existing, ok := c.b.data[c.name][id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", c.name, id, database.ErrNotFound)
	}
	applyFields(existing, canon, c.b.Now())
	return nil
}

func decode[T any](doc bson.M) (*T, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// toDoc converts any BSON-encodable value into a canonical map
func toDoc(v any) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func canonicalDoc(doc bson.M) (bson.M, error) {
	return toDoc(doc)
}

// canonicalValue round-trips a Go value through BSON so it compares and
// stores exactly like decoded data (time.Time becomes primitive.DateTime).
func canonicalValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if fv, ok := v.(database.FieldValue); ok {
		return canonicalFieldValue(fv)
	}
	m, err := toDoc(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

// canonicalFieldValue converts the arguments of array operators
func canonicalFieldValue(fv database.FieldValue) (any, error) {
	switch fv.Op() {
	case database.OpAddToSet:
		values := make([]any, 0, len(fv.Values()))
		for _, v := range fv.Values() {
			cv, err := canonicalValue(v)
			if err != nil {
				return nil, err
			}
			values = append(values, cv)
		}
		return database.ArrayUnion(values...), nil
	case database.OpPull:
		cond, err := canonicalFilter(fv.Cond())
		if err != nil {
			return nil, err
		}
		return database.ArrayRemoveWhere(cond), nil
	}
	return fv, nil
}

func canonicalFields(fields bson.M) (bson.M, error) {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		cv, err := canonicalValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}

// canonicalFilter converts filter arguments, keeping operator maps intact
func canonicalFilter(filter bson.M) (bson.M, error) {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		if ops, ok := operatorMap(v); ok {
			conv := make(bson.M, len(ops))
			for op, arg := range ops {
				ca, err := canonicalValue(arg)
				if err != nil {
					return nil, err
				}
				conv[op] = ca
			}
			out[k] = conv
			continue
		}
		cv, err := canonicalValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	return out, nil
}

func applyFields(doc bson.M, fields bson.M, now time.Time) {
	for key, value := range fields {
		fv, ok := value.(database.FieldValue)
		if !ok {
			setPath(doc, key, value)
			continue
		}
		switch fv.Op() {
		case database.OpCurrentDate:
			setPath(doc, key, primitive.NewDateTimeFromTime(now))
		case database.OpUnset:
			deletePath(doc, key)
		case database.OpAddToSet:
			current, _ := lookup(doc, key)
			arr := asArray(current)
			for _, v := range fv.Values() {
				if !containsValue(arr, v) {
					arr = append(arr, v)
				}
			}
			setPath(doc, key, arr)
		case database.OpPull:
			current, present := lookup(doc, key)
			if !present {
				continue
			}
			kept := primitive.A{}
			for _, elem := range asArray(current) {
				if m, isDoc := asMap(elem); isDoc && matches(m, fv.Cond()) {
					continue
				}
				kept = append(kept, elem)
			}
			setPath(doc, key, kept)
		}
	}
}

// asArray views a stored array; anything else reads as empty
func asArray(v any) primitive.A {
	switch a := v.(type) {
	case primitive.A:
		return append(primitive.A{}, a...)
	case []any:
		return append(primitive.A{}, a...)
	}
	return primitive.A{}
}

func containsValue(arr primitive.A, v any) bool {
	for _, elem := range arr {
		if reflect.DeepEqual(elem, v) {
			return true
		}
	}
	return false
}

func sortDocs(docs []bson.M, fields []database.SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range fields {
			a, aok := lookup(docs[i], f.Field)
			b, bok := lookup(docs[j], f.Field)
			c := compareForSort(a, aok, b, bok)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
