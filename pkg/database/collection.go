package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoCollection implements Collection on a MongoDB collection
type mongoCollection[T any] struct {
	name string
	db   *Database
}

// NewCollection returns typed access to a collection. The handle is resolved
// per call, so collections can be built before Connect.
func NewCollection[T any](db *Database, name string) Collection[T] {
	return &mongoCollection[T]{name: name, db: db}
}

func (c *mongoCollection[T]) Name() string { return c.name }

func (c *mongoCollection[T]) handle() (*mongo.Collection, error) {
	col := c.db.collection(c.name)
	if col == nil {
		return nil, ErrNotConnected
	}
	return col, nil
}

func (c *mongoCollection[T]) Get(ctx context.Context, id string) (*T, error) {
	col, err := c.handle()
	if err != nil {
		return nil, err
	}

	var result T
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.name, id, err)
	}
	return &result, nil
}

func (c *mongoCollection[T]) Find(ctx context.Context, q Query) ([]*T, error) {
	col, err := c.handle()
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(sortDocument(q.Sort))
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	filter := q.Filter
	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := make([]*T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		results = append(results, &doc)
	}
	return results, cursor.Err()
}

func (c *mongoCollection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	col, err := c.handle()
	if err != nil {
		return 0, err
	}
	if filter == nil {
		filter = bson.M{}
	}
	n, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func (c *mongoCollection[T]) Insert(ctx context.Context, doc *T) error {
	col, err := c.handle()
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert %s: %w", c.name, err)
	}
	return nil
}

func (c *mongoCollection[T]) Set(ctx context.Context, id string, doc any, merge bool) error {
	col, err := c.handle()
	if err != nil {
		return err
	}

	if !merge {
		_, err = col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	} else if fields, ok := doc.(bson.M); ok {
		_, err = col.UpdateOne(ctx, bson.M{"_id": id}, updateDocument(fields), options.Update().SetUpsert(true))
	} else {
		_, err = col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *mongoCollection[T]) Update(ctx context.Context, id string, fields bson.M) error {
	col, err := c.handle()
	if err != nil {
		return err
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, updateDocument(fields))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", c.name, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s/%s: %w", c.name, id, ErrNotFound)
	}
	return nil
}
