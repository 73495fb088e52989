package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyDash/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Batch applies ops inside a multi-document transaction. Standalone servers
// cannot run transactions; there the ops are applied in order, a failure
// stops the sequence and Transactional reports false from then on.
func (d *Database) Batch(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	client := d.Client()
	if client == nil {
		return ErrNotConnected
	}

	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, d.applyOps(sc, ops)
	})
	if err != nil && transactionsUnsupported(err) {
		d.markStandalone(len(ops))
		return d.applyOps(ctx, ops)
	}
	return err
}

// markStandalone records that batches are no longer atomic. The first
// fallback is logged as an error; later ones only at debug level.
func (d *Database) markStandalone(ops int) {
	if d.standalone.CompareAndSwap(false, true) {
		logger.Error("El servidor no soporta transacciones. Los lotes se aplican en orden y un fallo puede dejar cambios parciales.", "DB")
		return
	}
	logger.Debug(fmt.Sprintf("Aplicando lote de %d operaciones sin transacción", ops), "DB")
}

func (d *Database) applyOps(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		col := d.collection(op.Collection)
		if col == nil {
			return ErrNotConnected
		}

		switch {
		case op.Replace != nil:
			if _, err := col.ReplaceOne(ctx, bson.M{"_id": op.ID}, op.Replace, options.Replace().SetUpsert(true)); err != nil {
				return fmt.Errorf("batch replace %s/%s: %w", op.Collection, op.ID, err)
			}
		case len(op.Update) > 0:
			res, err := col.UpdateOne(ctx, bson.M{"_id": op.ID}, updateDocument(op.Update))
			if err != nil {
				return fmt.Errorf("batch update %s/%s: %w", op.Collection, op.ID, err)
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("batch update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
		default:
			return fmt.Errorf("batch op on %s/%s has no write", op.Collection, op.ID)
		}
	}
	return nil
}

// transactionsUnsupported detects the IllegalOperation error standalone
// servers return for transactional writes.
func transactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}
