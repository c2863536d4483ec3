package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository"
)

var _ repository.RecordRepository = (*RecordDB)(nil)

// RecordDB stores records of every registered collection. Each statement
// carries owner_id in its WHERE clause or column list.
type RecordDB struct {
	db *DB
}

func (r *RecordDB) queries(kind collection.Kind) (recordQueries, error) {
	q, ok := r.db.queries[kind]
	if !ok {
		return recordQueries{}, apperror.NotFound("collection", kind.String())
	}
	return q, nil
}

// Insert stores rec under owner. A missing id is generated. The write, the
// parent check and the optional points award share one transaction.
func (r *RecordDB) Insert(ctx context.Context, owner string, kind collection.Kind, rec model.Record, award int64) error {
	q, err := r.queries(kind)
	if err != nil {
		return err
	}
	if rec.RecordID() == "" {
		rec.SetRecordID(xid.New().String())
	}
	rec.SetOwner(owner)

	values, err := encodeValues(kind.Schema().Fields, rec.Values())
	if err != nil {
		return err
	}

	err = r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, q.exists, owner, rec.RecordID()); err != nil {
			return fmt.Errorf("sqlstore: checking %s %s: %w", kind, rec.RecordID(), err)
		}
		if n > 0 {
			return apperror.Conflict(kind.String(), rec.RecordID())
		}
		if err := checkParents(ctx, tx, q, owner, rec); err != nil {
			return err
		}

		args := append([]any{owner, rec.RecordID()}, values...)
		if _, err := tx.ExecContext(ctx, q.insert, args...); err != nil {
			if isUniqueViolation(err) {
				return uniqueConflict(kind, rec)
			}
			return fmt.Errorf("sqlstore: inserting %s: %w", kind, err)
		}

		return awardPoints(ctx, tx, owner, award)
	})
	return err
}

// Replace overwrites every field of an existing record. Zero affected rows
// means the (owner, id) pair does not exist. With a non-nil award the
// previous row is read and locked inside the transaction, so two
// concurrent replaces cannot both earn points for the same change.
func (r *RecordDB) Replace(ctx context.Context, owner string, kind collection.Kind, rec model.Record, award repository.AwardFunc) error {
	q, err := r.queries(kind)
	if err != nil {
		return err
	}
	rec.SetOwner(owner)

	values, err := encodeValues(kind.Schema().Fields, rec.Values())
	if err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkParents(ctx, tx, q, owner, rec); err != nil {
			return err
		}

		var points int64
		if award != nil {
			prev, err := scanRecord(tx.QueryRowContext(ctx, q.getLock, owner, rec.RecordID()), kind, owner)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return apperror.NotFound(kind.String(), rec.RecordID())
				}
				return fmt.Errorf("sqlstore: reading %s %s: %w", kind, rec.RecordID(), err)
			}
			points = award(prev)
		}

		args := append(values, owner, rec.RecordID())
		result, err := tx.ExecContext(ctx, q.replace, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return uniqueConflict(kind, rec)
			}
			return fmt.Errorf("sqlstore: replacing %s %s: %w", kind, rec.RecordID(), err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: checking rows affected: %w", err)
		}
		if rows == 0 {
			return apperror.NotFound(kind.String(), rec.RecordID())
		}
		return awardPoints(ctx, tx, owner, points)
	})
}

func awardPoints(ctx context.Context, tx *sqlx.Tx, owner string, points int64) error {
	if points <= 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE users SET points = points + ?, updated_at = ? WHERE id = ?`),
		points, time.Now(), owner,
	); err != nil {
		return fmt.Errorf("sqlstore: awarding points to %s: %w", owner, err)
	}
	return nil
}

// Delete removes the record and its cascaded children. A missing record is
// not an error.
func (r *RecordDB) Delete(ctx context.Context, owner string, kind collection.Kind, id string) error {
	q, err := r.queries(kind)
	if err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range q.cascades {
			if _, err := tx.ExecContext(ctx, c.delete, owner, id); err != nil {
				return fmt.Errorf("sqlstore: deleting %s of %s %s: %w", c.child, kind, id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, q.delete, owner, id); err != nil {
			return fmt.Errorf("sqlstore: deleting %s %s: %w", kind, id, err)
		}
		return nil
	})
}

func (r *RecordDB) Get(ctx context.Context, owner string, kind collection.Kind, id string) (model.Record, error) {
	q, err := r.queries(kind)
	if err != nil {
		return nil, err
	}

	rec, err := scanRecord(r.db.conn.QueryRowContext(ctx, q.get, owner, id), kind, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(kind.String(), id)
		}
		return nil, fmt.Errorf("sqlstore: getting %s %s: %w", kind, id, err)
	}
	return rec, nil
}

// List returns every record of kind that owner has, in no particular order.
func (r *RecordDB) List(ctx context.Context, owner string, kind collection.Kind) ([]model.Record, error) {
	q, err := r.queries(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.conn.QueryContext(ctx, q.list, owner)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing %s: %w", kind, err)
	}
	defer rows.Close()

	out := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, kind, owner)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning %s: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating %s: %w", kind, err)
	}
	return out, nil
}

// Reset wipes every collection and idempotency key for owner and zeroes the
// owner's points, all in one transaction.
func (r *RecordDB) Reset(ctx context.Context, owner string) error {
	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, k := range collection.All() {
			if _, err := tx.ExecContext(ctx, r.db.queries[k].reset, owner); err != nil {
				return fmt.Errorf("sqlstore: resetting %s: %w", k, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`DELETE FROM idempotency_keys WHERE owner_id = ?`), owner,
		); err != nil {
			return fmt.Errorf("sqlstore: resetting idempotency keys: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE users SET points = 0, updated_at = ? WHERE id = ?`), time.Now(), owner,
		); err != nil {
			return fmt.Errorf("sqlstore: resetting points: %w", err)
		}
		return nil
	})
}

// checkParents verifies that every parent a record points at belongs to
// the same owner.
func checkParents(ctx context.Context, tx *sqlx.Tx, q recordQueries, owner string, rec model.Record) error {
	values := rec.Values()
	for _, p := range q.parents {
		parentID, _ := values[p.fieldIndex].(string)
		var n int
		if err := tx.GetContext(ctx, &n, p.exists, owner, parentID); err != nil {
			return fmt.Errorf("sqlstore: checking %s %s: %w", p.parent, parentID, err)
		}
		if n == 0 {
			return apperror.ValidationFailed(p.json,
				fmt.Sprintf("%s %s does not exist", p.parent, parentID))
		}
	}
	return nil
}

// uniqueConflict explains a unique violation that was not an id collision.
// The only such index today is one completed log per task and day.
func uniqueConflict(kind collection.Kind, rec model.Record) error {
	if log, ok := rec.(*model.TaskLog); ok {
		return apperror.AlreadyExists("date",
			fmt.Sprintf("task %s is already completed on %s", log.TaskID, log.Date))
	}
	return apperror.Conflict(kind.String(), rec.RecordID())
}
