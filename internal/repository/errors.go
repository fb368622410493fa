// Package repository is the data-access layer. Each repository holds a
// *sql.DB, takes a context on every call, and translates storage errors into
// the model taxonomy so raw driver errors never reach handlers.
//
// Multi-row writes expose *Tx variants taking a *sql.Tx; the caller owns the
// commit/rollback so an entity insert and its EPA mappings either both land
// or neither does. Lifecycle updates are guarded: the WHERE clause repeats
// the expected prior state and zero affected rows is reported as a state
// conflict, which rejects stale concurrent writers.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// translateErr maps driver-level failures onto the model taxonomy.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	var my *mysql.MySQLError
	if errors.As(err, &my) && my.Number == 1062 {
		return model.ErrDuplicate
	}
	return err
}

// guarded interprets the result of a state-guarded UPDATE: zero affected
// rows means the guard failed, i.e. someone else finalized the row first.
func guarded(res sql.Result, err error) error {
	if err != nil {
		return translateErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrStateConflict
	}
	return nil
}
