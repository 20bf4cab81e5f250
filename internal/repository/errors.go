// Package repository implements the persistence contracts of package
// ports on top of MySQL.  This file defines the error values shared by
// every repository.  Handlers never see driver errors directly: rows
// that do not exist surface as ErrNotFound, unique key violations as
// ErrDuplicate, blocked deletes as ErrReferenced and lock contention as
// ErrLockConflict.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/service-booking/internal/ports"
)

// The sentinels are shared with package ports so the service layer can
// test for them without importing this package.
var (
	ErrNotFound     = ports.ErrNotFound
	ErrDuplicate    = ports.ErrDuplicate
	ErrLockConflict = ports.ErrLockConflict
	ErrReferenced   = ports.ErrReferenced
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify maps driver errors onto the shared sentinels.  Unknown errors
// are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
		case mysqlRowIsReferenced:
			return fmt.Errorf("%w: %s", ErrReferenced, me.Message)
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return fmt.Errorf("%w: %s", ErrLockConflict, me.Message)
		}
	}
	return err
}
