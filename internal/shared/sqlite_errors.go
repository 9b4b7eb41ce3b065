// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import "strings"

// IsSQLiteBusy checks if the error is a SQLITE_BUSY error. This occurs when
// the database is locked by another connection.
func IsSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLocked checks if the error is a "database is locked" error, the
// other form SQLite concurrency errors take.
func IsSQLiteLocked(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflict checks if the error is either form of SQLite concurrency
// error. The store reports these as persistence failures rather than
// retrying; retry policy belongs to the caller.
func IsSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	return IsSQLiteBusy(err) || IsSQLiteLocked(err)
}
