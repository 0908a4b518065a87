package index

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndexCorrupt means the underlying storage failed an integrity check.
// The canonical cards are unaffected; a reindex rebuilds the store from them.
var ErrIndexCorrupt = errors.New("search index is corrupt, reindex to recover")

// RecordError marks a single record that could not be converted into an
// index entry. Rebuild collects these instead of aborting the batch.
type RecordError struct {
	ID  string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// isBusy reports whether err is SQLite's write-conflict signal. The write
// path retries once before surfacing it.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
