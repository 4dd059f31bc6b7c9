package operations

import (
	"errors"
	"fmt"
)

const (
	ErrInvalidEntry     = "invalid_entry"
	ErrEntryNotFound    = "entry_not_found"
	ErrTermNotFound     = "term_not_found"
	ErrNoCurrentTerm    = "no_current_term"
	ErrTimeSlotNotFound = "time_slot_not_found"
	ErrInvalidReference = "invalid_reference"
	ErrServerError      = "server_error"
)

// Postgres codes for a reference to a row that does not exist and for an
// ID that does not parse as its column type.
const (
	pgForeignKeyViolation       = "23503"
	pgInvalidTextRepresentation = "22P02"
)

// errTermChanged aborts a locked section whose entry moved to another term
// after the lock was chosen. The caller retries under the new term's lock.
var errTermChanged = errors.New("entry changed term")

const maxTermRetries = 2

type Error struct {
	Code   string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}
