package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srik/services/timetable/internal/scheduling"
)

func TestUniqueConflict(t *testing.T) {
	var conflict *scheduling.Conflict

	err := uniqueConflict(&pgconn.PgError{Code: "23505", ConstraintName: "timetable_entries_teacher_slot_key"})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, scheduling.TeacherBusy, conflict.Kind)

	err = uniqueConflict(&pgconn.PgError{Code: "23505", ConstraintName: "timetable_entries_classroom_slot_key"})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, scheduling.ClassroomBusy, conflict.Kind)

	other := &pgconn.PgError{Code: "23503", ConstraintName: "timetable_entries_teacher_id_fkey"}
	assert.Same(t, other, uniqueConflict(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, uniqueConflict(plain))
	assert.NoError(t, uniqueConflict(nil))
}
