package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"srik/services/timetable/internal/model"
	"srik/services/timetable/internal/scheduling"
)

const entryColumns = `id::text, teacher_id::text, subject_id, classroom_id, day_id, time_slot_id, term_id, created_at, updated_at`

func scanEntry(row pgx.Row) (model.Entry, error) {
	var e model.Entry
	err := row.Scan(&e.ID, &e.TeacherID, &e.SubjectID, &e.ClassroomID, &e.DayID, &e.TimeSlotID, &e.TermID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func collectEntries(rows pgx.Rows, err error) ([]model.Entry, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Entry, error) {
		return scanEntry(row)
	})
}

func (q *Queries) GetEntry(ctx context.Context, id string) (model.Entry, error) {
	return scanEntry(q.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM timetable_entries WHERE id = $1`, id))
}

func (q *Queries) ListEntries(ctx context.Context, termID int) ([]model.Entry, error) {
	return collectEntries(q.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM timetable_entries
		WHERE term_id = $1
	`, termID))
}

func (q *Queries) ListEntriesAtSlot(ctx context.Context, dayID, timeSlotID, termID int) ([]model.Entry, error) {
	return collectEntries(q.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM timetable_entries
		WHERE day_id = $1 AND time_slot_id = $2 AND term_id = $3
	`, dayID, timeSlotID, termID))
}

func (q *Queries) CreateEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO timetable_entries (id, teacher_id, subject_id, classroom_id, day_id, time_slot_id, term_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+entryColumns,
		e.ID, e.TeacherID, e.SubjectID, e.ClassroomID, e.DayID, e.TimeSlotID, e.TermID)
	created, err := scanEntry(row)
	return created, uniqueConflict(err)
}

func (q *Queries) UpdateEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE timetable_entries
		SET teacher_id = $2, subject_id = $3, classroom_id = $4, day_id = $5, time_slot_id = $6, term_id = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+entryColumns,
		e.ID, e.TeacherID, e.SubjectID, e.ClassroomID, e.DayID, e.TimeSlotID, e.TermID)
	updated, err := scanEntry(row)
	return updated, uniqueConflict(err)
}

func (q *Queries) MoveEntry(ctx context.Context, id string, dayID, timeSlotID int) (model.Entry, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE timetable_entries
		SET day_id = $2, time_slot_id = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+entryColumns,
		id, dayID, timeSlotID)
	moved, err := scanEntry(row)
	return moved, uniqueConflict(err)
}

func (q *Queries) DeleteEntry(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteTermEntries(ctx context.Context, termID int) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM timetable_entries WHERE term_id = $1`, termID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertEntries bulk loads entries with COPY. IDs must already be set.
func (q *Queries) InsertEntries(ctx context.Context, entries []model.Entry) (int64, error) {
	now := time.Now().UTC()
	n, err := q.db.CopyFrom(ctx,
		pgx.Identifier{"timetable_entries"},
		[]string{"id", "teacher_id", "subject_id", "classroom_id", "day_id", "time_slot_id", "term_id", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{e.ID, e.TeacherID, e.SubjectID, e.ClassroomID, e.DayID, e.TimeSlotID, e.TermID, now, now}, nil
		}),
	)
	return n, uniqueConflict(err)
}

// ListEntryDetails joins entries with their reference rows, ordered by day
// then slot.
func (q *Queries) ListEntryDetails(ctx context.Context, f model.EntryFilter) ([]model.EntryDetail, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.TermID != 0 {
		add("e.term_id = ?", f.TermID)
	}
	if f.ClassroomID != 0 {
		add("e.classroom_id = ?", f.ClassroomID)
	}
	if f.TeacherID != "" {
		add("e.teacher_id = ?::uuid", f.TeacherID)
	}
	sql := `
		SELECT e.id::text, e.teacher_id::text, e.subject_id, e.classroom_id, e.day_id, e.time_slot_id, e.term_id, e.created_at, e.updated_at,
		       t.name, t.email, t.subjects, t.roles,
		       s.name, s.code,
		       c.name,
		       d.name, d.day_order,
		       ts.slot_number, to_char(ts.start_time, 'HH24:MI:SS'), to_char(ts.end_time, 'HH24:MI:SS'), ts.is_recess, ts.is_prayer
		FROM timetable_entries e
		JOIN teachers t ON t.id = e.teacher_id
		JOIN subjects s ON s.id = e.subject_id
		JOIN classrooms c ON c.id = e.classroom_id
		JOIN days d ON d.id = e.day_id
		JOIN time_slots ts ON ts.id = e.time_slot_id`
	if len(where) > 0 {
		sql += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	sql += "\n\t\tORDER BY d.day_order, ts.slot_number, c.name"

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.EntryDetail, error) {
		var d model.EntryDetail
		err := row.Scan(
			&d.ID, &d.TeacherID, &d.SubjectID, &d.ClassroomID, &d.DayID, &d.TimeSlotID, &d.TermID, &d.CreatedAt, &d.UpdatedAt,
			&d.Teacher.Name, &d.Teacher.Email, &d.Teacher.Subjects, &d.Teacher.Roles,
			&d.Subject.Name, &d.Subject.Code,
			&d.Classroom.Name,
			&d.Day.Name, &d.Day.DayOrder,
			&d.TimeSlot.SlotNumber, &d.TimeSlot.StartTime, &d.TimeSlot.EndTime, &d.TimeSlot.IsRecess, &d.TimeSlot.IsPrayer,
		)
		d.Teacher.ID = d.TeacherID
		d.Subject.ID = d.SubjectID
		d.Classroom.ID = d.ClassroomID
		d.Day.ID = d.DayID
		d.TimeSlot.ID = d.TimeSlotID
		return d, err
	})
}

// uniqueConflict maps unique index violations on timetable_entries to the
// matching placement conflict.
func uniqueConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "timetable_entries_teacher_slot_key":
		return &scheduling.Conflict{Kind: scheduling.TeacherBusy}
	case "timetable_entries_classroom_slot_key":
		return &scheduling.Conflict{Kind: scheduling.ClassroomBusy}
	}
	return err
}
