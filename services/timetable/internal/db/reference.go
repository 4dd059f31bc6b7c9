package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"srik/services/timetable/internal/model"
)

const timeSlotColumns = `id, slot_number, to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS'), is_recess, is_prayer`

func scanTimeSlot(row pgx.Row) (model.TimeSlot, error) {
	var s model.TimeSlot
	err := row.Scan(&s.ID, &s.SlotNumber, &s.StartTime, &s.EndTime, &s.IsRecess, &s.IsPrayer)
	return s, err
}

func scanTerm(row pgx.Row) (model.AcademicTerm, error) {
	var t model.AcademicTerm
	err := row.Scan(&t.ID, &t.Name, &t.StartDate, &t.EndDate, &t.IsCurrent)
	return t, err
}

func scanEvent(row pgx.Row) (model.SpecialEvent, error) {
	var e model.SpecialEvent
	err := row.Scan(&e.ID, &e.Name, &e.DayID, &e.TimeSlotID, &e.Recurring)
	return e, err
}

func (q *Queries) ListDays(ctx context.Context) ([]model.Day, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, day_order FROM days ORDER BY day_order`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Day, error) {
		var d model.Day
		err := row.Scan(&d.ID, &d.Name, &d.DayOrder)
		return d, err
	})
}

func (q *Queries) ListTimeSlots(ctx context.Context) ([]model.TimeSlot, error) {
	rows, err := q.db.Query(ctx, `SELECT `+timeSlotColumns+` FROM time_slots ORDER BY slot_number`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TimeSlot, error) {
		return scanTimeSlot(row)
	})
}

func (q *Queries) GetTimeSlot(ctx context.Context, id int) (model.TimeSlot, error) {
	return scanTimeSlot(q.db.QueryRow(ctx, `SELECT `+timeSlotColumns+` FROM time_slots WHERE id = $1`, id))
}

func (q *Queries) ListClassrooms(ctx context.Context) ([]model.Classroom, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name FROM classrooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Classroom, error) {
		var c model.Classroom
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

func (q *Queries) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, code FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Subject, error) {
		var s model.Subject
		err := row.Scan(&s.ID, &s.Name, &s.Code)
		return s, err
	})
}

func (q *Queries) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	rows, err := q.db.Query(ctx, `SELECT id::text, name, email, subjects, roles FROM teachers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Teacher, error) {
		var t model.Teacher
		err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Subjects, &t.Roles)
		return t, err
	})
}

func (q *Queries) ListSpecialEvents(ctx context.Context) ([]model.SpecialEvent, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, day_id, time_slot_id, recurring FROM special_events ORDER BY day_id, time_slot_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SpecialEvent, error) {
		return scanEvent(row)
	})
}

func (q *Queries) ListSpecialEventsAtSlot(ctx context.Context, dayID, timeSlotID int) ([]model.SpecialEvent, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, day_id, time_slot_id, recurring
		FROM special_events
		WHERE day_id = $1 AND time_slot_id = $2
	`, dayID, timeSlotID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SpecialEvent, error) {
		return scanEvent(row)
	})
}

func (q *Queries) ListTerms(ctx context.Context) ([]model.AcademicTerm, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, start_date, end_date, is_current FROM academic_terms ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AcademicTerm, error) {
		return scanTerm(row)
	})
}

func (q *Queries) GetTerm(ctx context.Context, id int) (model.AcademicTerm, error) {
	return scanTerm(q.db.QueryRow(ctx, `SELECT id, name, start_date, end_date, is_current FROM academic_terms WHERE id = $1`, id))
}

func (q *Queries) GetCurrentTerm(ctx context.Context) (model.AcademicTerm, error) {
	return scanTerm(q.db.QueryRow(ctx, `
		SELECT id, name, start_date, end_date, is_current
		FROM academic_terms
		WHERE is_current
		ORDER BY start_date DESC
		LIMIT 1
	`))
}

func (q *Queries) CreateTerm(ctx context.Context, t model.AcademicTerm) (model.AcademicTerm, error) {
	return scanTerm(q.db.QueryRow(ctx, `
		INSERT INTO academic_terms (name, start_date, end_date, is_current)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, start_date, end_date, is_current
	`, t.Name, t.StartDate, t.EndDate, t.IsCurrent))
}

// SetCurrentTermForDate marks the term covering day as current and clears the
// flag elsewhere. It returns pgx.ErrNoRows when no term covers day.
func (q *Queries) SetCurrentTermForDate(ctx context.Context, day time.Time) (model.AcademicTerm, error) {
	term, err := scanTerm(q.db.QueryRow(ctx, `
		SELECT id, name, start_date, end_date, is_current
		FROM academic_terms
		WHERE $1::date BETWEEN start_date AND end_date
		ORDER BY start_date DESC
		LIMIT 1
	`, day))
	if err != nil {
		return term, err
	}
	if term.IsCurrent {
		return term, nil
	}
	if _, err := q.db.Exec(ctx, `UPDATE academic_terms SET is_current = (id = $1)`, term.ID); err != nil {
		return term, err
	}
	term.IsCurrent = true
	return term, nil
}
