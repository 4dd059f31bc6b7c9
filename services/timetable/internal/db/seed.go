package db

import (
	"context"

	"srik/services/timetable/internal/model"
)

func (q *Queries) UpsertDay(ctx context.Context, d model.Day) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO days (name, day_order) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET day_order = EXCLUDED.day_order
	`, d.Name, d.DayOrder)
	return err
}

func (q *Queries) UpsertTimeSlot(ctx context.Context, s model.TimeSlot) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO time_slots (slot_number, start_time, end_time, is_recess, is_prayer)
		VALUES ($1, $2::time, $3::time, $4, $5)
		ON CONFLICT (slot_number) DO UPDATE
		SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
		    is_recess = EXCLUDED.is_recess, is_prayer = EXCLUDED.is_prayer
	`, s.SlotNumber, s.StartTime, s.EndTime, s.IsRecess, s.IsPrayer)
	return err
}

func (q *Queries) UpsertClassroom(ctx context.Context, c model.Classroom) error {
	_, err := q.db.Exec(ctx, `INSERT INTO classrooms (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, c.Name)
	return err
}

func (q *Queries) UpsertSubject(ctx context.Context, s model.Subject) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO subjects (name, code) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
	`, s.Name, s.Code)
	return err
}

// InsertTeacher adds the teacher unless the email is already known. It
// reports whether a row was inserted.
func (q *Queries) InsertTeacher(ctx context.Context, t model.Teacher) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO teachers (id, name, email, subjects, roles)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, t.ID, t.Name, t.Email, t.Subjects, t.Roles)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) UpsertSpecialEvent(ctx context.Context, name, dayName string, slotNumber int, recurring bool) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO special_events (name, day_id, time_slot_id, recurring)
		SELECT $1, d.id, ts.id, $4
		FROM days d, time_slots ts
		WHERE d.name = $2 AND ts.slot_number = $3
		ON CONFLICT (name, day_id, time_slot_id) DO UPDATE SET recurring = EXCLUDED.recurring
	`, name, dayName, slotNumber, recurring)
	return err
}

func (q *Queries) HasCurrentTerm(ctx context.Context) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM academic_terms WHERE is_current)`).Scan(&exists)
	return exists, err
}
