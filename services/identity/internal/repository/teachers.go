package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"srik/services/identity/internal/model"
)

const (
	teacherIDPrefix = "SRIK-G-"
	teacherIDLock   = 7_250_101
)

// NextTeacherID returns the ID following last for the two-digit year yy.
// An empty or unparsable last starts the year at 001.
func NextTeacherID(yy, last string) string {
	next := 1
	prefix := teacherIDPrefix + yy
	if suffix, ok := strings.CutPrefix(last, prefix); ok && len(suffix) >= 3 {
		if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", prefix, next)
}

const teacherColumns = `
	id::text, teacher_id, ic_number, to_char(date_of_birth, 'YYYY-MM-DD'), home_address,
	marital_status, spouse_name, spouse_ic_number, spouse_phone,
	to_char(join_date, 'YYYY-MM-DD'), created_at, updated_at`

func scanTeacher(row pgx.Row) (model.TeacherDetails, error) {
	var d model.TeacherDetails
	err := row.Scan(
		&d.ID,
		&d.TeacherID,
		&d.ICNumber,
		&d.DateOfBirth,
		&d.HomeAddress,
		&d.MaritalStatus,
		&d.SpouseName,
		&d.SpouseICNumber,
		&d.SpousePhone,
		&d.JoinDate,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

func (s *Store) GetTeacherDetails(ctx context.Context, userID string) (model.TeacherDetails, error) {
	return scanTeacher(s.pool.QueryRow(ctx, `SELECT `+teacherColumns+` FROM teacher_details WHERE id = $1`, userID))
}

// SaveTeacherDetails inserts the details with a fresh SRIK-G-YY### ID and
// today's join date when none exist, and updates them otherwise. A non-nil
// fullName is copied to the profile. The ID sequence is read and extended
// under an advisory lock.
func (s *Store) SaveTeacherDetails(ctx context.Context, d model.TeacherDetails, fullName *string, now time.Time) (model.TeacherDetails, bool, error) {
	var (
		saved   model.TeacherDetails
		created bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, teacherIDLock); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teacher_details WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
			return err
		}

		var err error
		if exists {
			saved, err = scanTeacher(tx.QueryRow(ctx, `
				UPDATE teacher_details
				SET ic_number = $2, date_of_birth = $3::date, home_address = $4, marital_status = $5,
				    spouse_name = $6, spouse_ic_number = $7, spouse_phone = $8, updated_at = now()
				WHERE id = $1
				RETURNING `+teacherColumns,
				d.ID, d.ICNumber, d.DateOfBirth, d.HomeAddress, d.MaritalStatus, d.SpouseName, d.SpouseICNumber, d.SpousePhone))
		} else {
			yy := now.Format("06")
			var last string
			err = tx.QueryRow(ctx, `
				SELECT teacher_id FROM teacher_details
				WHERE teacher_id LIKE $1
				ORDER BY length(teacher_id) DESC, teacher_id DESC
				LIMIT 1
			`, teacherIDPrefix+yy+"%").Scan(&last)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			created = true
			saved, err = scanTeacher(tx.QueryRow(ctx, `
				INSERT INTO teacher_details (id, teacher_id, ic_number, date_of_birth, home_address, marital_status,
				                             spouse_name, spouse_ic_number, spouse_phone, join_date)
				VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10::date)
				RETURNING `+teacherColumns,
				d.ID, NextTeacherID(yy, last), d.ICNumber, d.DateOfBirth, d.HomeAddress, d.MaritalStatus,
				d.SpouseName, d.SpouseICNumber, d.SpousePhone, now.Format("2006-01-02")))
		}
		if err != nil {
			return err
		}

		if fullName != nil {
			_, err = tx.Exec(ctx, `UPDATE profiles SET full_name = $2, updated_at = now() WHERE id = $1`, d.ID, *fullName)
		}
		return err
	})
	return saved, created, err
}
