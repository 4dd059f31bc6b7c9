package operations

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"

	"srik/services/timetable/internal/export"
	"srik/services/timetable/internal/model"
)

type Reference struct {
	Days          []model.Day          `json:"days"`
	TimeSlots     []model.TimeSlot     `json:"time_slots"`
	Classrooms    []model.Classroom    `json:"classrooms"`
	Subjects      []model.Subject      `json:"subjects"`
	Teachers      []model.Teacher      `json:"teachers"`
	SpecialEvents []model.SpecialEvent `json:"special_events"`
	Terms         []model.AcademicTerm `json:"terms"`
	CurrentTerm   *model.AcademicTerm  `json:"current_term"`
}

// Reference loads everything the board needs to render a term.
func (s *Service) Reference(ctx context.Context) (Reference, error) {
	var ref Reference
	in, err := loadInput(ctx, s.queries, 0)
	if err != nil {
		return ref, s.fail("reference", err)
	}
	ref.Days = in.Days
	ref.TimeSlots = in.TimeSlots
	ref.Classrooms = in.Classrooms
	ref.Subjects = in.Subjects
	ref.Teachers = in.Teachers
	ref.SpecialEvents = in.SpecialEvents
	if ref.Terms, err = s.queries.ListTerms(ctx); err != nil {
		return ref, s.fail("reference", err)
	}
	current, err := s.queries.GetCurrentTerm(ctx)
	switch {
	case err == nil:
		ref.CurrentTerm = &current
	case !errors.Is(err, pgx.ErrNoRows):
		return ref, s.fail("reference", err)
	}
	return ref, nil
}

func (s *Service) CurrentTerm(ctx context.Context) (model.AcademicTerm, error) {
	return s.resolveTerm(ctx, 0)
}

// ExportTimetable writes the term's timetable as an XLSX workbook to w.
func (s *Service) ExportTimetable(ctx context.Context, termID int, w io.Writer) error {
	term, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return err
	}
	in, err := loadInput(ctx, s.queries, term.ID)
	if err != nil {
		return s.fail("export", err)
	}
	entries, err := s.queries.ListEntryDetails(ctx, model.EntryFilter{TermID: term.ID})
	if err != nil {
		return s.fail("export", err)
	}
	book, err := export.Build(export.Timetable{
		Term:          term,
		Days:          in.Days,
		TimeSlots:     in.TimeSlots,
		Classrooms:    in.Classrooms,
		SpecialEvents: in.SpecialEvents,
		Entries:       entries,
	})
	if err != nil {
		return s.fail("export", err)
	}
	defer book.Close()
	if err := book.Write(w); err != nil {
		return s.fail("export", err)
	}
	return nil
}
