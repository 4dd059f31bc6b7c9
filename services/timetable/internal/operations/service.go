package operations

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"srik/services/timetable/internal/metrics"
	"srik/services/timetable/internal/model"
	"srik/services/timetable/internal/scheduling"
)

const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
	EventEntryMoved   = "entry.moved"
	EventEntryDeleted = "entry.deleted"
	EventGenerated    = "timetable.generated"
	EventImported     = "timetable.imported"
)

// Queries is the storage the service needs. *db.Queries implements it.
type Queries interface {
	GetEntry(ctx context.Context, id string) (model.Entry, error)
	ListEntries(ctx context.Context, termID int) ([]model.Entry, error)
	ListEntriesAtSlot(ctx context.Context, dayID, timeSlotID, termID int) ([]model.Entry, error)
	ListEntryDetails(ctx context.Context, f model.EntryFilter) ([]model.EntryDetail, error)
	CreateEntry(ctx context.Context, e model.Entry) (model.Entry, error)
	UpdateEntry(ctx context.Context, e model.Entry) (model.Entry, error)
	MoveEntry(ctx context.Context, id string, dayID, timeSlotID int) (model.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	DeleteTermEntries(ctx context.Context, termID int) (int64, error)
	InsertEntries(ctx context.Context, entries []model.Entry) (int64, error)

	ListDays(ctx context.Context) ([]model.Day, error)
	ListTimeSlots(ctx context.Context) ([]model.TimeSlot, error)
	GetTimeSlot(ctx context.Context, id int) (model.TimeSlot, error)
	ListClassrooms(ctx context.Context) ([]model.Classroom, error)
	ListSubjects(ctx context.Context) ([]model.Subject, error)
	ListTeachers(ctx context.Context) ([]model.Teacher, error)
	ListSpecialEvents(ctx context.Context) ([]model.SpecialEvent, error)
	ListSpecialEventsAtSlot(ctx context.Context, dayID, timeSlotID int) ([]model.SpecialEvent, error)
	ListTerms(ctx context.Context) ([]model.AcademicTerm, error)
	GetTerm(ctx context.Context, id int) (model.AcademicTerm, error)
	GetCurrentTerm(ctx context.Context) (model.AcademicTerm, error)
}

// LockFunc runs fn in a transaction that holds the write lock of termID.
type LockFunc func(ctx context.Context, termID int, fn func(Queries) error) error

type Publisher interface {
	Publish(ctx context.Context, eventType string, termID int, payload any)
}

type Options struct {
	// AllowBreakSlots lets manual edits use recess and prayer slots. The
	// generator and imports never do.
	AllowBreakSlots bool
	Generator       scheduling.Options
}

type Service struct {
	queries Queries
	lock    LockFunc
	live    Publisher
	logger  *zap.Logger
	opts    Options
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func NewService(queries Queries, lock LockFunc, live Publisher, logger *zap.Logger, opts Options) *Service {
	if live == nil {
		live = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{queries: queries, lock: lock, live: live, logger: logger, opts: opts}
}

type EntryForm struct {
	TeacherID   string `json:"teacher_id" validate:"required,uuid"`
	SubjectID   int    `json:"subject_id" validate:"required,gt=0"`
	ClassroomID int    `json:"classroom_id" validate:"required,gt=0"`
	DayID       int    `json:"day_id" validate:"required,gt=0"`
	TimeSlotID  int    `json:"time_slot_id" validate:"required,gt=0"`
	TermID      int    `json:"term_id" validate:"gte=0"`
}

func (f EntryForm) entry(id string, termID int) model.Entry {
	return model.Entry{
		ID:          id,
		TeacherID:   f.TeacherID,
		SubjectID:   f.SubjectID,
		ClassroomID: f.ClassroomID,
		DayID:       f.DayID,
		TimeSlotID:  f.TimeSlotID,
		TermID:      termID,
	}
}

type MoveForm struct {
	DayID      int `json:"day_id" validate:"required,gt=0"`
	TimeSlotID int `json:"time_slot_id" validate:"required,gt=0"`
}

func (s *Service) CreateEntry(ctx context.Context, form EntryForm) (model.Entry, error) {
	if err := validate.Struct(form); err != nil {
		return model.Entry{}, &Error{Code: ErrInvalidEntry, Detail: err.Error()}
	}
	term, err := s.resolveTerm(ctx, form.TermID)
	if err != nil {
		return model.Entry{}, err
	}
	entry := form.entry(uuid.NewString(), term.ID)

	var created model.Entry
	err = s.lock(ctx, term.ID, func(q Queries) error {
		if err := s.checkPlacement(ctx, q, entry); err != nil {
			return err
		}
		created, err = q.CreateEntry(ctx, entry)
		return err
	})
	if err != nil {
		return model.Entry{}, s.fail("create", err)
	}
	metrics.EntryChanges.WithLabelValues("create").Inc()
	s.live.Publish(ctx, EventEntryCreated, created.TermID, created)
	return created, nil
}

func (s *Service) UpdateEntry(ctx context.Context, id string, form EntryForm) (model.Entry, error) {
	if err := validate.Struct(form); err != nil {
		return model.Entry{}, &Error{Code: ErrInvalidEntry, Detail: err.Error()}
	}
	current, err := s.queries.GetEntry(ctx, id)
	if err != nil {
		return model.Entry{}, s.fail("update", err)
	}
	termID := current.TermID
	if form.TermID != 0 {
		term, err := s.resolveTerm(ctx, form.TermID)
		if err != nil {
			return model.Entry{}, err
		}
		termID = term.ID
	}
	entry := form.entry(id, termID)

	var updated model.Entry
	err = s.lock(ctx, termID, func(q Queries) error {
		if err := s.checkPlacement(ctx, q, entry); err != nil {
			return err
		}
		updated, err = q.UpdateEntry(ctx, entry)
		return err
	})
	if err != nil {
		return model.Entry{}, s.fail("update", err)
	}
	metrics.EntryChanges.WithLabelValues("update").Inc()
	s.live.Publish(ctx, EventEntryUpdated, updated.TermID, updated)
	return updated, nil
}

// MoveEntry changes only the day and slot of an entry, keeping its teacher,
// classroom and term. The entry is re-read under the term lock so the check
// sees what the write will change.
func (s *Service) MoveEntry(ctx context.Context, id string, form MoveForm) (model.Entry, error) {
	if err := validate.Struct(form); err != nil {
		return model.Entry{}, &Error{Code: ErrInvalidEntry, Detail: err.Error()}
	}
	current, err := s.queries.GetEntry(ctx, id)
	if err != nil {
		return model.Entry{}, s.fail("move", err)
	}

	var moved model.Entry
	termID := current.TermID
	for attempt := 0; ; attempt++ {
		err = s.lock(ctx, termID, func(q Queries) error {
			locked, err := q.GetEntry(ctx, id)
			if err != nil {
				return err
			}
			if locked.TermID != termID {
				termID = locked.TermID
				return errTermChanged
			}
			target := locked
			target.DayID = form.DayID
			target.TimeSlotID = form.TimeSlotID
			if err := s.checkPlacement(ctx, q, target); err != nil {
				return err
			}
			moved, err = q.MoveEntry(ctx, id, form.DayID, form.TimeSlotID)
			return err
		})
		if !errors.Is(err, errTermChanged) || attempt == maxTermRetries {
			break
		}
	}
	if err != nil {
		return model.Entry{}, s.fail("move", err)
	}
	metrics.EntryChanges.WithLabelValues("move").Inc()
	s.live.Publish(ctx, EventEntryMoved, moved.TermID, moved)
	return moved, nil
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	current, err := s.queries.GetEntry(ctx, id)
	if err != nil {
		return s.fail("delete", err)
	}
	if err := s.queries.DeleteEntry(ctx, id); err != nil {
		return s.fail("delete", err)
	}
	metrics.EntryChanges.WithLabelValues("delete").Inc()
	s.live.Publish(ctx, EventEntryDeleted, current.TermID, map[string]string{"id": id})
	return nil
}

// ListEntries returns entries with their reference rows. A zero term means
// the current term.
func (s *Service) ListEntries(ctx context.Context, filter model.EntryFilter) ([]model.EntryDetail, error) {
	term, err := s.resolveTerm(ctx, filter.TermID)
	if err != nil {
		return nil, err
	}
	filter.TermID = term.ID
	entries, err := s.queries.ListEntryDetails(ctx, filter)
	if err != nil {
		return nil, s.fail("list", err)
	}
	return entries, nil
}

type GenerateResult struct {
	TermID   int `json:"term_id"`
	Removed  int `json:"removed"`
	Created  int `json:"created"`
	Rejected int `json:"rejected"`
}

// GenerateTimetable replaces every entry of the term with a generated
// timetable.
func (s *Service) GenerateTimetable(ctx context.Context, termID int) (GenerateResult, error) {
	term, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return GenerateResult{}, err
	}
	result := GenerateResult{TermID: term.ID}

	started := time.Now()
	err = s.lock(ctx, term.ID, func(q Queries) error {
		in, err := loadInput(ctx, q, term.ID)
		if err != nil {
			return err
		}
		removed, err := q.DeleteTermEntries(ctx, term.ID)
		if err != nil {
			return err
		}
		accepted, rejected := scheduling.Validate(in, scheduling.Generate(in, s.opts.Generator))
		for i := range accepted {
			accepted[i].ID = uuid.NewString()
		}
		created, err := q.InsertEntries(ctx, accepted)
		if err != nil {
			return err
		}
		result.Removed = int(removed)
		result.Created = int(created)
		result.Rejected = len(rejected)
		return nil
	})
	if err != nil {
		return GenerateResult{}, s.fail("generate", err)
	}
	metrics.GeneratedEntries.Add(float64(result.Created))
	s.logger.Info("timetable generated",
		zap.Int("term_id", term.ID),
		zap.Int("removed", result.Removed),
		zap.Int("created", result.Created),
		zap.Int("rejected", result.Rejected),
		zap.Duration("took", time.Since(started)),
	)
	s.live.Publish(ctx, EventGenerated, term.ID, result)
	return result, nil
}

type ImportResult struct {
	TermID   int                    `json:"term_id"`
	Created  int                    `json:"created"`
	Rejected []scheduling.Rejection `json:"rejected"`
}

// ImportEntries stores externally produced entries that pass the generator's
// rules against the term's current timetable and reports the rest.
func (s *Service) ImportEntries(ctx context.Context, termID int, forms []EntryForm) (ImportResult, error) {
	term, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return ImportResult{}, err
	}
	candidates := make([]model.Entry, len(forms))
	for i, f := range forms {
		candidates[i] = f.entry("", term.ID)
	}

	result := ImportResult{TermID: term.ID}
	err = s.lock(ctx, term.ID, func(q Queries) error {
		in, err := loadInput(ctx, q, term.ID)
		if err != nil {
			return err
		}
		if in.Occupied, err = q.ListEntries(ctx, term.ID); err != nil {
			return err
		}
		accepted, rejected := scheduling.Validate(in, candidates)
		for i := range accepted {
			accepted[i].ID = uuid.NewString()
		}
		created, err := q.InsertEntries(ctx, accepted)
		if err != nil {
			return err
		}
		result.Created = int(created)
		result.Rejected = rejected
		return nil
	})
	if err != nil {
		return ImportResult{}, s.fail("import", err)
	}
	for _, r := range result.Rejected {
		metrics.Conflicts.WithLabelValues(r.Reason).Inc()
	}
	s.live.Publish(ctx, EventImported, term.ID, map[string]int{"created": result.Created, "rejected": len(result.Rejected)})
	return result, nil
}

func (s *Service) resolveTerm(ctx context.Context, termID int) (model.AcademicTerm, error) {
	if termID == 0 {
		term, err := s.queries.GetCurrentTerm(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return term, &Error{Code: ErrNoCurrentTerm}
		}
		if err != nil {
			return term, s.fail("current term", err)
		}
		return term, nil
	}
	term, err := s.queries.GetTerm(ctx, termID)
	if errors.Is(err, pgx.ErrNoRows) {
		return term, &Error{Code: ErrTermNotFound}
	}
	if err != nil {
		return term, s.fail("term", err)
	}
	return term, nil
}

// checkPlacement applies the placement rules to e against what is stored for
// its cell.
func (s *Service) checkPlacement(ctx context.Context, q Queries, e model.Entry) error {
	occupied, err := q.ListEntriesAtSlot(ctx, e.DayID, e.TimeSlotID, e.TermID)
	if err != nil {
		return err
	}
	events, err := q.ListSpecialEventsAtSlot(ctx, e.DayID, e.TimeSlotID)
	if err != nil {
		return err
	}
	if err := scheduling.Check(e, occupied, events); err != nil {
		return err
	}
	if s.opts.AllowBreakSlots {
		return nil
	}
	slot, err := q.GetTimeSlot(ctx, e.TimeSlotID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Code: ErrTimeSlotNotFound}
	}
	if err != nil {
		return err
	}
	return scheduling.CheckBreak(slot)
}

func loadInput(ctx context.Context, q Queries, termID int) (scheduling.Input, error) {
	in := scheduling.Input{TermID: termID}
	var err error
	if in.Teachers, err = q.ListTeachers(ctx); err != nil {
		return in, err
	}
	if in.Subjects, err = q.ListSubjects(ctx); err != nil {
		return in, err
	}
	if in.Classrooms, err = q.ListClassrooms(ctx); err != nil {
		return in, err
	}
	if in.Days, err = q.ListDays(ctx); err != nil {
		return in, err
	}
	if in.TimeSlots, err = q.ListTimeSlots(ctx); err != nil {
		return in, err
	}
	if in.SpecialEvents, err = q.ListSpecialEvents(ctx); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Service) fail(op string, err error) error {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr
	}
	var conflict *scheduling.Conflict
	if errors.As(err, &conflict) {
		metrics.Conflicts.WithLabelValues(string(conflict.Kind)).Inc()
		return conflict
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Code: ErrEntryNotFound}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return &Error{Code: ErrInvalidReference, Detail: pgErr.ConstraintName}
		case pgInvalidTextRepresentation:
			return &Error{Code: ErrInvalidReference, Detail: pgErr.Message}
		}
	}
	s.logger.Error("timetable operation failed", zap.String("op", op), zap.Error(err))
	return &Error{Code: ErrServerError}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, int, any) {}
