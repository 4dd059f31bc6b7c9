package operations

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"srik/services/timetable/internal/model"
)

type fakeQueries struct {
	mu sync.Mutex

	days       []model.Day
	slots      []model.TimeSlot
	classrooms []model.Classroom
	subjects   []model.Subject
	teachers   []model.Teacher
	events     []model.SpecialEvent
	terms      []model.AcademicTerm
	entries    map[string]model.Entry

	failWith error
	// writeErr fails single-entry writes the way a constraint would.
	writeErr error
	// beforeLocked runs once, before the next locked section.
	beforeLocked func(*fakeQueries)
}

func newFakeQueries() *fakeQueries {
	f := &fakeQueries{
		days: []model.Day{
			{ID: 1, Name: "Ahad", DayOrder: 1},
			{ID: 2, Name: "Isnin", DayOrder: 2},
			{ID: 3, Name: "Selasa", DayOrder: 3},
		},
		classrooms: []model.Classroom{
			{ID: 1, Name: "1 Al-Junaidi"},
			{ID: 2, Name: "2 Al-Junaidi"},
		},
		subjects: []model.Subject{
			{ID: 1, Name: "Bahasa Melayu", Code: "BM"},
			{ID: 2, Name: "Matematik", Code: "MT"},
		},
		teachers: []model.Teacher{
			{ID: "11111111-1111-1111-1111-111111111111", Name: "Mohd Fadil Hadi", Subjects: []string{"BM", "SJ"}},
			{ID: "22222222-2222-2222-2222-222222222222", Name: "Mohd Farid Uzairi", Subjects: []string{"MT", "SN"}},
			{ID: "33333333-3333-3333-3333-333333333333", Name: "Syafilla", Subjects: []string{"BM", "JW"}},
		},
		events: []model.SpecialEvent{
			{ID: 1, Name: "Perhimpunan", DayID: 1, TimeSlotID: 1},
		},
		terms: []model.AcademicTerm{
			{ID: 7, Name: "Penggal 1 2026", IsCurrent: true},
			{ID: 8, Name: "Penggal 2 2026"},
		},
		entries: map[string]model.Entry{},
	}
	for n := 1; n <= 6; n++ {
		f.slots = append(f.slots, model.TimeSlot{ID: n, SlotNumber: n, StartTime: "07:30:00", EndTime: "08:05:00", IsRecess: n == 5})
	}
	return f
}

func (f *fakeQueries) lock(_ context.Context, _ int, fn func(Queries) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hook := f.beforeLocked; hook != nil {
		f.beforeLocked = nil
		hook(f)
	}
	return fn(f)
}

func (f *fakeQueries) put(e model.Entry) {
	f.entries[e.ID] = e
}

func (f *fakeQueries) GetEntry(_ context.Context, id string) (model.Entry, error) {
	if f.failWith != nil {
		return model.Entry{}, f.failWith
	}
	e, ok := f.entries[id]
	if !ok {
		return model.Entry{}, pgx.ErrNoRows
	}
	return e, nil
}

func (f *fakeQueries) ListEntries(_ context.Context, termID int) ([]model.Entry, error) {
	var out []model.Entry
	for _, e := range f.entries {
		if e.TermID == termID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Entry) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeQueries) ListEntriesAtSlot(_ context.Context, dayID, timeSlotID, termID int) ([]model.Entry, error) {
	var out []model.Entry
	for _, e := range f.entries {
		if e.DayID == dayID && e.TimeSlotID == timeSlotID && e.TermID == termID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeQueries) ListEntryDetails(_ context.Context, filter model.EntryFilter) ([]model.EntryDetail, error) {
	var out []model.EntryDetail
	for _, e := range f.entries {
		if e.TermID != filter.TermID {
			continue
		}
		if filter.ClassroomID != 0 && e.ClassroomID != filter.ClassroomID {
			continue
		}
		if filter.TeacherID != "" && e.TeacherID != filter.TeacherID {
			continue
		}
		d := model.EntryDetail{Entry: e}
		for _, t := range f.teachers {
			if t.ID == e.TeacherID {
				d.Teacher = t
			}
		}
		for _, s := range f.subjects {
			if s.ID == e.SubjectID {
				d.Subject = s
			}
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b model.EntryDetail) int {
		return cmp.Or(cmp.Compare(a.DayID, b.DayID), cmp.Compare(a.TimeSlotID, b.TimeSlotID), cmp.Compare(a.ClassroomID, b.ClassroomID))
	})
	return out, nil
}

func (f *fakeQueries) CreateEntry(_ context.Context, e model.Entry) (model.Entry, error) {
	if f.writeErr != nil {
		return model.Entry{}, f.writeErr
	}
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	f.put(e)
	return e, nil
}

func (f *fakeQueries) UpdateEntry(_ context.Context, e model.Entry) (model.Entry, error) {
	if f.writeErr != nil {
		return model.Entry{}, f.writeErr
	}
	current, ok := f.entries[e.ID]
	if !ok {
		return model.Entry{}, pgx.ErrNoRows
	}
	e.CreatedAt = current.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	f.put(e)
	return e, nil
}

func (f *fakeQueries) MoveEntry(_ context.Context, id string, dayID, timeSlotID int) (model.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return model.Entry{}, pgx.ErrNoRows
	}
	e.DayID = dayID
	e.TimeSlotID = timeSlotID
	e.UpdatedAt = time.Now().UTC()
	f.put(e)
	return e, nil
}

func (f *fakeQueries) DeleteEntry(_ context.Context, id string) error {
	if _, ok := f.entries[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeQueries) DeleteTermEntries(_ context.Context, termID int) (int64, error) {
	var n int64
	for id, e := range f.entries {
		if e.TermID == termID {
			delete(f.entries, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeQueries) InsertEntries(_ context.Context, entries []model.Entry) (int64, error) {
	for _, e := range entries {
		f.put(e)
	}
	return int64(len(entries)), nil
}

func (f *fakeQueries) ListDays(context.Context) ([]model.Day, error) { return f.days, nil }

func (f *fakeQueries) ListTimeSlots(context.Context) ([]model.TimeSlot, error) { return f.slots, nil }

func (f *fakeQueries) GetTimeSlot(_ context.Context, id int) (model.TimeSlot, error) {
	for _, s := range f.slots {
		if s.ID == id {
			return s, nil
		}
	}
	return model.TimeSlot{}, pgx.ErrNoRows
}

func (f *fakeQueries) ListClassrooms(context.Context) ([]model.Classroom, error) {
	return f.classrooms, nil
}

func (f *fakeQueries) ListSubjects(context.Context) ([]model.Subject, error) { return f.subjects, nil }

func (f *fakeQueries) ListTeachers(context.Context) ([]model.Teacher, error) { return f.teachers, nil }

func (f *fakeQueries) ListSpecialEvents(context.Context) ([]model.SpecialEvent, error) {
	return f.events, nil
}

func (f *fakeQueries) ListSpecialEventsAtSlot(_ context.Context, dayID, timeSlotID int) ([]model.SpecialEvent, error) {
	var out []model.SpecialEvent
	for _, ev := range f.events {
		if ev.DayID == dayID && ev.TimeSlotID == timeSlotID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeQueries) ListTerms(context.Context) ([]model.AcademicTerm, error) { return f.terms, nil }

func (f *fakeQueries) GetTerm(_ context.Context, id int) (model.AcademicTerm, error) {
	for _, t := range f.terms {
		if t.ID == id {
			return t, nil
		}
	}
	return model.AcademicTerm{}, pgx.ErrNoRows
}

func (f *fakeQueries) GetCurrentTerm(context.Context) (model.AcademicTerm, error) {
	for _, t := range f.terms {
		if t.IsCurrent {
			return t, nil
		}
	}
	return model.AcademicTerm{}, pgx.ErrNoRows
}

type published struct {
	eventType string
	termID    int
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, termID int, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType: eventType, termID: termID, payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}
