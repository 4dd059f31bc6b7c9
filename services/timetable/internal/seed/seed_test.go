package seed

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"srik/services/timetable/internal/model"
)

type memoryStore struct {
	days       map[string]model.Day
	slots      map[int]model.TimeSlot
	classrooms map[string]bool
	subjects   map[string]model.Subject
	teachers   map[string]model.Teacher
	events     map[string]bool
	terms      []model.AcademicTerm
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		days:       map[string]model.Day{},
		slots:      map[int]model.TimeSlot{},
		classrooms: map[string]bool{},
		subjects:   map[string]model.Subject{},
		teachers:   map[string]model.Teacher{},
		events:     map[string]bool{},
	}
}

func (m *memoryStore) UpsertDay(_ context.Context, d model.Day) error {
	m.days[d.Name] = d
	return nil
}

func (m *memoryStore) UpsertTimeSlot(_ context.Context, s model.TimeSlot) error {
	m.slots[s.SlotNumber] = s
	return nil
}

func (m *memoryStore) UpsertClassroom(_ context.Context, c model.Classroom) error {
	m.classrooms[c.Name] = true
	return nil
}

func (m *memoryStore) UpsertSubject(_ context.Context, s model.Subject) error {
	m.subjects[s.Code] = s
	return nil
}

func (m *memoryStore) InsertTeacher(_ context.Context, t model.Teacher) (bool, error) {
	if _, ok := m.teachers[t.Email]; ok {
		return false, nil
	}
	m.teachers[t.Email] = t
	return true, nil
}

func (m *memoryStore) UpsertSpecialEvent(_ context.Context, name, dayName string, slotNumber int, _ bool) error {
	m.events[name+"/"+dayName+"/"+strconv.Itoa(slotNumber)] = true
	return nil
}

func (m *memoryStore) HasCurrentTerm(context.Context) (bool, error) {
	for _, t := range m.terms {
		if t.IsCurrent {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) CreateTerm(_ context.Context, t model.AcademicTerm) (model.AcademicTerm, error) {
	t.ID = len(m.terms) + 1
	m.terms = append(m.terms, t)
	return t, nil
}

func TestDefaultDocument(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)

	assert.Len(t, doc.Days, 5)
	assert.Len(t, doc.TimeSlots, 12)
	assert.Len(t, doc.Classrooms, 9)
	assert.Len(t, doc.Subjects, 19)
	assert.Len(t, doc.Teachers, 19)

	assert.True(t, doc.TimeSlots[4].IsRecess)
	assert.True(t, doc.TimeSlots[10].IsPrayer)
	assert.Equal(t, "07:30:00", doc.TimeSlots[0].StartTime)
	assert.Equal(t, "5 Ma'wa", doc.Classrooms[7].Name)
	assert.Equal(t, []string{"MT", "SN"}, doc.Teachers[2].Subjects)
	assert.Equal(t, []string{"admin"}, doc.Teachers[18].Roles)
}

func TestApplyIsIdempotent(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)
	store := newMemoryStore()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first, err := Apply(context.Background(), store, doc, now, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 19, first.TeachersAdded)
	assert.Equal(t, 3, first.SpecialEvents)
	require.NotNil(t, first.Term)
	assert.Equal(t, "Penggal 1 2026", first.Term.Name)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), first.Term.StartDate)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), first.Term.EndDate)
	assert.Equal(t, []string{"teacher"}, store.teachers["fadil@srikhairiah.edu"].Roles)

	second, err := Apply(context.Background(), store, doc, now, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, second.TeachersAdded)
	assert.Nil(t, second.Term)
	assert.Len(t, store.terms, 1)
	assert.Len(t, store.teachers, 19)
	assert.Len(t, store.days, 5)
	assert.Len(t, store.events, 3)
}

func TestParseRejectsBrokenDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown subject": `
subjects: [{code: BM, name: Bahasa Melayu}]
teachers: [{name: A, email: a@x, subjects: [MT]}]
term: {name: P, start: "01-01", end: "06-30"}`,
		"duplicate code": `
subjects: [{code: BM, name: A}, {code: BM, name: B}]
term: {name: P, start: "01-01", end: "06-30"}`,
		"event on unknown day": `
days: [{name: Ahad, day_order: 1}]
time_slots: [{slot_number: 1, start_time: "07:30:00", end_time: "08:05:00"}]
special_events: [{name: Perhimpunan, day: Sabtu, slots: [1]}]
term: {name: P, start: "01-01", end: "06-30"}`,
		"term backwards": `
term: {name: P, start: "06-30", end: "01-01"}`,
		"not yaml": `days: [`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
