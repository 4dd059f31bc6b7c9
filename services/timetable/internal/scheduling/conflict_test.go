package scheduling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srik/services/timetable/internal/model"
)

func TestCheck(t *testing.T) {
	events := schoolInput().SpecialEvents
	existing := []model.Entry{
		{ID: "e1", TeacherID: "t-a", SubjectID: 1, ClassroomID: 1, DayID: 2, TimeSlotID: 3, TermID: 1},
		{ID: "e2", TeacherID: "t-b", SubjectID: 3, ClassroomID: 2, DayID: 2, TimeSlotID: 3, TermID: 1},
	}

	tests := []struct {
		name  string
		entry model.Entry
		kind  ConflictKind
		id    string
	}{
		{
			name:  "teacher busy",
			entry: model.Entry{TeacherID: "t-a", ClassroomID: 3, DayID: 2, TimeSlotID: 3, TermID: 1},
			kind:  TeacherBusy,
			id:    "e1",
		},
		{
			name:  "teacher reported before classroom",
			entry: model.Entry{TeacherID: "t-a", ClassroomID: 2, DayID: 2, TimeSlotID: 3, TermID: 1},
			kind:  TeacherBusy,
			id:    "e1",
		},
		{
			name:  "classroom busy",
			entry: model.Entry{TeacherID: "t-c", ClassroomID: 2, DayID: 2, TimeSlotID: 3, TermID: 1},
			kind:  ClassroomBusy,
			id:    "e2",
		},
		{
			name:  "special event",
			entry: model.Entry{TeacherID: "t-c", ClassroomID: 3, DayID: ahad, TimeSlotID: 1, TermID: 1},
			kind:  SlotReserved,
		},
		{
			name:  "special event applies to every term",
			entry: model.Entry{TeacherID: "t-c", ClassroomID: 3, DayID: khamis, TimeSlotID: 1, TermID: 9},
			kind:  SlotReserved,
		},
		{
			name:  "other term is free",
			entry: model.Entry{TeacherID: "t-a", ClassroomID: 1, DayID: 2, TimeSlotID: 3, TermID: 2},
		},
		{
			name:  "entry ignores itself",
			entry: model.Entry{ID: "e1", TeacherID: "t-a", ClassroomID: 1, DayID: 2, TimeSlotID: 3, TermID: 1},
		},
		{
			name:  "free cell",
			entry: model.Entry{TeacherID: "t-a", ClassroomID: 1, DayID: 2, TimeSlotID: 4, TermID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.entry, existing, events)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			var conflict *Conflict
			require.True(t, errors.As(err, &conflict), "expected conflict, got %v", err)
			assert.Equal(t, tt.kind, conflict.Kind)
			assert.Equal(t, tt.id, conflict.EntryID)
		})
	}
}

func TestConflictMessageNamesEvent(t *testing.T) {
	err := Check(model.Entry{TeacherID: "t-a", ClassroomID: 1, DayID: khamis, TimeSlotID: 1}, nil, schoolInput().SpecialEvents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bacaan Yasin")
}

func TestCheckBreak(t *testing.T) {
	assert.NoError(t, CheckBreak(model.TimeSlot{SlotNumber: 1}))

	var conflict *Conflict
	require.ErrorAs(t, CheckBreak(model.TimeSlot{SlotNumber: recess, IsRecess: true}), &conflict)
	assert.Equal(t, BreakSlot, conflict.Kind)
	assert.Error(t, CheckBreak(model.TimeSlot{SlotNumber: prayer, IsPrayer: true}))
}
