package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"srik/services/timetable/internal/model"
)

func sampleTimetable() Timetable {
	return Timetable{
		Term: model.AcademicTerm{ID: 1, Name: "Penggal 1 2026"},
		Days: []model.Day{
			{ID: 1, Name: "Ahad", DayOrder: 1},
			{ID: 2, Name: "Isnin", DayOrder: 2},
		},
		TimeSlots: []model.TimeSlot{
			{ID: 1, SlotNumber: 1, StartTime: "07:30:00", EndTime: "08:05:00"},
			{ID: 2, SlotNumber: 2, StartTime: "08:05:00", EndTime: "08:40:00"},
			{ID: 5, SlotNumber: 5, StartTime: "09:50:00", EndTime: "10:25:00", IsRecess: true},
		},
		Classrooms: []model.Classroom{
			{ID: 1, Name: "1 Al-Junaidi"},
			{ID: 8, Name: "5 Ma'wa"},
		},
		SpecialEvents: []model.SpecialEvent{
			{ID: 1, Name: "Perhimpunan", DayID: 1, TimeSlotID: 1},
		},
		Entries: []model.EntryDetail{
			{
				Entry:   model.Entry{ID: "e1", ClassroomID: 1, DayID: 2, TimeSlotID: 2, SubjectID: 3},
				Teacher: model.Teacher{Name: "Mohd Farid Uzairi"},
				Subject: model.Subject{Code: "MT"},
			},
		},
	}
}

func TestBuildLaysOutClassroomSheets(t *testing.T) {
	book, err := Build(sampleTimetable())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"1 Al-Junaidi", "5 Ma'wa"}, f.GetSheetList())

	value := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "1 Al-Junaidi (Penggal 1 2026)", value("1 Al-Junaidi", "A1"))
	assert.Equal(t, "Ahad", value("1 Al-Junaidi", "C2"))
	assert.Equal(t, "Isnin", value("1 Al-Junaidi", "D2"))
	assert.Equal(t, "07:30 - 08:05", value("1 Al-Junaidi", "B3"))
	assert.Equal(t, "Perhimpunan", value("1 Al-Junaidi", "C3"))
	assert.Equal(t, "MT\nMohd Farid Uzairi", value("1 Al-Junaidi", "D4"))
	assert.Equal(t, "Rehat", value("1 Al-Junaidi", "D5"))
	assert.Equal(t, "", value("5 Ma'wa", "D4"))
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "4 Al-Busiri", SheetName("4 Al-Busiri", used))
	assert.Equal(t, "4 al-busiri 2", SheetName("4 al-busiri", used))
	assert.Equal(t, "Kelas-A", SheetName("Kelas/A", used))
	assert.Equal(t, "Kelas", SheetName("''", used))

	long := SheetName("Kelas Tahun Enam Na'im Yang Sangat Panjang", used)
	assert.LessOrEqual(t, len([]rune(long)), 31)
}
