package scheduling

import "srik/services/timetable/internal/model"

const (
	ahad   = 1
	khamis = 5
	recess = 5
	prayer = 11
)

func schoolInput() Input {
	in := Input{
		TermID: 1,
		Teachers: []model.Teacher{
			{ID: "t-a", Name: "Aminah", Subjects: []string{"BM", "BI"}},
			{ID: "t-b", Name: "Badrul", Subjects: []string{"MT", "SN"}},
			{ID: "t-c", Name: "Chempaka", Subjects: []string{"BM", "MT"}},
		},
		Subjects: []model.Subject{
			{ID: 1, Name: "Bahasa Melayu", Code: "BM"},
			{ID: 2, Name: "Bahasa Inggeris", Code: "BI"},
			{ID: 3, Name: "Matematik", Code: "MT"},
			{ID: 4, Name: "Sains", Code: "SN"},
			{ID: 5, Name: "Al-Quran", Code: "AQ"},
		},
		Classrooms: []model.Classroom{
			{ID: 1, Name: "1 Al-Junaidi"},
			{ID: 2, Name: "2 Al-Junaidi"},
			{ID: 3, Name: "2 Al-Busiri"},
		},
		Days: []model.Day{
			{ID: 5, Name: "Khamis", DayOrder: 5},
			{ID: 1, Name: "Ahad", DayOrder: 1},
			{ID: 2, Name: "Isnin", DayOrder: 2},
			{ID: 3, Name: "Selasa", DayOrder: 3},
			{ID: 4, Name: "Rabu", DayOrder: 4},
		},
		SpecialEvents: []model.SpecialEvent{
			{ID: 1, Name: "Perhimpunan", DayID: ahad, TimeSlotID: 1},
			{ID: 2, Name: "Perhimpunan", DayID: ahad, TimeSlotID: 2},
			{ID: 3, Name: "Bacaan Yasin", DayID: khamis, TimeSlotID: 1},
		},
	}
	for n := 1; n <= 12; n++ {
		in.TimeSlots = append(in.TimeSlots, model.TimeSlot{
			ID:         n,
			SlotNumber: n,
			IsRecess:   n == recess,
			IsPrayer:   n == prayer,
		})
	}
	return in
}
