package scheduling

import (
	"errors"

	"srik/services/timetable/internal/model"
)

const (
	ReasonMissingFields      = "missing_fields"
	ReasonUnknownTeacher     = "unknown_teacher"
	ReasonUnknownSubject     = "unknown_subject"
	ReasonUnknownClassroom   = "unknown_classroom"
	ReasonUnknownDay         = "unknown_day"
	ReasonUnknownTimeSlot    = "unknown_time_slot"
	ReasonUnqualifiedTeacher = "unqualified_teacher"
)

type Rejection struct {
	Index  int         `json:"index"`
	Entry  model.Entry `json:"entry"`
	Reason string      `json:"reason"`
}

// Validate filters candidate entries with the rules the generator follows.
// Candidates without a term are assigned in.TermID. Accepted entries are
// checked against in.Occupied and against each other in input order.
func Validate(in Input, candidates []model.Entry) ([]model.Entry, []Rejection) {
	teachers := make(map[string]model.Teacher, len(in.Teachers))
	for _, t := range in.Teachers {
		teachers[t.ID] = t
	}
	subjects := make(map[int]model.Subject, len(in.Subjects))
	for _, s := range in.Subjects {
		subjects[s.ID] = s
	}
	rooms := make(map[int]bool, len(in.Classrooms))
	for _, c := range in.Classrooms {
		rooms[c.ID] = true
	}
	days := make(map[int]bool, len(in.Days))
	for _, d := range in.Days {
		days[d.ID] = true
	}
	slots := make(map[int]model.TimeSlot, len(in.TimeSlots))
	for _, s := range in.TimeSlots {
		slots[s.ID] = s
	}

	occupied := make([]model.Entry, 0, len(in.Occupied)+len(candidates))
	occupied = append(occupied, in.Occupied...)

	var accepted []model.Entry
	var rejected []Rejection
	reject := func(i int, e model.Entry, reason string) {
		rejected = append(rejected, Rejection{Index: i, Entry: e, Reason: reason})
	}

	for i, e := range candidates {
		if e.TermID == 0 {
			e.TermID = in.TermID
		}
		if e.TeacherID == "" || e.SubjectID == 0 || e.ClassroomID == 0 || e.DayID == 0 || e.TimeSlotID == 0 {
			reject(i, e, ReasonMissingFields)
			continue
		}
		teacher, ok := teachers[e.TeacherID]
		if !ok {
			reject(i, e, ReasonUnknownTeacher)
			continue
		}
		subject, ok := subjects[e.SubjectID]
		if !ok {
			reject(i, e, ReasonUnknownSubject)
			continue
		}
		if !rooms[e.ClassroomID] {
			reject(i, e, ReasonUnknownClassroom)
			continue
		}
		if !days[e.DayID] {
			reject(i, e, ReasonUnknownDay)
			continue
		}
		slot, ok := slots[e.TimeSlotID]
		if !ok {
			reject(i, e, ReasonUnknownTimeSlot)
			continue
		}
		if !teacher.Teaches(subject.Code) {
			reject(i, e, ReasonUnqualifiedTeacher)
			continue
		}
		if err := CheckBreak(slot); err != nil {
			reject(i, e, string(BreakSlot))
			continue
		}
		if err := Check(e, occupied, in.SpecialEvents); err != nil {
			var conflict *Conflict
			if errors.As(err, &conflict) {
				reject(i, e, string(conflict.Kind))
			} else {
				reject(i, e, err.Error())
			}
			continue
		}
		occupied = append(occupied, e)
		accepted = append(accepted, e)
	}
	return accepted, rejected
}
