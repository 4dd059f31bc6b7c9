// Package scheduling holds the timetable placement rules shared by manual
// edits, the generator and bulk imports.
package scheduling

import (
	"fmt"

	"srik/services/timetable/internal/model"
)

// Placement is an entry at a candidate position; its ID is empty for new entries.
type Placement = model.Entry

type ConflictKind string

const (
	TeacherBusy   ConflictKind = "teacher_busy"
	ClassroomBusy ConflictKind = "classroom_busy"
	SlotReserved  ConflictKind = "slot_reserved"
	BreakSlot     ConflictKind = "break_slot"
)

type Conflict struct {
	Kind      ConflictKind
	EntryID   string
	EventName string
}

func (c *Conflict) Error() string {
	switch c.Kind {
	case TeacherBusy:
		return "teacher already has a class at this time"
	case ClassroomBusy:
		return "classroom already has a teacher at this time"
	case SlotReserved:
		return fmt.Sprintf("time slot is reserved for %s", c.EventName)
	case BreakSlot:
		return "time slot is a recess or prayer break"
	default:
		return string(c.Kind)
	}
}

// Check reports the first rule a placement breaks against the entries and
// special events it shares a cell with. Teacher clashes are reported before
// classroom clashes, and both before reserved slots. The placement's own ID is
// ignored so updates can be checked against their previous position.
func Check(p Placement, occupied []model.Entry, events []model.SpecialEvent) error {
	for _, other := range occupied {
		if !sameCell(p, other) || (p.ID != "" && other.ID == p.ID) {
			continue
		}
		if other.TeacherID == p.TeacherID {
			return &Conflict{Kind: TeacherBusy, EntryID: other.ID}
		}
	}
	for _, other := range occupied {
		if !sameCell(p, other) || (p.ID != "" && other.ID == p.ID) {
			continue
		}
		if other.ClassroomID == p.ClassroomID {
			return &Conflict{Kind: ClassroomBusy, EntryID: other.ID}
		}
	}
	for _, event := range events {
		if event.DayID == p.DayID && event.TimeSlotID == p.TimeSlotID {
			return &Conflict{Kind: SlotReserved, EventName: event.Name}
		}
	}
	return nil
}

// CheckBreak rejects recess and prayer slots.
func CheckBreak(slot model.TimeSlot) error {
	if !slot.Teachable() {
		return &Conflict{Kind: BreakSlot}
	}
	return nil
}

func sameCell(a, b model.Entry) bool {
	return a.DayID == b.DayID && a.TimeSlotID == b.TimeSlotID && a.TermID == b.TermID
}
