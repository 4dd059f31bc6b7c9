package model

import (
	"slices"
	"time"
)

type Day struct {
	ID       int    `json:"id" yaml:"-"`
	Name     string `json:"name" yaml:"name"`
	DayOrder int    `json:"day_order" yaml:"day_order"`
}

type TimeSlot struct {
	ID         int    `json:"id" yaml:"-"`
	SlotNumber int    `json:"slot_number" yaml:"slot_number"`
	StartTime  string `json:"start_time" yaml:"start_time"`
	EndTime    string `json:"end_time" yaml:"end_time"`
	IsRecess   bool   `json:"is_recess" yaml:"is_recess"`
	IsPrayer   bool   `json:"is_prayer" yaml:"is_prayer"`
}

// Teachable reports whether lessons may be placed in the slot.
func (t TimeSlot) Teachable() bool {
	return !t.IsRecess && !t.IsPrayer
}

type Classroom struct {
	ID   int    `json:"id" yaml:"-"`
	Name string `json:"name" yaml:"name"`
}

type Subject struct {
	ID   int    `json:"id" yaml:"-"`
	Name string `json:"name" yaml:"name"`
	Code string `json:"code" yaml:"code"`
}

type Teacher struct {
	ID       string   `json:"id" yaml:"-"`
	Name     string   `json:"name" yaml:"name"`
	Email    string   `json:"email" yaml:"email"`
	Subjects []string `json:"subjects" yaml:"subjects"`
	Roles    []string `json:"role" yaml:"roles"`
}

// Teaches reports whether the subject code is one of the teacher's subjects.
func (t Teacher) Teaches(code string) bool {
	return slices.Contains(t.Subjects, code)
}

type AcademicTerm struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
}

type SpecialEvent struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	DayID      int    `json:"day_id"`
	TimeSlotID int    `json:"time_slot_id"`
	Recurring  bool   `json:"recurring"`
}

type Entry struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	SubjectID   int       `json:"subject_id"`
	ClassroomID int       `json:"classroom_id"`
	DayID       int       `json:"day_id"`
	TimeSlotID  int       `json:"time_slot_id"`
	TermID      int       `json:"term_id"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type EntryDetail struct {
	Entry
	Teacher   Teacher   `json:"teacher"`
	Subject   Subject   `json:"subject"`
	Classroom Classroom `json:"classroom"`
	Day       Day       `json:"day"`
	TimeSlot  TimeSlot  `json:"time_slot"`
}

type EntryFilter struct {
	TermID      int
	ClassroomID int
	TeacherID   string
}
