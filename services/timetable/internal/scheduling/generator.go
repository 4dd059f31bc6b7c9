package scheduling

import (
	"cmp"
	"slices"

	"srik/services/timetable/internal/model"
)

// Input is everything the generator and validator know about a term.
type Input struct {
	TermID        int
	Teachers      []model.Teacher
	Subjects      []model.Subject
	Classrooms    []model.Classroom
	Days          []model.Day
	TimeSlots     []model.TimeSlot
	SpecialEvents []model.SpecialEvent
	// Occupied holds entries already stored for the term.
	Occupied []model.Entry
}

type Options struct {
	// FillFreeSlots places extra sessions in classroom slots left empty once
	// every subject has been placed.
	FillFreeSlots bool
	// MaxDailyPerSubject caps sessions of one subject per classroom per day.
	// Zero disables the cap.
	MaxDailyPerSubject int
}

func DefaultOptions() Options {
	return Options{FillFreeSlots: true, MaxDailyPerSubject: 2}
}

type cell struct {
	dayID  int
	slotID int
}

type teacherCell struct {
	teacherID string
	cell
}

type roomCell struct {
	classroomID int
	cell
}

type roomSubjectDay struct {
	classroomID int
	subjectID   int
	dayID       int
}

type roomSubject struct {
	classroomID int
	subjectID   int
}

type grid struct {
	opts        Options
	termID      int
	teacherBusy map[teacherCell]bool
	roomBusy    map[roomCell]bool
	load        map[string]int
	daily       map[roomSubjectDay]int
	perSubject  map[roomSubject]int
	qualified   map[int][]model.Teacher
	placed      []model.Entry
}

// Generate builds a timetable for in.TermID. The result is deterministic for a
// given input: every classroom first receives one session of each subject some
// teacher can take, then free slots are optionally filled with the subjects the
// classroom has seen least. Teachers are picked least-loaded first.
func Generate(in Input, opts Options) []model.Entry {
	cells := openCells(in)
	if len(cells) == 0 {
		return nil
	}

	subjects := slices.Clone(in.Subjects)
	slices.SortFunc(subjects, func(a, b model.Subject) int { return cmp.Compare(a.ID, b.ID) })
	rooms := slices.Clone(in.Classrooms)
	slices.SortFunc(rooms, func(a, b model.Classroom) int { return cmp.Compare(a.ID, b.ID) })

	g := newGrid(in, opts)

	for ri, room := range rooms {
		for si, subject := range subjects {
			if len(g.qualified[subject.ID]) == 0 {
				continue
			}
			start := (si*len(cells)/len(subjects) + ri) % len(cells)
			for i := range cells {
				c := cells[(start+i)%len(cells)]
				if g.tryPlace(room.ID, subject.ID, c) {
					break
				}
			}
		}
	}

	if opts.FillFreeSlots {
		for _, room := range rooms {
			for _, c := range cells {
				if g.roomBusy[roomCell{room.ID, c}] {
					continue
				}
				byUse := slices.Clone(subjects)
				slices.SortStableFunc(byUse, func(a, b model.Subject) int {
					return cmp.Compare(g.perSubject[roomSubject{room.ID, a.ID}], g.perSubject[roomSubject{room.ID, b.ID}])
				})
				for _, subject := range byUse {
					if g.tryPlace(room.ID, subject.ID, c) {
						break
					}
				}
			}
		}
	}

	return g.placed
}

func newGrid(in Input, opts Options) *grid {
	g := &grid{
		opts:        opts,
		termID:      in.TermID,
		teacherBusy: make(map[teacherCell]bool),
		roomBusy:    make(map[roomCell]bool),
		load:        make(map[string]int),
		daily:       make(map[roomSubjectDay]int),
		perSubject:  make(map[roomSubject]int),
		qualified:   make(map[int][]model.Teacher),
	}
	teachers := slices.Clone(in.Teachers)
	slices.SortFunc(teachers, func(a, b model.Teacher) int { return cmp.Compare(a.ID, b.ID) })
	for _, s := range in.Subjects {
		for _, t := range teachers {
			if t.Teaches(s.Code) {
				g.qualified[s.ID] = append(g.qualified[s.ID], t)
			}
		}
	}
	for _, e := range in.Occupied {
		if e.TermID != in.TermID {
			continue
		}
		g.mark(e)
	}
	return g
}

func (g *grid) mark(e model.Entry) {
	c := cell{e.DayID, e.TimeSlotID}
	g.teacherBusy[teacherCell{e.TeacherID, c}] = true
	g.roomBusy[roomCell{e.ClassroomID, c}] = true
	g.load[e.TeacherID]++
	g.daily[roomSubjectDay{e.ClassroomID, e.SubjectID, e.DayID}]++
	g.perSubject[roomSubject{e.ClassroomID, e.SubjectID}]++
}

func (g *grid) tryPlace(classroomID, subjectID int, c cell) bool {
	if g.roomBusy[roomCell{classroomID, c}] {
		return false
	}
	if g.opts.MaxDailyPerSubject > 0 && g.daily[roomSubjectDay{classroomID, subjectID, c.dayID}] >= g.opts.MaxDailyPerSubject {
		return false
	}
	var pick *model.Teacher
	for i, t := range g.qualified[subjectID] {
		if g.teacherBusy[teacherCell{t.ID, c}] {
			continue
		}
		if pick == nil || g.load[t.ID] < g.load[pick.ID] {
			pick = &g.qualified[subjectID][i]
		}
	}
	if pick == nil {
		return false
	}
	e := model.Entry{
		TeacherID:   pick.ID,
		SubjectID:   subjectID,
		ClassroomID: classroomID,
		DayID:       c.dayID,
		TimeSlotID:  c.slotID,
		TermID:      g.termID,
	}
	g.mark(e)
	g.placed = append(g.placed, e)
	return true
}

// openCells lists teachable, unreserved (day, slot) pairs in day then slot order.
func openCells(in Input) []cell {
	days := slices.Clone(in.Days)
	slices.SortFunc(days, func(a, b model.Day) int { return cmp.Compare(a.DayOrder, b.DayOrder) })
	slots := slices.Clone(in.TimeSlots)
	slices.SortFunc(slots, func(a, b model.TimeSlot) int { return cmp.Compare(a.SlotNumber, b.SlotNumber) })

	reserved := make(map[cell]bool, len(in.SpecialEvents))
	for _, ev := range in.SpecialEvents {
		reserved[cell{ev.DayID, ev.TimeSlotID}] = true
	}

	var cells []cell
	for _, d := range days {
		for _, s := range slots {
			c := cell{d.ID, s.ID}
			if !s.Teachable() || reserved[c] {
				continue
			}
			cells = append(cells, c)
		}
	}
	return cells
}
