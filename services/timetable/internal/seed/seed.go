// Package seed loads the school's reference data: days, time slots,
// classrooms, subjects, teachers, special events and a current term.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"srik/services/timetable/internal/model"
)

//go:embed school.yaml
var defaultDocument []byte

type Document struct {
	Days          []model.Day       `yaml:"days"`
	TimeSlots     []model.TimeSlot  `yaml:"time_slots"`
	Classrooms    []model.Classroom `yaml:"classrooms"`
	Subjects      []model.Subject   `yaml:"subjects"`
	Teachers      []model.Teacher   `yaml:"teachers"`
	SpecialEvents []Event           `yaml:"special_events"`
	Term          TermTemplate      `yaml:"term"`
}

type Event struct {
	Name      string `yaml:"name"`
	Day       string `yaml:"day"`
	Slots     []int  `yaml:"slots"`
	Recurring bool   `yaml:"recurring"`
}

// TermTemplate describes the term created when none is current. Start and
// End are MM-DD within the seeding year.
type TermTemplate struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type Store interface {
	UpsertDay(ctx context.Context, d model.Day) error
	UpsertTimeSlot(ctx context.Context, s model.TimeSlot) error
	UpsertClassroom(ctx context.Context, c model.Classroom) error
	UpsertSubject(ctx context.Context, s model.Subject) error
	InsertTeacher(ctx context.Context, t model.Teacher) (bool, error)
	UpsertSpecialEvent(ctx context.Context, name, dayName string, slotNumber int, recurring bool) error
	HasCurrentTerm(ctx context.Context) (bool, error)
	CreateTerm(ctx context.Context, t model.AcademicTerm) (model.AcademicTerm, error)
}

type Result struct {
	Days          int
	TimeSlots     int
	Classrooms    int
	Subjects      int
	TeachersAdded int
	SpecialEvents int
	Term          *model.AcademicTerm
}

// Default returns the document built into the binary.
func Default() (Document, error) {
	return Parse(defaultDocument)
}

func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse seed document: %w", err)
	}
	if err := doc.check(); err != nil {
		return doc, err
	}
	return doc, nil
}

func (d Document) check() error {
	days := make(map[string]bool, len(d.Days))
	for _, day := range d.Days {
		if day.Name == "" || day.DayOrder <= 0 {
			return fmt.Errorf("seed: day %q needs a name and a positive day_order", day.Name)
		}
		days[day.Name] = true
	}
	slots := make(map[int]bool, len(d.TimeSlots))
	for _, s := range d.TimeSlots {
		if s.SlotNumber <= 0 || s.StartTime == "" || s.EndTime == "" {
			return fmt.Errorf("seed: time slot %d needs a number and times", s.SlotNumber)
		}
		slots[s.SlotNumber] = true
	}
	codes := make(map[string]bool, len(d.Subjects))
	for _, s := range d.Subjects {
		if s.Code == "" {
			return fmt.Errorf("seed: subject %q has no code", s.Name)
		}
		if codes[s.Code] {
			return fmt.Errorf("seed: duplicate subject code %s", s.Code)
		}
		codes[s.Code] = true
	}
	for _, t := range d.Teachers {
		if t.Email == "" {
			return fmt.Errorf("seed: teacher %q has no email", t.Name)
		}
		for _, code := range t.Subjects {
			if !codes[code] {
				return fmt.Errorf("seed: teacher %s teaches unknown subject %s", t.Email, code)
			}
		}
	}
	for _, ev := range d.SpecialEvents {
		if !days[ev.Day] {
			return fmt.Errorf("seed: event %q on unknown day %s", ev.Name, ev.Day)
		}
		for _, n := range ev.Slots {
			if !slots[n] {
				return fmt.Errorf("seed: event %q on unknown slot %d", ev.Name, n)
			}
		}
	}
	if _, err := d.Term.build(2000); err != nil {
		return err
	}
	return nil
}

func (t TermTemplate) build(year int) (model.AcademicTerm, error) {
	start, err := time.Parse("2006-01-02", fmt.Sprintf("%d-%s", year, t.Start))
	if err != nil {
		return model.AcademicTerm{}, fmt.Errorf("seed: term start %q: %w", t.Start, err)
	}
	end, err := time.Parse("2006-01-02", fmt.Sprintf("%d-%s", year, t.End))
	if err != nil {
		return model.AcademicTerm{}, fmt.Errorf("seed: term end %q: %w", t.End, err)
	}
	if end.Before(start) {
		return model.AcademicTerm{}, fmt.Errorf("seed: term ends before it starts")
	}
	return model.AcademicTerm{
		Name:      fmt.Sprintf("%s %d", t.Name, year),
		StartDate: start,
		EndDate:   end,
		IsCurrent: true,
	}, nil
}

// Apply upserts the document. Teachers whose email already exists are left
// untouched, and a term is only created when no term is current.
func Apply(ctx context.Context, store Store, doc Document, now time.Time, logger *zap.Logger) (Result, error) {
	var res Result
	for _, d := range doc.Days {
		if err := store.UpsertDay(ctx, d); err != nil {
			return res, fmt.Errorf("seed day %s: %w", d.Name, err)
		}
		res.Days++
	}
	for _, s := range doc.TimeSlots {
		if err := store.UpsertTimeSlot(ctx, s); err != nil {
			return res, fmt.Errorf("seed time slot %d: %w", s.SlotNumber, err)
		}
		res.TimeSlots++
	}
	for _, c := range doc.Classrooms {
		if err := store.UpsertClassroom(ctx, c); err != nil {
			return res, fmt.Errorf("seed classroom %s: %w", c.Name, err)
		}
		res.Classrooms++
	}
	for _, s := range doc.Subjects {
		if err := store.UpsertSubject(ctx, s); err != nil {
			return res, fmt.Errorf("seed subject %s: %w", s.Code, err)
		}
		res.Subjects++
	}
	for _, t := range doc.Teachers {
		t.ID = uuid.NewString()
		if t.Subjects == nil {
			t.Subjects = []string{}
		}
		if len(t.Roles) == 0 {
			t.Roles = []string{"teacher"}
		}
		added, err := store.InsertTeacher(ctx, t)
		if err != nil {
			return res, fmt.Errorf("seed teacher %s: %w", t.Email, err)
		}
		if added {
			res.TeachersAdded++
		}
	}
	for _, ev := range doc.SpecialEvents {
		for _, n := range ev.Slots {
			if err := store.UpsertSpecialEvent(ctx, ev.Name, ev.Day, n, ev.Recurring); err != nil {
				return res, fmt.Errorf("seed event %s: %w", ev.Name, err)
			}
			res.SpecialEvents++
		}
	}

	hasCurrent, err := store.HasCurrentTerm(ctx)
	if err != nil {
		return res, fmt.Errorf("seed term: %w", err)
	}
	if !hasCurrent {
		tmpl, err := doc.Term.build(now.Year())
		if err != nil {
			return res, err
		}
		term, err := store.CreateTerm(ctx, tmpl)
		if err != nil {
			return res, fmt.Errorf("seed term: %w", err)
		}
		res.Term = &term
	}

	logger.Info("seed applied",
		zap.Int("days", res.Days),
		zap.Int("time_slots", res.TimeSlots),
		zap.Int("classrooms", res.Classrooms),
		zap.Int("subjects", res.Subjects),
		zap.Int("teachers_added", res.TeachersAdded),
		zap.Int("special_events", res.SpecialEvents),
		zap.Bool("term_created", res.Term != nil),
	)
	return res, nil
}
