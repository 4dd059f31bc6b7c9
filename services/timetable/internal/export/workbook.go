// Package export renders a term's timetable as an XLSX workbook with one
// sheet per classroom.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"srik/services/timetable/internal/model"
)

const (
	recessLabel = "Rehat"
	prayerLabel = "Solat"
)

type Timetable struct {
	Term          model.AcademicTerm
	Days          []model.Day
	TimeSlots     []model.TimeSlot
	Classrooms    []model.Classroom
	SpecialEvents []model.SpecialEvent
	Entries       []model.EntryDetail
}

type cellKey struct {
	dayID  int
	slotID int
}

// Build lays out rows as time slots and columns as days. Days and slots are
// expected in display order.
func Build(t Timetable) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}

	events := make(map[cellKey]string, len(t.SpecialEvents))
	for _, ev := range t.SpecialEvents {
		events[cellKey{ev.DayID, ev.TimeSlotID}] = ev.Name
	}
	byRoom := make(map[int]map[cellKey]model.EntryDetail)
	for _, e := range t.Entries {
		if byRoom[e.ClassroomID] == nil {
			byRoom[e.ClassroomID] = make(map[cellKey]model.EntryDetail)
		}
		byRoom[e.ClassroomID][cellKey{e.DayID, e.TimeSlotID}] = e
	}

	used := make(map[string]bool)
	for i, room := range t.Classrooms {
		name := SheetName(room.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}

		if err := writeHeader(f, name, t.Term, room, t.Days, bold); err != nil {
			return nil, err
		}
		for r, slot := range t.TimeSlots {
			row := r + 3
			values := []any{slot.SlotNumber, slotRange(slot)}
			for _, day := range t.Days {
				values = append(values, cellText(slot, events[cellKey{day.ID, slot.ID}], byRoom[room.ID], cellKey{day.ID, slot.ID}))
			}
			start, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(name, start, &values); err != nil {
				return nil, err
			}
			end, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(name, start, end, wrap); err != nil {
				return nil, err
			}
		}
		if len(t.Days) > 0 {
			lastCol, _ := excelize.ColumnNumberToName(len(t.Days) + 2)
			if err := f.SetColWidth(name, "C", lastCol, 22); err != nil {
				return nil, err
			}
		}
		if err := f.SetColWidth(name, "B", "B", 14); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, term model.AcademicTerm, room model.Classroom, days []model.Day, style int) error {
	title := room.Name
	if term.Name != "" {
		title = fmt.Sprintf("%s (%s)", room.Name, term.Name)
	}
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	header := []any{"Slot", "Masa"}
	for _, d := range days {
		header = append(header, d.Name)
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(len(header), 2)
	if err := f.SetCellStyle(sheet, "A1", end, style); err != nil {
		return err
	}
	return nil
}

func cellText(slot model.TimeSlot, event string, entries map[cellKey]model.EntryDetail, key cellKey) string {
	switch {
	case slot.IsRecess:
		return recessLabel
	case slot.IsPrayer:
		return prayerLabel
	case event != "":
		return event
	}
	e, ok := entries[key]
	if !ok {
		return ""
	}
	if e.Teacher.Name == "" {
		return e.Subject.Code
	}
	return e.Subject.Code + "\n" + e.Teacher.Name
}

func slotRange(slot model.TimeSlot) string {
	return shortTime(slot.StartTime) + " - " + shortTime(slot.EndTime)
}

// shortTime trims seconds from HH:MM:SS.
func shortTime(v string) string {
	if len(v) == len("15:04:05") && strings.Count(v, ":") == 2 {
		return v[:5]
	}
	return v
}

// SheetName makes a classroom name a valid, unique sheet name.
func SheetName(name string, used map[string]bool) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.Trim(name, "' "))
	if cleaned == "" {
		cleaned = "Kelas"
	}
	if runes := []rune(cleaned); len(runes) > 31 {
		cleaned = string(runes[:31])
	}
	candidate := cleaned
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := " " + strconv.Itoa(n)
		runes := []rune(cleaned)
		if len(runes)+len(suffix) > 31 {
			runes = runes[:31-len(suffix)]
		}
		candidate = string(runes) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
