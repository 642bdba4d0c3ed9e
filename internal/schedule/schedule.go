// Package schedule is the pure availability engine: slot grid generation,
// blocked-range expansion and the set arithmetic behind the booking form and
// the admin calendar. It has no store or HTTP dependencies.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SlotMinutes is the grid width. Every slot label is the start of a
// half-open [start, start+SlotMinutes) interval.
const SlotMinutes = 30

var (
	ErrInvalidDate  = errors.New("invalid date format")
	ErrInvalidTime  = errors.New("invalid time format")
	ErrInvalidRange = errors.New("start time must be before end time")
)

type TimeRange struct {
	Start string
	End   string
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse("15:04", timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// NormalizeSlot trims a raw stored time value and drops any seconds
// component, so "17:00:00 " and "17:00" compare equal against the grid.
func NormalizeSlot(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 5 && s[5] == ':' {
		s = s[:5]
	}
	return s
}

// IsGridAligned reports whether a clock value falls exactly on the
// SlotMinutes boundary.
func IsGridAligned(timeStr string) bool {
	minutes, err := ParseClockToMinutes(timeStr)
	if err != nil {
		return false
	}
	return minutes%SlotMinutes == 0
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}

// dayWindow is the only place operating hours live. Weekday evenings
// Monday through Thursday, full days Friday through Sunday.
func dayWindow(day time.Weekday) TimeRange {
	switch day {
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday:
		return TimeRange{Start: "16:00", End: "20:00"}
	default:
		return TimeRange{Start: "09:00", End: "20:00"}
	}
}

// GenerateSlots returns the ordered candidate slot labels for a date,
// stopping strictly before the window's end time.
func GenerateSlots(dateStr string, loc *time.Location) ([]string, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return nil, err
	}

	window := dayWindow(date.Weekday())
	return ExpandRange(window.Start, window.End)
}

// ExpandRange slices [start, end) into SlotMinutes steps and returns the
// grid-aligned start label of each step. A zero-width or inverted range
// expands to the empty set.
func ExpandRange(start, end string) ([]string, error) {
	startMin, err := ParseClockToMinutes(start)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClockToMinutes(end)
	if err != nil {
		return nil, err
	}

	slots := make([]string, 0)
	for cursor := startMin; cursor < endMin; cursor += SlotMinutes {
		slots = append(slots, MinutesToClock(cursor))
	}
	return slots, nil
}

// ValidateRange rejects ranges the expander would silently flatten:
// start not strictly before end, or either endpoint off the grid.
func ValidateRange(start, end string) error {
	startMin, err := ParseClockToMinutes(start)
	if err != nil {
		return err
	}
	endMin, err := ParseClockToMinutes(end)
	if err != nil {
		return err
	}
	if startMin%SlotMinutes != 0 || endMin%SlotMinutes != 0 {
		return ErrInvalidTime
	}
	if startMin >= endMin {
		return ErrInvalidRange
	}
	return nil
}

// Block is the expander's view of an admin-defined blocked range. A
// recurring block without a weekday selector or end date degrades to a
// single occurrence at its anchor date.
type Block struct {
	Date      string
	Start     string
	End       string
	Recurring bool
	DayOfWeek *int // 0 = Sunday ... 6 = Saturday
	EndDate   string
}

func (b Block) occursOn(date time.Time, dateStr string, loc *time.Location) bool {
	if !b.Recurring || b.DayOfWeek == nil || b.EndDate == "" {
		return b.Date == dateStr
	}
	if int(date.Weekday()) != *b.DayOfWeek {
		return false
	}
	anchor, err := ParseDate(b.Date, loc)
	if err != nil {
		return false
	}
	endDate, err := ParseDate(b.EndDate, loc)
	if err != nil {
		return false
	}
	return !date.Before(anchor) && !date.After(endDate)
}

// ExpandBlocks reproduces every block occurrence between from and to
// (inclusive) and returns the occupied slot set per date. Both the admin
// calendar indicator and the per-date availability check go through this
// one function.
func ExpandBlocks(blockList []Block, from, to string, loc *time.Location) (map[string]map[string]bool, error) {
	start, err := ParseDate(from, loc)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(to, loc)
	if err != nil {
		return nil, err
	}

	occupied := make(map[string]map[string]bool)
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		dateStr := date.Format("2006-01-02")
		for _, block := range blockList {
			if !block.occursOn(date, dateStr, loc) {
				continue
			}
			slots, err := ExpandRange(NormalizeSlot(block.Start), NormalizeSlot(block.End))
			if err != nil {
				return nil, err
			}
			if len(slots) == 0 {
				continue
			}
			if occupied[dateStr] == nil {
				occupied[dateStr] = make(map[string]bool)
			}
			for _, slot := range slots {
				occupied[dateStr][slot] = true
			}
		}
	}
	return occupied, nil
}

// Available filters the candidate grid down to slots present in neither
// occupied set, preserving grid order.
func Available(slots []string, booked, blocked map[string]bool) []string {
	filtered := make([]string, 0, len(slots))
	for _, s := range slots {
		if booked[s] || blocked[s] {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// OccupiedSet normalizes raw stored time values into a slot set.
func OccupiedSet(times []string) map[string]bool {
	set := make(map[string]bool, len(times))
	for _, t := range times {
		normalized := NormalizeSlot(t)
		if normalized == "" {
			continue
		}
		set[normalized] = true
	}
	return set
}

func FilterPastSlots(dateStr string, slots []string, loc *time.Location, now time.Time) ([]string, error) {
	filtered := make([]string, 0, len(slots))
	for _, s := range slots {
		past, err := IsSlotPast(dateStr, s, loc, now)
		if err != nil {
			return nil, err
		}
		if !past {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// IsSlotAllowed reports whether a time is one of the date's candidate
// grid slots.
func IsSlotAllowed(dateStr, timeStr string, loc *time.Location) (bool, error) {
	slots, err := GenerateSlots(dateStr, loc)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s == timeStr {
			return true, nil
		}
	}
	return false, nil
}
