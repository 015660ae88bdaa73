package planning

import "time"

// DaysPerWeek is the number of day buckets shown by the planner.
const DaysPerWeek = 7

var dayLabels = [DaysPerWeek]string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}

// WeekStart returns Monday 00:00 on or before ref, in ref's location.
func WeekStart(ref time.Time) time.Time {
	offset := (int(ref.Weekday()) + 6) % 7
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	return day.AddDate(0, 0, -offset)
}

// Week is a displayed planning week. Start is always a Monday.
type Week struct {
	Start time.Time
}

// WeekOf returns the week containing ref.
func WeekOf(ref time.Time) Week {
	return Week{Start: WeekStart(ref)}
}

// Next moves forward by exactly seven days.
func (w Week) Next() Week {
	return Week{Start: w.Start.AddDate(0, 0, DaysPerWeek)}
}

// Prev moves backward by exactly seven days.
func (w Week) Prev() Week {
	return Week{Start: w.Start.AddDate(0, 0, -DaysPerWeek)}
}

// Days returns the seven dates of the week, Monday first.
func (w Week) Days() []time.Time {
	days := make([]time.Time, DaysPerWeek)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

// DayLabel returns the French weekday name for t.
func DayLabel(t time.Time) string {
	return dayLabels[(int(t.Weekday())+6)%7]
}
