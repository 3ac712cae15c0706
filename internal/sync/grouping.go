package sync

import "time"

// DaySection is one calendar day's worth of messages under its label.
type DaySection struct {
	Label    string
	Messages []Message
}

// DayLabel renders the separator label for a timestamp relative to now,
// using local calendar-day boundaries: "Today", "Yesterday", the
// weekday name within the last week, otherwise a short date (with the
// year when it differs from the current one).
func DayLabel(ts, now time.Time) string {
	day := func(t time.Time) time.Time {
		y, m, d := t.Local().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	}
	diff := int(day(now).Sub(day(ts)).Hours() / 24)

	switch {
	case diff <= 0:
		return "Today"
	case diff == 1:
		return "Yesterday"
	case diff < 7:
		return ts.Local().Weekday().String()
	}
	if ts.Local().Year() != now.Local().Year() {
		return ts.Local().Format("Jan 2, 2006")
	}
	return ts.Local().Format("Jan 2")
}

// GroupByDay projects a message list into day sections. It carries no
// state of its own and is recomputed from a snapshot whenever the list
// changes.
func GroupByDay(msgs []Message, now time.Time) []DaySection {
	var sections []DaySection
	for _, m := range msgs {
		label := DayLabel(m.Timestamp, now)
		if n := len(sections); n > 0 && sections[n-1].Label == label {
			sections[n-1].Messages = append(sections[n-1].Messages, m)
			continue
		}
		sections = append(sections, DaySection{Label: label, Messages: []Message{m}})
	}
	return sections
}
