package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/geofacts/venues/internal/store"
)

// dayAliases maps every spelling the heuristic path recognizes to a
// canonical store.Weekday.
var dayAliases = map[string]store.Weekday{
	"mon": store.Monday, "monday": store.Monday,
	"tue": store.Tuesday, "tues": store.Tuesday, "tuesday": store.Tuesday,
	"wed": store.Wednesday, "wednesday": store.Wednesday,
	"thu": store.Thursday, "thur": store.Thursday, "thurs": store.Thursday, "thursday": store.Thursday,
	"fri": store.Friday, "friday": store.Friday,
	"sat": store.Saturday, "saturday": store.Saturday,
	"sun": store.Sunday, "sunday": store.Sunday,
}

var dayRangeRE = regexp.MustCompile(`(?i)\b(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:\s*-\s*(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday))?\b[:\s]*([0-9]{1,2}(?::[0-9]{2})?\s*(?:am|pm)?)\s*(?:-|to|–)\s*([0-9]{1,2}(?::[0-9]{2})?\s*(?:am|pm)?)`)

// ParseHoursText finds weekday-time spans in free text (e.g. "Mon-Fri
// 9am-5pm, Sat 10am-2pm") and normalizes them into a 24h Hours map
// (spec §4.6 structured-data and heuristic paths both normalize to this
// shape).
func ParseHoursText(text string) (store.Hours, bool) {
	matches := dayRangeRE.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, false
	}
	hours := store.Hours{}
	for _, m := range matches {
		startDay, ok1 := dayAliases[strings.ToLower(m[1])]
		if !ok1 {
			continue
		}
		endDay := startDay
		if m[2] != "" {
			if d, ok := dayAliases[strings.ToLower(m[2])]; ok {
				endDay = d
			}
		}
		open, ok2 := normalizeClockTime(m[3])
		close_, ok3 := normalizeClockTime(m[4])
		if !ok2 || !ok3 {
			continue
		}
		for _, d := range dayspan(startDay, endDay) {
			hours[d] = append(hours[d], store.TimeRange{Open: open, Close: close_})
		}
	}
	if len(hours) == 0 {
		return nil, false
	}
	return hours, true
}

func dayspan(start, end store.Weekday) []store.Weekday {
	startIdx, endIdx := -1, -1
	for i, d := range store.Weekdays {
		if d == start {
			startIdx = i
		}
		if d == end {
			endIdx = i
		}
	}
	if startIdx < 0 || endIdx < 0 {
		return nil
	}
	var out []store.Weekday
	if startIdx <= endIdx {
		out = append(out, store.Weekdays[startIdx:endIdx+1]...)
	} else {
		out = append(out, store.Weekdays[startIdx:]...)
		out = append(out, store.Weekdays[:endIdx+1]...)
	}
	return out
}

var clockRE = regexp.MustCompile(`(?i)^([0-9]{1,2})(?::([0-9]{2}))?\s*(am|pm)?$`)

func normalizeClockTime(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	m := clockRE.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 0 || hour > 23 {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute < 0 || minute > 59 {
			return "", false
		}
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// IntersectHours resolves a contradiction between two equally-ranked
// hours candidates by taking the more restrictive overlap per day (spec
// §4.6 "reported as the more restrictive value for hours (intersection)").
// A day present in only one side is dropped, since intersecting against
// "closed" is empty.
func IntersectHours(a, b store.Hours) store.Hours {
	out := store.Hours{}
	for _, day := range store.Weekdays {
		ra, oka := a[day]
		rb, okb := b[day]
		if !oka || !okb {
			continue
		}
		if ranges := intersectRanges(ra, rb); len(ranges) > 0 {
			out[day] = ranges
		}
	}
	return out
}

func intersectRanges(a, b []store.TimeRange) []store.TimeRange {
	var out []store.TimeRange
	for _, ra := range a {
		for _, rb := range b {
			if open, close_, ok := overlap(ra, rb); ok {
				out = append(out, store.TimeRange{Open: open, Close: close_})
			}
		}
	}
	return out
}

func overlap(a, b store.TimeRange) (string, string, bool) {
	open := a.Open
	if b.Open > open {
		open = b.Open
	}
	close_ := a.Close
	if b.Close < close_ {
		close_ = b.Close
	}
	if open >= close_ {
		return "", "", false
	}
	return open, close_, true
}
