package streak

import (
	"sort"
	"time"
)

// Current returns the length of the most recent unbroken run of consecutive
// calendar days in dates. The run is anchored at the most recent completion
// date whether or not that date is today; a gap anywhere before it ends the
// count. Duplicate dates and time-of-day are ignored.
func Current(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	count := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) != 24*time.Hour {
			break
		}
		count++
	}
	return count
}
