package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// clock is a wall-clock time of day.
type clock struct {
	h, m, s int
}

// parseClock accepts "HH:MM" and "HH:MM:SS". "24:00" is allowed as the
// end of the day.
func parseClock(v string) (clock, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return clock{}, fmt.Errorf("invalid clock value %q", v)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return clock{}, fmt.Errorf("invalid clock value %q", v)
		}
		nums[i] = n
	}
	c := clock{h: nums[0], m: nums[1], s: nums[2]}
	if c.m > 59 || c.s > 59 || c.h > 24 || (c.h == 24 && (c.m != 0 || c.s != 0)) {
		return clock{}, fmt.Errorf("clock value out of range %q", v)
	}
	return c, nil
}

func (c clock) seconds() int {
	return c.h*3600 + c.m*60 + c.s
}

func (c clock) before(o clock) bool {
	return c.seconds() < o.seconds()
}

// on returns the instant of c on the calendar date of day, in loc.
func (c clock) on(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.h, c.m, c.s, 0, loc)
}
