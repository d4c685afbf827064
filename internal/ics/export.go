package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"studycal/internal/model"
)

// UIDSuffix is appended to event ids to form exported VEVENT UIDs.
const UIDSuffix = "@studycal"

// Export renders normalized events as an iCalendar document. Labels are
// used as summaries, the event type becomes a category and all-day events
// are written as DATE values. stamp is used as DTSTAMP for every event.
func Export(events []model.CalendarEvent, name string, stamp time.Time) string {
	cal := ical.NewCalendarFor("studycal")
	cal.SetMethod(ical.MethodPublish)
	if name != "" {
		cal.SetName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID + UIDSuffix)
		ve.SetDtStampTime(stamp)
		if ev.AllDay() {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		ve.SetSummary(ev.Label)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Course != nil && ev.Course.Name != "" {
			ve.SetDescription(ev.Course.Name)
		}
		ve.AddCategory(string(ev.Type))
	}

	return cal.Serialize()
}

// EventIDFromUID reverses the UID scheme used by Export.
func EventIDFromUID(uid string) (string, bool) {
	if !strings.HasSuffix(uid, UIDSuffix) {
		return "", false
	}
	return strings.TrimSuffix(uid, UIDSuffix), true
}
