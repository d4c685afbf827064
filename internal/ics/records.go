package ics

import (
	"strings"
	"time"

	"studycal/internal/model"
)

// RecordID builds the id of a record imported from a feed:
// "ics.<source>.<uid>.<instance>".
func RecordID(sourceID, uid, instance string) string {
	// ':' would be read as an occurrence separator in event ids.
	uid = strings.ReplaceAll(uid, ":", "_")
	return "ics." + sourceID + "." + uid + "." + instance
}

// ToRecords converts occurrences into source records according to each
// occurrence's Source.Kind. Exams keep their feed duration. Schedule
// occurrences become one-off blocks; an occurrence that crosses midnight is
// split into one block per calendar day.
func ToRecords(occs []Occurrence, loc *time.Location) model.Sources {
	if loc == nil {
		loc = time.Local
	}
	var out model.Sources
	for _, o := range occs {
		id := RecordID(o.Source.ID, o.UID, o.InstanceKey)
		switch o.Source.Kind {
		case model.KindExam:
			out.Exams = append(out.Exams, model.Exam{
				ID:              id,
				Title:           o.Summary,
				ExamDate:        o.Start,
				Location:        o.Location,
				CourseID:        o.Source.CourseID,
				DurationMinutes: int(o.End.Sub(o.Start) / time.Minute),
			})
		default:
			out.ScheduleBlocks = append(out.ScheduleBlocks, scheduleBlocks(id, o, loc)...)
		}
	}
	return out
}

func scheduleBlocks(id string, o Occurrence, loc *time.Location) []model.ScheduleBlock {
	start, end := o.Start.In(loc), o.End.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	var out []model.ScheduleBlock
	for {
		next := day.AddDate(0, 0, 1)
		segStart, segEnd := start, end
		if segStart.Before(day) {
			segStart = day
		}
		if segEnd.After(next) {
			segEnd = next
		}

		date := day
		b := model.ScheduleBlock{
			ID:           id,
			Title:        o.Summary,
			Location:     o.Location,
			SpecificDate: &date,
			StartTime:    segStart.Format("15:04:05"),
			EndTime:      segEnd.Format("15:04:05"),
			CourseID:     o.Source.CourseID,
		}
		if segEnd.Equal(next) {
			b.EndTime = "24:00:00"
		}
		out = append(out, b)

		if !end.After(next) {
			break
		}
		day = next
	}

	if len(out) > 1 {
		for i := range out {
			out[i].ID = id + "." + out[i].SpecificDate.Format("20060102")
		}
	}
	return out
}
