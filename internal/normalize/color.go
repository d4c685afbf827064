package normalize

import "studycal/internal/model"

// DefaultColors maps each event type to its fallback color token.
var DefaultColors = map[model.EventType]model.Color{
	model.TypeSchedule:     model.ColorPrimary,
	model.TypeExam:         model.ColorDestructive,
	model.TypeAssignment:   model.ColorWarning,
	model.TypeStudySession: model.ColorAccent,
}

func indexCourses(courses []model.Course) map[string]model.Course {
	m := make(map[string]model.Course, len(courses))
	for _, c := range courses {
		if c.ID == "" {
			continue
		}
		m[c.ID] = c
	}
	return m
}

// resolveColor picks the record color, then the course color, then the
// type default. It also returns the course reference, if any.
func resolveColor(t model.EventType, own model.Color, courseID string, courses map[string]model.Course) (model.Color, *model.CourseRef) {
	var ref *model.CourseRef
	var courseColor model.Color
	if courseID != "" {
		c := courses[courseID]
		ref = &model.CourseRef{ID: courseID, Name: c.Name}
		courseColor = c.Color
	}

	switch {
	case own != "":
		return own, ref
	case courseColor != "":
		return courseColor, ref
	default:
		return DefaultColors[t], ref
	}
}
