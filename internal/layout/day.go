package layout

import (
	"math"
	"time"

	"studycal/internal/model"
)

const (
	DefaultPixelsPerHour = 60.0
	DefaultMinHeight     = 20.0
)

// Options controls day geometry.
type Options struct {
	// PixelsPerHour scales vertical position. Zero means DefaultPixelsPerHour.
	PixelsPerHour float64
	// MinHeight is the rendered height floor for very short events so they
	// stay clickable. Zero means DefaultMinHeight.
	MinHeight float64
	// VisibleFromHour and VisibleToHour bound the visible part of a day.
	// Events are clipped to it before packing. VisibleToHour zero means 24.
	VisibleFromHour int
	VisibleToHour   int
	// Location is the display timezone; nil means time.Local.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.PixelsPerHour <= 0 {
		o.PixelsPerHour = DefaultPixelsPerHour
	}
	if o.MinHeight <= 0 {
		o.MinHeight = DefaultMinHeight
	}
	if o.VisibleToHour <= 0 || o.VisibleToHour > 24 {
		o.VisibleToHour = 24
	}
	if o.VisibleFromHour < 0 || o.VisibleFromHour >= o.VisibleToHour {
		o.VisibleFromHour = 0
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Day lays out the calendar day containing day. All-day events touching the
// day are listed separately; timed events are clipped to the visible window,
// packed into columns and given geometry. events may contain other days'
// events; they are ignored.
func Day(day time.Time, events []model.CalendarEvent, opts Options) model.DayLayout {
	opts = opts.withDefaults()

	d := day.In(opts.Location)
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, opts.Location)
	whole := model.Window{Start: dayStart, End: dayStart.AddDate(0, 0, 1)}
	visible := model.Window{
		Start: time.Date(d.Year(), d.Month(), d.Day(), opts.VisibleFromHour, 0, 0, 0, opts.Location),
		End:   time.Date(d.Year(), d.Month(), d.Day(), opts.VisibleToHour, 0, 0, 0, opts.Location),
	}

	out := model.DayLayout{
		Date:   dayStart,
		AllDay: make([]model.CalendarEvent, 0),
		Timed:  make([]model.PositionedEvent, 0),
	}

	for _, ev := range events {
		if ev.AllDay() {
			if whole.Intersects(ev.Start, ev.End) {
				out.AllDay = append(out.AllDay, ev)
			}
			continue
		}
		if !visible.Intersects(ev.Start, ev.End) {
			continue
		}
		out.Timed = append(out.Timed, model.PositionedEvent{
			Event: ev,
			Start: latest(ev.Start, visible.Start),
			End:   earliest(ev.End, visible.End),
		})
	}

	packItems(out.Timed)
	for i := range out.Timed {
		applyGeometry(&out.Timed[i], visible.Start, opts)
	}
	return out
}

// Week lays out n consecutive days starting at the day containing start.
func Week(start time.Time, n int, events []model.CalendarEvent, opts Options) []model.DayLayout {
	opts = opts.withDefaults()
	s := start.In(opts.Location)
	first := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, opts.Location)

	days := make([]model.DayLayout, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, Day(first.AddDate(0, 0, i), events, opts))
	}
	return days
}

// WeekStart returns the midnight of the first day of the week containing t.
func WeekStart(t time.Time, first time.Weekday, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	d := t.In(loc)
	offset := (int(d.Weekday()) - int(first) + 7) % 7
	return time.Date(d.Year(), d.Month(), d.Day()-offset, 0, 0, 0, 0, loc)
}

func applyGeometry(p *model.PositionedEvent, origin time.Time, opts Options) {
	p.Top = p.Start.Sub(origin).Hours() * opts.PixelsPerHour
	p.Height = math.Max(p.End.Sub(p.Start).Hours()*opts.PixelsPerHour, opts.MinHeight)

	cols := p.TotalColumns
	if cols < 1 {
		cols = 1
	}
	p.Width = 100 / float64(cols)
	p.Left = float64(p.Column) * p.Width
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
