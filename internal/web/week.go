package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"studycal/internal/conflict"
	appLog "studycal/internal/log"
	"studycal/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

func weekTemplate() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/week.html"))
}

type weekPage struct {
	Title     string
	Days      []dayView
	Hours     []hourView
	Height    float64
	Conflicts []model.Conflict
	Version   string
}

type dayView struct {
	Label  string
	AllDay []eventView
	Timed  []eventView
}

type hourView struct {
	Label string
	Style template.CSS
}

type eventView struct {
	ID       string
	Label    string
	Time     string
	Location string
	Type     model.EventType
	Color    model.Color
	Conflict bool
	Style    template.CSS
}

// handleWeekPage renders the week containing ?start as HTML. The root
// element carries data-ready="true" once rendered so headless capture can
// wait for it.
func (s *Server) handleWeekPage(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(r, 7)
	if !ok {
		http.Error(w, "start must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	days, snap, err := s.engine.Week(r.Context(), window.Start)
	if err != nil {
		appLog.Error("week page: view failed", err)
		http.Error(w, "failed to load week", http.StatusInternalServerError)
		return
	}

	settings := s.engine.Settings()
	page := buildWeekPage(days, snap.Conflicts, settings.Layout.PixelsPerHour, settings.Layout.VisibleFromHour, settings.Layout.VisibleToHour)
	page.Version = snap.Version

	var buf bytes.Buffer
	if err := s.week.Execute(&buf, page); err != nil {
		appLog.Error("week page: render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func buildWeekPage(days []model.DayLayout, conflicts []model.Conflict, pxPerHour float64, fromHour, toHour int) weekPage {
	if pxPerHour <= 0 {
		pxPerHour = 60
	}
	if toHour <= 0 || toHour > 24 {
		toHour = 24
	}
	if fromHour < 0 || fromHour >= toHour {
		fromHour = 0
	}

	peers := conflict.Index(conflicts)
	page := weekPage{Height: float64(toHour-fromHour) * pxPerHour}

	for h := fromHour; h < toHour; h++ {
		page.Hours = append(page.Hours, hourView{
			Label: fmt.Sprintf("%02d:00", h),
			Style: template.CSS(fmt.Sprintf("top:%.2fpx", float64(h-fromHour)*pxPerHour)),
		})
	}

	ids := make(map[string]bool)
	for _, d := range days {
		dv := dayView{Label: d.Date.Format("Mon 02 Jan")}
		for _, ev := range d.AllDay {
			dv.AllDay = append(dv.AllDay, eventView{
				ID:       ev.ID,
				Label:    ev.Label,
				Type:     ev.Type,
				Color:    ev.Color,
				Conflict: len(peers[ev.ID]) > 0,
			})
		}
		for _, p := range d.Timed {
			ids[p.Event.ID] = true
			dv.Timed = append(dv.Timed, eventView{
				ID:       p.Event.ID,
				Label:    p.Event.Label,
				Time:     timeRange(p.Event.Start, p.Event.End),
				Location: p.Event.Location,
				Type:     p.Event.Type,
				Color:    p.Event.Color,
				Conflict: len(peers[p.Event.ID]) > 0,
				Style: template.CSS(fmt.Sprintf("top:%.2fpx;height:%.2fpx;left:%.2f%%;width:%.2f%%",
					p.Top, p.Height, p.Left, p.Width)),
			})
		}
		page.Days = append(page.Days, dv)
	}

	for _, c := range conflicts {
		for _, id := range c.EventIDs {
			if ids[id] {
				page.Conflicts = append(page.Conflicts, c)
				break
			}
		}
	}

	if len(days) > 0 {
		first, last := days[0].Date, days[len(days)-1].Date
		page.Title = first.Format("02 Jan") + " - " + last.Format("02 Jan 2006")
	}
	return page
}

func timeRange(start, end time.Time) string {
	if start.Equal(end) {
		return start.Format("15:04")
	}
	return start.Format("15:04") + "-" + end.Format("15:04")
}
