package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"portfolio/analytics/models"
	"portfolio/analytics/utils"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	typeStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "   %s %v\n", labelStyle.Render(label+":"), value)
}

func seconds(ms float64) int64 {
	return int64(math.Floor(ms/1000 + 0.5))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func renderEvents(w io.Writer, events []models.Event, loc *time.Location) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found yet. Visit the website to generate some data!")
		return
	}

	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Found %d events:", len(events))))
	fmt.Fprintln(w)

	for i, e := range events {
		fmt.Fprintf(w, "%d. %s\n", i+1, typeStyle.Render(strings.ToUpper(orDefault(e.Type, "unknown"))))
		field(w, "Time", e.Time().In(loc).Format("2006-01-02 15:04:05"))
		field(w, "Page", orDefault(e.Path, e.URL))
		field(w, "Visitor", utils.TruncateID(e.VisitorLabel(), 12))

		switch e.Type {
		case models.EventTypePageView:
			field(w, "Title", e.Title)
			field(w, "Referrer", orDefault(e.Referrer, "Direct"))
			field(w, "Device", e.ExtraString("screenResolution"))
			field(w, "Language", e.Language)
		case models.EventTypeInteraction:
			interaction := e.ExtraObject("interaction")
			kind, _ := interaction["type"].(string)
			element, _ := interaction["element"].(string)
			onPage, _ := interaction["timeOnPage"].(float64)
			field(w, "Interaction", kind)
			field(w, "Element", orDefault(element, "N/A"))
			field(w, "Time on page", fmt.Sprintf("%ds", seconds(onPage)))
		case models.EventTypePageExit:
			var spent float64
			if e.TimeSpent != nil {
				spent = *e.TimeSpent
			}
			field(w, "Time spent", fmt.Sprintf("%ds", seconds(spent)))
			if e.MaxScrollDepth != nil {
				field(w, "Max scroll", fmt.Sprintf("%.0f%%", *e.MaxScrollDepth))
			}
			if n, ok := e.ExtraNumber("totalInteractions"); ok {
				field(w, "Interactions", int64(n))
			}
		}
		fmt.Fprintln(w)
	}
}

func renderSummary(w io.Writer, s *models.Summary) {
	fmt.Fprintln(w, headingStyle.Render("SUMMARY:"))
	field(w, "Total Events", s.TotalEvents)
	field(w, "Unique Visitors", s.UniqueVisitors)
	field(w, "Page Views", s.PageViews)
	field(w, "Average Time", fmt.Sprintf("%ds", s.AvgTimePerPage))
	field(w, "Total Interactions", s.Interactions)
}

func renderSessions(w io.Writer, sessions []models.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded yet.")
		return
	}

	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Found %d sessions:", len(sessions))))
	fmt.Fprintln(w)
	for i, s := range sessions {
		fmt.Fprintf(w, "%d. %s\n", i+1, typeStyle.Render(s.SessionID))
		field(w, "Visitor", utils.TruncateID(s.VisitorID, 12))
		field(w, "Events", s.EventCount)
		field(w, "Duration", fmt.Sprintf("%ds", seconds(float64(s.Duration))))
		field(w, "Pages", orDefault(strings.Join(s.Pages, ", "), "-"))
		fmt.Fprintln(w)
	}
}

func renderUnreachable(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error fetching events: "+err.Error()))
	fmt.Fprintln(w)
	fmt.Fprintln(w, hintStyle.Render("Make sure the analytics server is running:"))
	fmt.Fprintln(w, "   go run .   (or start the built binary)")
}
