// Package analytics derives read-time projections from the stored event log.
package analytics

import (
	"math"
	"sort"

	"portfolio/analytics/models"
	"portfolio/analytics/utils"
)

const (
	recentActivityLimit = 10
	visitorIDDisplayLen = 8
)

// Summarize computes the dashboard summary over events in a single pass plus one sort
// for the recent-activity slice. events is not modified.
func Summarize(events []models.Event) models.Summary {
	summary := models.Summary{
		TotalEvents:    len(events),
		TopPages:       map[string]int{},
		TopReferrers:   map[string]int{},
		DeviceTypes:    map[string]int{},
		Languages:      map[string]int{},
		RecentActivity: []models.ActivityEntry{},
	}

	visitors := make(map[string]struct{})
	sessions := make(map[string]struct{})
	var exits int
	var exitTime float64

	for _, e := range events {
		visitors[e.VisitorKey()] = struct{}{}
		sessions[e.SessionKey()] = struct{}{}

		switch e.Type {
		case models.EventTypePageView:
			summary.PageViews++
			countPageView(&summary, e)
		case models.EventTypeInteraction:
			summary.Interactions++
		case models.EventTypePageExit:
			exits++
			if e.TimeSpent != nil {
				exitTime += *e.TimeSpent
			}
		}
	}

	summary.UniqueVisitors = len(visitors)
	summary.UniqueSessions = len(sessions)
	if exits > 0 {
		// half rounds up, like Math.round
		summary.AvgTimePerPage = int64(math.Floor(exitTime/float64(exits)/1000 + 0.5))
	}
	summary.RecentActivity = recentActivity(events, recentActivityLimit)

	return summary
}

func countPageView(summary *models.Summary, e models.Event) {
	page := e.Path
	if page == "" {
		page = e.URL
	}
	if page != "" {
		summary.TopPages[page]++
	}

	if e.Referrer != "" {
		if host, err := utils.ReferrerHost(e.Referrer); err == nil {
			summary.TopReferrers[host]++
		} else {
			summary.SkippedReferrers++
		}
	}

	summary.DeviceTypes[ClassifyDevice(e.UserAgent)]++

	if e.Language != "" {
		summary.Languages[e.Language]++
	}
}

// recentActivity returns the limit newest events by client timestamp. Ties keep store order.
func recentActivity(events []models.Event, limit int) []models.ActivityEntry {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]models.ActivityEntry, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, models.ActivityEntry{
			Type:      e.Type,
			URL:       e.URL,
			Timestamp: utils.FormatMillis(e.Timestamp),
			VisitorID: utils.TruncateID(e.VisitorLabel(), visitorIDDisplayLen),
		})
	}
	return out
}
