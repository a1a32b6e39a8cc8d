package analytics

import "portfolio/analytics/models"

// ReconstructSessions groups events by sessionId in one pass over store order. Sessions are
// returned in order of first appearance; each keeps its events in store order. A non-string
// sessionId is its own session and is reported by its raw JSON text.
func ReconstructSessions(events []models.Event) []models.Session {
	index := make(map[string]int)
	sessions := make([]models.Session, 0)
	seenPages := make([]map[string]struct{}, 0)

	for _, e := range events {
		key := e.SessionKey()
		i, ok := index[key]
		if !ok {
			i = len(sessions)
			index[key] = i
			sessions = append(sessions, models.Session{
				SessionID: e.SessionLabel(),
				VisitorID: e.VisitorLabel(),
				StartTime: e.Timestamp,
				EndTime:   e.Timestamp,
				Pages:     []string{},
			})
			seenPages = append(seenPages, make(map[string]struct{}))
		}

		s := &sessions[i]
		s.Events = append(s.Events, e)
		s.StartTime = min(s.StartTime, e.Timestamp)
		s.EndTime = max(s.EndTime, e.Timestamp)

		if e.Path != "" {
			if _, dup := seenPages[i][e.Path]; !dup {
				seenPages[i][e.Path] = struct{}{}
				s.Pages = append(s.Pages, e.Path)
			}
		}
		if e.TimeSpent != nil {
			s.TotalTimeSpent = max(s.TotalTimeSpent, *e.TimeSpent)
		}
	}

	for i := range sessions {
		sessions[i].Duration = sessions[i].EndTime - sessions[i].StartTime
		sessions[i].EventCount = len(sessions[i].Events)
	}
	return sessions
}
