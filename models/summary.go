package models

// Summary is an aggregate snapshot over every stored event.
type Summary struct {
	TotalEvents    int             `json:"totalEvents"`
	UniqueVisitors int             `json:"uniqueVisitors"`
	UniqueSessions int             `json:"uniqueSessions"`
	PageViews      int             `json:"pageViews"`
	Interactions   int             `json:"interactions"`
	AvgTimePerPage int64           `json:"avgTimePerPage"` // seconds
	TopPages       map[string]int  `json:"topPages"`
	TopReferrers   map[string]int  `json:"topReferrers"`
	DeviceTypes    map[string]int  `json:"deviceTypes"`
	Languages      map[string]int  `json:"languages"`
	RecentActivity []ActivityEntry `json:"recentActivity"`

	// SkippedReferrers counts page views whose referrer could not be parsed.
	SkippedReferrers int `json:"skippedReferrers,omitempty"`
}

type ActivityEntry struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	VisitorID string `json:"visitorId"`
}

// Session groups the events sharing a sessionId. It is derived on every read and never stored.
type Session struct {
	SessionID      string   `json:"sessionId"`
	VisitorID      string   `json:"visitorId"`
	StartTime      int64    `json:"startTime"`
	EndTime        int64    `json:"endTime"`
	Duration       int64    `json:"duration"`
	EventCount     int      `json:"eventCount"`
	Pages          []string `json:"pages"`
	TotalTimeSpent float64  `json:"totalTimeSpent"`
	Events         []Event  `json:"events"`
}
