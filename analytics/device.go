package analytics

import "strings"

const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

var (
	mobileMarkers = []string{"Mobile", "Android", "iPhone", "iPad"}
	tabletMarkers = []string{"Tablet", "iPad"}
)

// ClassifyDevice buckets a user agent. Mobile markers are checked first, so an iPad
// (present in both lists) is reported as Mobile.
func ClassifyDevice(userAgent string) string {
	switch {
	case containsAny(userAgent, mobileMarkers):
		return DeviceMobile
	case containsAny(userAgent, tabletMarkers):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
