package utils

import (
	"fmt"
	"net/url"
	"time"

	"portfolio/analytics/models"
)

// ReferrerHost extracts the hostname of an absolute referrer URL.
func ReferrerHost(referrer string) (string, error) {
	u, err := url.Parse(referrer)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", fmt.Errorf("referrer %q is not an absolute URL", referrer)
	}
	return u.Hostname(), nil
}

// TruncateID keeps the first n characters of id followed by "...".
func TruncateID(id string, n int) string {
	runes := []rune(id)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// FormatMillis renders a millisecond epoch the way JavaScript's toISOString does.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(models.ISOLayout)
}
