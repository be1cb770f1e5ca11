package timeutil

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

func NowUnix() int64 {
	return time.Now().Unix()
}

// FormatISO renders t the way the cache and the sidecar files store times.
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseISO(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

// After returns next if it is later than prev, otherwise prev plus one millisecond.
func After(prev, next time.Time) time.Time {
	if next.After(prev) {
		return next
	}
	return prev.Add(time.Millisecond)
}
