package ingest

// MinRefreshMillis is the floor on the computed poll period. Values below it
// disable auto-refresh rather than clamping up, so a misconfigured card
// cannot poll an external API in a sub-10-second loop.
const MinRefreshMillis = 10_000

// defaultRefreshMillis is used when the unit is unrecognized: 5 minutes.
const defaultRefreshMillis = 300_000

var unitMillis = map[string]int64{
	"seconds": 1_000,
	"minutes": 60_000,
	"hours":   3_600_000,
	"days":    86_400_000,
	"weeks":   604_800_000,
	"months":  2_592_000_000, // fixed 30-day approximation, not calendar-aware
}

// ToMillis converts a refresh interval and unit into a poll period in
// milliseconds. An unknown unit yields the 5-minute default regardless of
// the interval.
func ToMillis(interval int, unit string) int64 {
	ms, ok := unitMillis[unit]
	if !ok {
		return defaultRefreshMillis
	}
	return int64(interval) * ms
}

// AutoRefreshEnabled reports whether a computed poll period clears the floor.
func AutoRefreshEnabled(millis int64) bool {
	return millis >= MinRefreshMillis
}
