package pdca

import "time"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// TimestampLayout is millisecond-precision UTC, the format hosts and the
// dashboard already parse.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Now returns the current time formatted with TimestampLayout.
func Now() string {
	return timeNow().UTC().Format(TimestampLayout)
}
