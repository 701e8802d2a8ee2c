package timeutil

import "time"

type Clock func() time.Time

// Expired reports whether expiresAt (unix seconds) is before now.
func Expired(expiresAt int64, now time.Time) bool {
	return expiresAt < now.Unix()
}
