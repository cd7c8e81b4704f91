package domain

import "time"

// Token is the upstream bearer token together with its absolute expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) IsZero() bool { return t.Value == "" }

// UsableAt reports whether the token may still be handed out at now, keeping
// margin in reserve before ExpiresAt.
func (t Token) UsableAt(now time.Time, margin time.Duration) bool {
	if t.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}
