package sessions

import "time"

// Session is a refresh session bound to a username
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	Username     string    `bson:"username" json:"username"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

func (s *Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
