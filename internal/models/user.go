package models

import "time"

// User is an account of the document service. Favorites holds document ids
// and is only changed through the favorite toggle.
type User struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Username   string    `bson:"username" json:"username"`
	SecretHash string    `bson:"secretHash" json:"-"`
	Favorites  []string  `bson:"favorites" json:"favorites"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// HasFavorite reports whether documentID is in the user's favorites.
func (u *User) HasFavorite(documentID string) bool {
	for _, f := range u.Favorites {
		if f == documentID {
			return true
		}
	}
	return false
}

// PublicProfile is the view of a user other principals may see.
type PublicProfile struct {
	Username string `json:"username"`
}
