package entities

import "time"

// User is a marketplace customer keyed by the transport's numeric id
type User struct {
	ID        int64
	Username  string
	FirstName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the best human label for the user
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "user"
}
