package model

import "time"

// AuthContext is the authenticated caller of a request.
type AuthContext struct {
	User      *User
	TokenID   string
	ExpiresAt time.Time
	Token     string
}
