// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// User is an account created on first Google sign-in.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// CachedUser represents user data stored in the Redis auth cache.
// Uses string types for Redis hash compatibility.
type CachedUser struct {
	ID        string `redis:"id"`
	Email     string `redis:"email"`
	Name      string `redis:"name"`
	HasName   string `redis:"has_name"`   // "1" or "0"
	CreatedAt string `redis:"created_at"` // Unix nanoseconds
}

// ToCachedUser converts User to its cached form.
func (u *User) ToCachedUser() *CachedUser {
	cached := &CachedUser{
		ID:        u.ID,
		Email:     u.Email,
		HasName:   boolToString(u.Name != nil),
		CreatedAt: strconv.FormatInt(u.CreatedAt.UnixNano(), 10),
	}
	if u.Name != nil {
		cached.Name = *u.Name
	}
	return cached
}

// ToUser converts CachedUser back to the domain model.
func (c *CachedUser) ToUser() *User {
	user := &User{
		ID:    c.ID,
		Email: c.Email,
	}
	if c.HasName == "1" {
		name := c.Name
		user.Name = &name
	}
	if ts, err := strconv.ParseInt(c.CreatedAt, 10, 64); err == nil {
		user.CreatedAt = time.Unix(0, ts).UTC()
	}
	return user
}

// boolToString converts boolean to "1" or "0".
func boolToString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
