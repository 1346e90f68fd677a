// dev-session-token creates a local user (with the default dataroom) and
// prints a session token for it, so the API can be exercised without going
// through Google sign-in.
//
//	go run scripts/dev-session-token.go -email dev@dataroom.local
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dataroom/dataroom/internal/auth"
	"github.com/dataroom/dataroom/internal/model"
	"github.com/dataroom/dataroom/internal/repository"
)

type output struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Created   bool      `json:"created"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		jwtSecret   = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "Secret used by the API to sign session tokens")
		email       = flag.String("email", "dev@dataroom.local", "User email")
		name        = flag.String("name", "Dev User", "User display name")
		expiry      = flag.Duration("expiry", 24*time.Hour, "Token lifetime")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" || *jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL and JWT_SECRET are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	candidate := &model.User{ID: uuid.NewString(), Email: strings.ToLower(strings.TrimSpace(*email))}
	if n := strings.TrimSpace(*name); n != "" {
		candidate.Name = &n
	}
	description := model.DefaultDataroomDescription
	room := &model.Dataroom{
		ID:          uuid.NewString(),
		Name:        model.DefaultDataroomName,
		Description: &description,
	}

	user, created, err := repo.GetOrCreateUser(ctx, candidate, room)
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve user:", err)
		os.Exit(1)
	}

	token, claims, err := auth.NewTokenManager(*jwtSecret, *expiry).Issue(user.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}

	out := output{
		UserID:    user.ID,
		Email:     user.Email,
		Created:   created,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Token)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
