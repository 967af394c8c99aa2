// seed inserts a development user for local testing.
// Idempotent: skips the insert if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"session-gateway/internal/config"
	"session-gateway/internal/db"
	"session-gateway/internal/security"
	userdomain "session-gateway/internal/user/domain"
	userrepo "session-gateway/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	devPassword  = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("seed already applied (%s exists), skipping", devUserEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        devUserEmail,
		Name:         "Dev User",
		PasswordHash: passwordHash,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		log.Fatalf("seed user: %v", err)
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("create dev user: %v", err)
	}
	log.Printf("seeded %s", devUserEmail)
}
