package main

import (
	"context"
	"fmt"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/passwordhash"
	"github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

// defaultTeachers mirrors the rows seeded by the postgres migrations.
var defaultTeachers = []domain.Teacher{
	{FirstName: "Margot", LastName: "DELAHAYE"},
	{FirstName: "Hélène", LastName: "THIERCELIN"},
}

func seedTeachers(ctx context.Context, repo teacherrepo.Repository) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, t := range defaultTeachers {
		if _, err := repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create teacher %s %s: %w", t.FirstName, t.LastName, err)
		}
	}
	return nil
}

// seedAdmin creates an admin account when email is set and no account exists for it yet.
func seedAdmin(ctx context.Context, repo userrepo.Repository, hasher passwordhash.Hasher, email, plain string) error {
	if email == "" {
		return nil
	}
	if plain == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD is required when SEED_ADMIN_EMAIL is set")
	}
	exists, err := repo.ExistsByUsername(ctx, domain.Username(email))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	_, err = repo.Create(ctx, userrepo.User{
		Email:        email,
		FirstName:    "Admin",
		LastName:     "Admin",
		PasswordHash: hash,
		Admin:        true,
	})
	return err
}
