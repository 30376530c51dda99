package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SeedAdminUser guarantees one admin account exists at boot. The upsert is
// keyed on email so restarts and concurrent instances never create a
// second admin or overwrite a changed password.
func SeedAdminUser(ctx context.Context, usersCol *mongo.Collection) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("missing ADMIN_EMAIL or ADMIN_PASSWORD env vars")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	res, err := usersCol.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": bson.M{
			"name":         "Administrator",
			"email":        email,
			"passwordHash": hash,
			"role":         models.RoleAdmin,
			"createdAt":    now,
			"updatedAt":    now,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if res.UpsertedCount == 1 {
		log.Println("Admin user seeded:", email)
	} else {
		log.Println("Admin user already exists:", email)
	}
	return nil
}
