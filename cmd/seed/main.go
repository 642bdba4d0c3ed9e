package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tjanster-backend/internal/admin"
	"tjanster-backend/internal/auth"
	"tjanster-backend/internal/config"
	"tjanster-backend/internal/db"
)

type seedUser struct {
	EmailEnv    string
	PasswordEnv string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	adminUsers := []seedUser{
		{EmailEnv: "ADMIN_EMAIL", PasswordEnv: "ADMIN_PASSWORD"},
		{EmailEnv: "ADMIN_EMAIL_2", PasswordEnv: "ADMIN_PASSWORD_2"},
	}

	for _, u := range adminUsers {
		email := strings.ToLower(strings.TrimSpace(os.Getenv(u.EmailEnv)))
		password := os.Getenv(u.PasswordEnv)
		if email == "" || password == "" {
			log.Printf("seed admin: %s or %s missing, skipping", u.EmailEnv, u.PasswordEnv)
			continue
		}
		if err := seedAdminUser(ctx, cols, email, password, cfg.Timezone); err != nil {
			log.Fatalf("seed admin error for %s: %v", email, err)
		}
		log.Printf("seed admin: %s ok", email)
	}

	log.Println("seed completed")
}

func seedAdminUser(ctx context.Context, cols *db.Collections, email, password string, loc *time.Location) error {
	if cols == nil || cols.Users == nil {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	update := bson.M{
		"$set": bson.M{
			"password_hash": hash,
			"role":          admin.RoleAdmin,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"email":      email,
			"created_at": now,
		},
	}
	_, err = cols.Users.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	return err
}
