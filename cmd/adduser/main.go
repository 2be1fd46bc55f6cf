// cmd/adduser/main.go
// Creates or updates an API user in the database.
//
// Usage:
//
//	go run ./cmd/adduser -username padraic -password testing
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/padraicbc/cyclingapi/config"
	bundb "github.com/padraicbc/cyclingapi/db"
	"github.com/padraicbc/cyclingapi/handlers"
	"github.com/padraicbc/cyclingapi/models"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	flag.Parse()

	hash, err := handlers.HashPasswordForUser(*username, *password)
	if err != nil {
		log.Fatal("-username and -password: ", err)
	}

	ctx := context.Background()
	cfg := config.Load()
	db := bundb.Setup(cfg.DB, cfg.Debug)
	defer db.Close()

	if err := bundb.CreateTables(ctx, db); err != nil {
		log.Fatal("create tables: ", err)
	}

	user := &models.User{
		Username: *username,
		Password: hash,
	}
	_, err = db.NewInsert().Model(user).
		On("CONFLICT (username) DO UPDATE").
		Set("password = EXCLUDED.password").
		Exec(ctx)
	if err != nil {
		log.Fatal("insert user: ", err)
	}

	fmt.Printf("user %q saved\n", *username)
}
