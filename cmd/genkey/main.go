// Command genkey provisions an API key: it creates the user row when
// missing, stores the key digest and prints the plain key once. The
// plain key is never persisted.
package main

import (
	"flag"
	"fmt"
	"log"

	"model-gateway/internal/apikey"
	"model-gateway/internal/database"
)

func main() {
	var (
		dbPath = flag.String("db", "data/gateway.db", "path to the gateway database")
		userID = flag.String("user", "", "user identifier to bind the key to")
		name   = flag.String("name", "", "display name for a newly created user")
	)
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	db, err := database.New(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	user, err := db.GetUser(*userID)
	if err != nil {
		log.Fatalf("failed to look up user: %v", err)
	}
	if user == nil {
		display := *name
		if display == "" {
			display = *userID
		}
		if err := db.CreateUser(*userID, display, true); err != nil {
			log.Fatalf("failed to create user: %v", err)
		}
		fmt.Printf("Created user %s\n", *userID)
	}

	plain, hash, err := apikey.Generate(apikey.DefaultPrefix)
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}
	if err := db.CreateAPIKey(hash, *userID); err != nil {
		log.Fatalf("failed to store key: %v", err)
	}

	fmt.Printf("API key for %s (store it now, it is not shown again):\n%s\n", *userID, plain)
}
