// Command devtoken mints a bearer token for a user ID. Development only.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"orbit/internal/config"
	"orbit/internal/middleware"
)

func main() {
	userID := flag.Uint("user", 1, "User ID to issue the token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("devtoken is disabled in production")
	}

	token, jti, err := middleware.NewTokenVerifier(cfg, nil).Issue(*userID, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	log.Printf("issued token jti=%s user=%d ttl=%s", jti, *userID, *ttl)
	fmt.Println(token)
}
