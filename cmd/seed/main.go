// Command main runs the database seeder for Orbit.
package main

import (
	"context"
	"flag"
	"log"

	"orbit/internal/config"
	"orbit/internal/database"
	"orbit/internal/seed"
)

func main() {
	def := seed.DefaultOptions()
	numUsers := flag.Int("users", def.Users, "Number of users to create")
	numPosts := flag.Int("posts", def.Posts, "Number of posts to create")
	degree := flag.Int("follows", def.FollowDegree, "Follow attempts per user")
	accept := flag.Int("accept", def.AcceptPercent, "Percent of follow requests accepted")
	days := flag.Int("days", def.MaxDays, "Spread post timestamps over this many days")
	seedValue := flag.Int64("seed", def.Seed, "Random seed")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Users:         *numUsers,
		Posts:         *numPosts,
		FollowDegree:  *degree,
		AcceptPercent: *accept,
		MaxDays:       *days,
		Seed:          *seedValue,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Seeded %d users (%d creators), %d posts, %d follows, %d pending requests",
		res.Users, res.Creators, res.Posts, res.Follows, res.Requests)
	log.Println("🔑 Mint a token for any user with: go run ./cmd/devtoken -user <id>")
}
