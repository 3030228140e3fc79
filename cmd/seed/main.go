// Command main seeds the gallery with demo posts.
package main

import (
	"flag"
	"log"

	"promptdoumi/internal/config"
	"promptdoumi/internal/database"
	"promptdoumi/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.NumPosts, "posts", opts.NumPosts, "Number of gallery posts to create")
	flag.IntVar(&opts.NumClients, "clients", opts.NumClients, "Number of distinct owner tokens")
	flag.Float64Var(&opts.OwnerlessRatio, "ownerless", opts.OwnerlessRatio, "Share of posts without an owner")
	flag.Float64Var(&opts.FileRatio, "files", opts.FileRatio, "Share of posts with file media")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Generate without writing")
	shouldClean := flag.Bool("clean", false, "Delete existing gallery posts first")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Printf("Target: %d posts over %d clients, clean=%v", opts.NumPosts, opts.NumClients, *shouldClean)

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

	s := seed.NewSeeder(db, opts, *seedValue)
	if *shouldClean {
		if err := s.ClearGallery(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}
	if _, err := s.SeedGallery(); err != nil {
		log.Fatalf("Gallery seeding failed: %v", err)
	}

	log.Println("Owner tokens (send as X-Client-ID to act as a seeded author):")
	for _, c := range s.Clients() {
		log.Printf("  %s", c)
	}
}
