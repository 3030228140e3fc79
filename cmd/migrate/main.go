// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"promptdoumi/internal/config"
	"promptdoumi/internal/database"
	"promptdoumi/internal/models"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <create-db|up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "create-db":
		if err := database.EnsureDatabase(ctx, cfg); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		log.Printf("database %q is present", cfg.DBName)
	case "up":
		if err := database.EnsureDatabase(ctx, cfg); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		for _, table := range []any{&models.GalleryPost{}, &models.AdminUser{}} {
			present := db.Migrator().HasTable(table)
			var n int64
			if present {
				if err := db.WithContext(ctx).Model(table).Count(&n).Error; err != nil {
					return fmt.Errorf("count rows: %w", err)
				}
			}
			log.Printf("table=%T present=%t rows=%d", table, present, n)
		}
	default:
		return usage()
	}
	return nil
}
