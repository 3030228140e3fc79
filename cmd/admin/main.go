// Package main provides admin account utilities for Prompt Doumi.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"promptdoumi/internal/config"
	"promptdoumi/internal/database"
	"promptdoumi/internal/models"
	"promptdoumi/internal/repository"
	"promptdoumi/internal/service"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin create <email>        - Create an admin (password read from stdin)")
		fmt.Println("  go run ./cmd/admin set-password <email>  - Reset an admin password (read from stdin)")
		fmt.Println("  go run ./cmd/admin list                  - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	repo := repository.NewAdminUserRepository(db)
	auth := service.NewAuthService(repo, nil, nil, nil, cfg.JWTSecret)

	switch os.Args[1] {
	case "create":
		email := requireArg("create")
		user, err := auth.CreateAdmin(ctx, email, readPassword())
		if err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
		fmt.Printf("Created admin %s (ID: %d)\n", user.Email, user.ID)

	case "set-password":
		email := requireArg("set-password")
		user, err := repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fmt.Printf("Admin %s not found\n", email)
				os.Exit(1)
			}
			log.Fatalf("Database error: %v", err)
		}
		session := &models.Session{UserID: user.ID, Email: user.Email}
		if _, err := auth.UpdatePassword(ctx, session, readPassword()); err != nil {
			log.Fatalf("Failed to update password: %v", err)
		}
		fmt.Printf("Password updated for %s\n", user.Email)

	case "list":
		listAdmins(ctx, db)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func requireArg(command string) string {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: go run ./cmd/admin %s <email>\n", command)
		os.Exit(1)
	}
	return os.Args[2]
}

func readPassword() string {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("Failed to read password: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func listAdmins(ctx context.Context, db *gorm.DB) {
	var admins []models.AdminUser
	if err := db.WithContext(ctx).Order("id").Find(&admins).Error; err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Printf("%-6s %-40s %s\n", "ID", "Email", "Last login")
	for _, a := range admins {
		last := "never"
		if a.LastLoginAt != nil {
			last = a.LastLoginAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-6d %-40s %s\n", a.ID, a.Email, last)
	}
}
