package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
	"github.com/noah-isme/grievance-api/pkg/logger"
)

const usage = `usage: migrate <command> [flags]

commands:
  up                         apply pending migrations
  down [-steps N]            roll back N migrations (default 1)
  version                    print the current schema version
  set-password -officer ID -username NAME -password PW
                             provision portal credentials for an officer`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "up", "down", "version":
		err = runMigrator(cfg, logr, cmd, args)
	case "set-password":
		err = setPassword(cfg, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logr.Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

func runMigrator(cfg *config.Config, logr *zap.Logger, cmd string, args []string) error {
	mg, err := database.NewMigrator(cfg.Database, logr)
	if err != nil {
		return err
	}
	defer mg.Close() //nolint:errcheck

	switch cmd {
	case "up":
		return mg.Up()
	case "down":
		fs := flag.NewFlagSet("down", flag.ExitOnError)
		steps := fs.Int("steps", 1, "number of migrations to roll back")
		_ = fs.Parse(args)
		return mg.Down(*steps)
	default:
		version, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	}
}

func setPassword(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("set-password", flag.ExitOnError)
	officerID := fs.String("officer", "", "officer id")
	username := fs.String("username", "", "portal login name")
	password := fs.String("password", "", "new password")
	_ = fs.Parse(args)
	if *officerID == "" || *username == "" || len(*password) < 8 {
		return fmt.Errorf("officer, username and a password of at least 8 characters are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	officers := repository.NewOfficerRepository(db)
	if _, err := officers.FindByID(ctx, *officerID); err != nil {
		return fmt.Errorf("officer %s: %w", *officerID, err)
	}
	hash, err := service.HashPassword(*password)
	if err != nil {
		return err
	}
	if err := officers.SaveCredential(ctx, models.OfficerCredential{OfficerID: *officerID, Username: *username, PasswordHash: hash}); err != nil {
		return err
	}
	fmt.Printf("credentials set for %s (%s)\n", *officerID, *username)
	return nil
}
