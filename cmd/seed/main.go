package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/migrations"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "operation to run (1: random users, 2: random permissions, 3: demo accounts, 4: import users from CSV)")
	flag.IntVar(&n, "n", 5, "number of records to insert")
	flag.StringVar(&file, "file", "", "CSV file with name,email,role[,status] columns for -op 4")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := migrations.Up(ctx, dbpool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	seeder := seed.NewSeeder(cfg, repository.NewRepository(cfg, dbpool))

	// seeding may outlive the connect timeout
	runCtx := context.Background()

	switch op {
	case 0:
		logger.Error("no operation specified")
		os.Exit(2)
	case 1:
		cnt, err := seeder.RandomUsers(runCtx, n)
		if err != nil {
			logger.Error("failed to insert users", "error", err)
			os.Exit(1)
		}
		logger.Info("users inserted", slog.Int("count", cnt))
	case 2:
		cnt, err := seeder.RandomPermissions(runCtx, n)
		if err != nil {
			logger.Error("failed to insert permissions", "error", err)
			os.Exit(1)
		}
		logger.Info("permissions inserted", slog.Int("count", cnt))
	case 3:
		cnt, err := seeder.DemoAccounts(runCtx)
		if err != nil {
			logger.Error("failed to create demo accounts", "error", err)
			os.Exit(1)
		}
		logger.Info("demo accounts created", slog.Int("count", cnt), slog.String("password", cfg.Seed.User.Password))
	case 4:
		if file == "" {
			logger.Error("-file is required for importing users")
			os.Exit(1)
		}
		f, err := os.Open(file)
		if err != nil {
			logger.Error("failed to open file", "error", err)
			os.Exit(1)
		}
		defer f.Close()

		cnt, err := seeder.ImportUsers(runCtx, f)
		if err != nil {
			logger.Error("failed to import users", "error", err)
			os.Exit(1)
		}
		logger.Info("users imported", slog.Int("count", cnt))
	default:
		logger.Error("unknown operation", slog.Int("op", op))
		os.Exit(2)
	}
}
