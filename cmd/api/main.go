package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/handler"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/mailqueue"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/migrations"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/session"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * database
	 **********************************************/
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

	// sql.Open does not connect, so ping once up front
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := migrations.Up(ctx, dbpool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.NewRepository(cfg, dbpool)

	if err := ensureInitialAdmin(ctx, cfg, repo); err != nil {
		logger.Error("failed to create initial admin", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	if _, err := mailqueue.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
		logger.Error("failed to declare queue", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	/**********************************************
	 * http
	 **********************************************/
	h, err := handler.NewHandler(cfg, repo, session.NewStore(cfg, rdb), mailqueue.NewPublisher(cfg, ch))
	if err != nil {
		logger.Error("failed to create handler", "error", err)
		os.Exit(1)
	}
	h.RegisterRoutes()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      h.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "base_path", cfg.Server.BasePath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", "error", err)
	}
	logger.Info("server stopped")
}

// ensureInitialAdmin creates the configured admin account unless its email is already taken.
func ensureInitialAdmin(ctx context.Context, cfg *config.Config, repo *repository.Repository) error {
	hash, err := auth.NewPasswordHasher(cfg.BcryptCost).Hash(cfg.InitialAdmin.Password)
	if err != nil {
		return err
	}

	admin := &domain.User{
		Name:         cfg.InitialAdmin.Name,
		Email:        strings.ToLower(strings.TrimSpace(cfg.InitialAdmin.Email)),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
	}

	if err := repo.CreateUser(ctx, admin); err != nil {
		if apperror.IsKind(err, apperror.KindConflict) {
			slog.Info("initial admin already exists", "email", admin.Email)
			return nil
		}
		return err
	}

	slog.Info("initial admin created", "email", admin.Email)
	return nil
}
