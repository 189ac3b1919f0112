package handler

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/validation"
)

// Store is the persistence gateway the handlers talk to.
type Store interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error

	GetPermissionByID(ctx context.Context, id string) (*domain.Permission, error)
	GetPermissionByKey(ctx context.Context, title, userID string, start, end time.Time) (*domain.Permission, error)
	GetAllPermissions(ctx context.Context) ([]*domain.Permission, error)
	GetPermissionsByUser(ctx context.Context, userID string) ([]*domain.Permission, error)
	CreatePermission(ctx context.Context, p *domain.Permission) error
	UpdatePermission(ctx context.Context, p *domain.Permission) error
	DeletePermission(ctx context.Context, id string) error
}

// SessionStore holds revoked tokens and one-time codes.
type SessionStore interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	SaveOTP(ctx context.Context, purpose, email, otp string, ttl time.Duration) error
	CheckOTP(ctx context.Context, purpose, email, otp string) (bool, error)
	RecordOTPFailure(ctx context.Context, purpose, email string, limit int) (bool, error)
	DeleteOTP(ctx context.Context, purpose, email string) error
}

type Mailer interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

type Handler struct {
	config    *config.Config
	store     Store
	sessions  SessionStore
	mailer    Mailer
	validator *validation.Validator
	tokens    *auth.TokenManager
	passwords *auth.PasswordHasher
	// panic stack traces go here outside production
	traceOut io.Writer

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store Store, sessions SessionStore, mailer Mailer) (*Handler, error) {
	v, err := validation.New()
	if err != nil {
		return nil, err
	}

	return &Handler{
		config:    cfg,
		store:     store,
		sessions:  sessions,
		mailer:    mailer,
		validator: v,
		tokens:    auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.Expiration)*time.Second),
		passwords: auth.NewPasswordHasher(cfg.BcryptCost),
		traceOut:  os.Stdout,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(middleware.RequestID)
	h.Mux.Use(middleware.RealIP)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	h.Mux.NotFound(h.notFound)
	h.Mux.MethodNotAllowed(h.methodNotAllowed)

	h.Mux.Route(h.config.Server.BasePath, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Route("/verify", func(r chi.Router) {
				r.Post("/require", h.RequireVerifyEmail)
				r.Post("/confirm", h.ConfirmVerifyEmail)
			})
			r.Route("/reset-password", func(r chi.Router) {
				r.Post("/require", h.RequireResetPassword)
				r.Post("/confirm", h.ConfirmResetPassword)
			})

			// the rest of /auth acts on the caller's own account
			r.Group(func(r chi.Router) {
				r.Use(h.authenticate)
				r.Get("/", h.GetMe)
				r.Patch("/", h.UpdateMe)
				r.Patch("/password", h.UpdateMyPassword)
				r.Post("/logout", h.Logout)
			})
		})

		r.Route("/permission", func(r chi.Router) {
			r.Use(h.authenticate)
			r.With(h.requireRole(domain.ReviewerRoles...)).Get("/", h.GetAllPermissions)
			r.Post("/", h.CreatePermission)
			r.Get("/user", h.GetMyPermissions)
			r.Route("/{id}", func(r chi.Router) {
				r.With(h.permissionInfo).Get("/", h.GetPermission)
				r.With(h.permissionInfo).Patch("/", h.UpdatePermission)
				r.With(h.permissionInfo).Delete("/", h.DeletePermission)
				r.With(h.permissionInfo).Patch("/cancel", h.CancelPermission)
				// role is checked before the lookup
				r.With(h.requireRole(domain.ReviewerRoles...), h.permissionInfo).Patch("/status", h.UpdatePermissionStatus)
			})
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(h.authenticate)
			r.Get("/", h.GetAllUsers)
			r.With(h.requireRole(domain.AdminRoles...)).Post("/", h.CreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.With(h.userInfo).Get("/", h.GetUser)
				r.Group(func(r chi.Router) {
					r.Use(h.requireRole(domain.AdminRoles...), h.userInfo, h.preventOperateInitialAdmin)
					r.Patch("/", h.UpdateUser)
					r.Delete("/", h.DeleteUser)
				})
			})
		})
	})
}
