package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"strings"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/utils"
)

// Columns an import file must carry. "status" is optional and defaults to ACTIVE.
var requiredHeaders = []string{"name", "email", "role"}

var knownRoles = []domain.Role{domain.RoleUser, domain.RoleVerificator, domain.RoleAdmin}

type Store interface {
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	CreatePermission(ctx context.Context, p *domain.Permission) error
}

type Seeder struct {
	cfg    *config.Config
	store  Store
	hasher *auth.PasswordHasher
}

func NewSeeder(cfg *config.Config, store Store) *Seeder {
	return &Seeder{
		cfg:    cfg,
		store:  store,
		hasher: auth.NewPasswordHasher(cfg.BcryptCost),
	}
}

// RandomUsers inserts n random active users sharing the seed password.
// Failed inserts are logged and skipped; the number inserted is returned.
func (s *Seeder) RandomUsers(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid user count %d", n)
	}

	hash, err := s.hasher.Hash(s.cfg.Seed.User.Password)
	if err != nil {
		return 0, err
	}

	cnt := 0
	for range n {
		user := utils.GenerateRandomUser(hash, s.cfg.Seed.EmailDomain)
		if err := s.store.CreateUser(ctx, user); err != nil {
			slog.Error("failed to insert user", "email", user.Email, "error", err)
			continue
		}
		cnt++
	}

	return cnt, nil
}

// RandomPermissions inserts n random permissions owned by existing users.
func (s *Seeder) RandomPermissions(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid permission count %d", n)
	}

	users, err := s.store.GetAllUsers(ctx)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, errors.New("no users to own permissions, seed users first")
	}

	reviewers := make([]*domain.User, 0)
	for _, u := range users {
		if u.IsReviewer() {
			reviewers = append(reviewers, u)
		}
	}

	cnt := 0
	for range n {
		owner := users[rand.Intn(len(users))]

		var reviewer *domain.User
		if len(reviewers) > 0 {
			reviewer = reviewers[rand.Intn(len(reviewers))]
		}

		p := utils.GenerateRandomPermission(owner, reviewer)
		if err := s.store.CreatePermission(ctx, p); err != nil {
			slog.Error("failed to insert permission", "title", p.Title, "error", err)
			continue
		}
		cnt++
	}

	return cnt, nil
}

// DemoAccounts creates one active account per role, e.g. demo.verificator@<domain>.
// Accounts that already exist are left alone.
func (s *Seeder) DemoAccounts(ctx context.Context) (int, error) {
	hash, err := s.hasher.Hash(s.cfg.Seed.User.Password)
	if err != nil {
		return 0, err
	}

	cnt := 0
	for _, role := range knownRoles {
		local := "demo." + strings.ToLower(string(role))
		user := &domain.User{
			Name:         "Demo " + strings.ToLower(string(role)),
			Email:        local + "@" + s.cfg.Seed.EmailDomain,
			PasswordHash: hash,
			Role:         role,
			Status:       domain.UserStatusActive,
		}

		if err := s.store.CreateUser(ctx, user); err != nil {
			if apperror.IsKind(err, apperror.KindConflict) {
				slog.Info("demo account already exists", "email", user.Email)
				continue
			}
			return cnt, err
		}
		cnt++
	}

	return cnt, nil
}

// ImportUsers reads a CSV with a header row and creates the listed accounts.
// Rows whose email is already registered or whose role is unknown are skipped.
func (s *Seeder) ImportUsers(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// field counts are checked per row below
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(headers[i]))
	}
	for _, h := range requiredHeaders {
		if !slices.Contains(headers, h) {
			return 0, fmt.Errorf("missing column %q", h)
		}
	}

	hash, err := s.hasher.Hash(s.cfg.Seed.User.Password)
	if err != nil {
		return 0, err
	}

	cnt := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return cnt, fmt.Errorf("read line %d: %w", line, err)
		}

		if len(row) != len(headers) {
			slog.Error("skipping row", "line", line, "error", fmt.Sprintf("expected %d fields, got %d", len(headers), len(row)))
			continue
		}

		record := make(map[string]string, len(headers))
		for i, value := range row {
			record[headers[i]] = strings.TrimSpace(value)
		}

		user, err := userFromRecord(record, hash)
		if err != nil {
			slog.Error("skipping row", "line", line, "error", err)
			continue
		}

		if _, err := s.store.GetUserByEmail(ctx, user.Email); err == nil {
			slog.Info("user already exists", "email", user.Email)
			continue
		} else if !apperror.IsKind(err, apperror.KindNotFound) {
			return cnt, err
		}

		if err := s.store.CreateUser(ctx, user); err != nil {
			slog.Error("failed to insert user", "email", user.Email, "error", err)
			continue
		}
		cnt++
	}

	return cnt, nil
}

func userFromRecord(record map[string]string, hash string) (*domain.User, error) {
	name, email := record["name"], strings.ToLower(record["email"])
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}

	role := domain.Role(strings.ToUpper(record["role"]))
	if !slices.Contains(knownRoles, role) {
		return nil, fmt.Errorf("unknown role %q", record["role"])
	}

	status := domain.UserStatusActive
	switch strings.ToUpper(record["status"]) {
	case "":
	case string(domain.UserStatusActive):
	case string(domain.UserStatusInactive):
		status = domain.UserStatusInactive
	default:
		return nil, fmt.Errorf("unknown status %q", record["status"])
	}

	return &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	}, nil
}
