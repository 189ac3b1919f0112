package seed

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

type memStore struct {
	mu          sync.Mutex
	users       []*domain.User
	permissions []*domain.Permission
}

func (m *memStore) GetAllUsers(_ context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.User{}, m.users...), nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (m *memStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("Email already in use")
		}
	}
	m.users = append(m.users, user)
	return nil
}

func (m *memStore) CreatePermission(_ context.Context, p *domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissions = append(m.permissions, p)
	return nil
}

func newSeeder(t *testing.T) (*Seeder, *memStore) {
	t.Helper()

	cfg := &config.Config{BcryptCost: 4}
	cfg.Seed.User.Password = "Password123!"
	cfg.Seed.EmailDomain = "example.com"

	store := &memStore{}
	return NewSeeder(cfg, store), store
}

func TestRandomUsers(t *testing.T) {
	s, store := newSeeder(t)

	n, err := s.RandomUsers(t.Context(), 5)
	require.NoError(t, err)

	// random emails may collide, those inserts are skipped
	assert.Equal(t, len(store.users), n)
	require.NotEmpty(t, store.users)

	ok, err := auth.NewPasswordHasher(4).Verify(store.users[0].PasswordHash, "Password123!")
	require.NoError(t, err)
	assert.True(t, ok)
	for _, u := range store.users {
		assert.True(t, strings.HasSuffix(u.Email, "@example.com"))
		assert.Equal(t, store.users[0].PasswordHash, u.PasswordHash)
	}

	_, err = s.RandomUsers(t.Context(), 0)
	assert.Error(t, err)
}

func TestRandomPermissions(t *testing.T) {
	s, store := newSeeder(t)

	_, err := s.RandomPermissions(t.Context(), 3)
	require.Error(t, err)

	owner := &domain.User{ID: "u-1", Email: "a@example.com", Role: domain.RoleUser}
	reviewer := &domain.User{ID: "v-1", Email: "v@example.com", Role: domain.RoleVerificator}
	store.users = []*domain.User{owner, reviewer}

	n, err := s.RandomPermissions(t.Context(), 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	for _, p := range store.permissions {
		assert.Contains(t, []string{"u-1", "v-1"}, p.UserID)
		assert.False(t, p.StartDate.After(p.EndDate))
		if p.Status.IsReviewOutcome() {
			require.NotNil(t, p.VerificatorID)
			assert.Equal(t, "v-1", *p.VerificatorID)
		}
	}
}

func TestDemoAccounts(t *testing.T) {
	s, store := newSeeder(t)

	n, err := s.DemoAccounts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	admin, err := store.GetUserByEmail(t.Context(), "demo.admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive())

	n, err = s.DemoAccounts(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, store.users, 3)
}

func TestImportUsers(t *testing.T) {
	s, store := newSeeder(t)
	store.users = []*domain.User{{ID: "u-0", Email: "taken@example.com"}}

	csv := strings.Join([]string{
		"Name,Email,Role,Status",
		"Alice,ALICE@example.com,user,",
		"Bob,bob@example.com,VERIFICATOR,inactive",
		"Eve,eve@example.com,ROOT,",
		",nobody@example.com,USER,",
		"Taken,taken@example.com,USER,",
		"Carol,carol@example.com,ADMIN,BANNED",
	}, "\n")

	n, err := s.ImportUsers(t.Context(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	alice, err := store.GetUserByEmail(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, alice.Role)
	assert.Equal(t, domain.UserStatusActive, alice.Status)

	bob, err := store.GetUserByEmail(t.Context(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusInactive, bob.Status)
}

func TestImportUsers_MissingColumn(t *testing.T) {
	s, _ := newSeeder(t)

	_, err := s.ImportUsers(t.Context(), strings.NewReader("name,email\nAlice,alice@example.com\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"role"`)
}

func TestImportUsers_SkipsRaggedRows(t *testing.T) {
	s, store := newSeeder(t)

	csv := strings.Join([]string{
		"name,email,role",
		"Alice,alice@example.com,USER,extra",
		"Bob,bob@example.com",
		"Carol,carol@example.com,ADMIN",
	}, "\n")

	n, err := s.ImportUsers(t.Context(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.users, 1)
	assert.Equal(t, "carol@example.com", store.users[0].Email)
}
