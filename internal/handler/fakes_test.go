package handler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

// fakeStore keeps users and permissions in memory and enforces the same
// unique constraints and version checks as the database.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	permissions map[string]*domain.Permission
	updates     int
	clock       time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]*domain.User),
		permissions: make(map[string]*domain.Permission),
		clock:       time.Now(),
	}
}

// tick keeps created_at strictly increasing so ordering is deterministic.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyPermission(p *domain.Permission) *domain.Permission {
	c := *p
	return &c
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("User not found")
	}
	return copyUser(u), nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (s *fakeStore) GetAllUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (s *fakeStore) emailTaken(email, selfID string) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != selfID {
			return true
		}
	}
	return false
}

func (s *fakeStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, "") {
		return apperror.Conflict("Email already in use")
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.tick()
	user.CreatedAt, user.UpdatedAt, user.Version = now, now, 1
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *fakeStore) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok || stored.Version != user.Version {
		return apperror.Conflict("Record was modified concurrently, please retry")
	}
	if s.emailTaken(user.Email, user.ID) {
		return apperror.Conflict("Email already in use")
	}

	s.updates++
	user.UpdatedAt = s.tick()
	user.Version++
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *fakeStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apperror.NotFound("User not found")
	}
	delete(s.users, id)
	for pid, p := range s.permissions {
		if p.UserID == id {
			delete(s.permissions, pid)
		}
	}
	return nil
}

func (s *fakeStore) GetPermissionByID(_ context.Context, id string) (*domain.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.permissions[id]
	if !ok {
		return nil, apperror.NotFound("Permission not found")
	}
	return copyPermission(p), nil
}

func (s *fakeStore) findByKey(title, userID string, start, end time.Time, exceptID string) *domain.Permission {
	for _, p := range s.permissions {
		if p.ID != exceptID && p.Title == title && p.UserID == userID && p.StartDate.Equal(start) && p.EndDate.Equal(end) {
			return p
		}
	}
	return nil
}

func (s *fakeStore) GetPermissionByKey(_ context.Context, title, userID string, start, end time.Time) (*domain.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.findByKey(title, userID, start, end, ""); p != nil {
		return copyPermission(p), nil
	}
	return nil, apperror.NotFound("Permission not found")
}

func (s *fakeStore) sortedPermissions(keep func(*domain.Permission) bool) []*domain.Permission {
	permissions := make([]*domain.Permission, 0)
	for _, p := range s.permissions {
		if keep(p) {
			permissions = append(permissions, copyPermission(p))
		}
	}
	sort.Slice(permissions, func(i, j int) bool { return permissions[i].CreatedAt.After(permissions[j].CreatedAt) })
	return permissions
}

func (s *fakeStore) GetAllPermissions(_ context.Context) ([]*domain.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	permissions := s.sortedPermissions(func(*domain.Permission) bool { return true })
	for _, p := range permissions {
		owner := copyUser(s.users[p.UserID])
		owner.PasswordHash = ""
		p.User = owner
	}
	return permissions, nil
}

func (s *fakeStore) GetPermissionsByUser(_ context.Context, userID string) ([]*domain.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sortedPermissions(func(p *domain.Permission) bool { return p.UserID == userID }), nil
}

func (s *fakeStore) CreatePermission(_ context.Context, p *domain.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByKey(p.Title, p.UserID, p.StartDate, p.EndDate, "") != nil {
		return apperror.Conflict("Permission already exists")
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.tick()
	p.CreatedAt, p.UpdatedAt, p.Version = now, now, 1
	s.permissions[p.ID] = copyPermission(p)
	return nil
}

func (s *fakeStore) UpdatePermission(_ context.Context, p *domain.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.permissions[p.ID]
	if !ok || stored.Version != p.Version {
		return apperror.Conflict("Record was modified concurrently, please retry")
	}
	if s.findByKey(p.Title, p.UserID, p.StartDate, p.EndDate, p.ID) != nil {
		return apperror.Conflict("Permission already exists")
	}

	s.updates++
	p.UpdatedAt = s.tick()
	p.Version++
	s.permissions[p.ID] = copyPermission(p)
	return nil
}

func (s *fakeStore) DeletePermission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[id]; !ok {
		return apperror.NotFound("Permission not found")
	}
	delete(s.permissions, id)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []domain.MailMessage
	err  error
}

var errBrokerDown = errors.New("broker unavailable")

func (m *fakeMailer) Publish(_ context.Context, msg domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []domain.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.MailMessage(nil), m.sent...)
}
