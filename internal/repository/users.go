package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

const errUserNotFound = "User not found"

const userColumns = `id, name, email, password_hash, role, status, created_at, updated_at, version`

func userDst(user *domain.User) []any {
	return []any{&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.Status, &user.CreatedAt, &user.UpdatedAt, &user.Version}
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(userDst(user)...); err != nil {
		return nil, translateError(err, errUserNotFound)
	}

	return user, nil
}

// GetUserByEmail expects email to be normalized already.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(userDst(user)...); err != nil {
		return nil, translateError(err, errUserNotFound)
	}

	return user, nil
}

func (r *Repository) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError(err, errUserNotFound)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(userDst(user)...); err != nil {
			return nil, translateError(err, errUserNotFound)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError(err, errUserNotFound)
	}

	return users, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	args := []any{user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Status}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.CreatedAt, &user.UpdatedAt, &user.Version); err != nil {
		return translateError(err, errUserNotFound)
	}

	return nil
}

// UpdateUser writes every mutable column, guarded by the version read earlier.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET
			name = $1,
			email = $2,
			password_hash = $3,
			role = $4,
			status = $5,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{user.Name, user.Email, user.PasswordHash, user.Role, user.Status, user.ID, user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.UpdatedAt, &user.Version); err != nil {
		return translateUpdateError(err)
	}

	return nil
}

func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err, errUserNotFound)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return translateError(err, errUserNotFound)
	}
	if n == 0 {
		return apperror.NotFound(errUserNotFound)
	}

	return nil
}
