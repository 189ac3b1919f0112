package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

const errPermissionNotFound = "Permission not found"

const permissionColumns = `
	p.id, p.title, p.description, p.start_date, p.end_date, p.status, p.user_id,
	p.verificator_id, p.verificator_comment, p.created_at, p.updated_at, p.version
`

func permissionDst(p *domain.Permission) []any {
	return []any{
		&p.ID, &p.Title, &p.Description, &p.StartDate, &p.EndDate, &p.Status, &p.UserID,
		&p.VerificatorID, &p.VerificatorComment, &p.CreatedAt, &p.UpdatedAt, &p.Version,
	}
}

func scanPermissions(rows *sql.Rows, withUser bool) ([]*domain.Permission, error) {
	defer rows.Close()

	permissions := make([]*domain.Permission, 0)
	for rows.Next() {
		p := &domain.Permission{}
		dst := permissionDst(p)
		if withUser {
			// password hash is never selected with the owner
			p.User = &domain.User{}
			dst = append(dst, &p.User.ID, &p.User.Name, &p.User.Email, &p.User.Role, &p.User.Status, &p.User.CreatedAt, &p.User.UpdatedAt)
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, translateError(err, errPermissionNotFound)
		}
		permissions = append(permissions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError(err, errPermissionNotFound)
	}

	return permissions, nil
}

func (r *Repository) GetPermissionByID(ctx context.Context, id string) (*domain.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions p WHERE p.id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	p := &domain.Permission{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(permissionDst(p)...); err != nil {
		return nil, translateError(err, errPermissionNotFound)
	}

	return p, nil
}

// GetPermissionByKey looks a permission up by its unique (title, owner, start, end) tuple.
func (r *Repository) GetPermissionByKey(ctx context.Context, title, userID string, start, end time.Time) (*domain.Permission, error) {
	query := `
		SELECT ` + permissionColumns + ` FROM permissions p
		WHERE p.title = $1 AND p.user_id = $2 AND p.start_date = $3 AND p.end_date = $4
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	p := &domain.Permission{}
	if err := r.dbpool.QueryRowContext(ctx, query, title, userID, start, end).Scan(permissionDst(p)...); err != nil {
		return nil, translateError(err, errPermissionNotFound)
	}

	return p, nil
}

// GetAllPermissions returns every permission together with its owner.
func (r *Repository) GetAllPermissions(ctx context.Context) ([]*domain.Permission, error) {
	query := `
		SELECT ` + permissionColumns + `,
			u.id, u.name, u.email, u.role, u.status, u.created_at, u.updated_at
		FROM permissions p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError(err, errPermissionNotFound)
	}

	return scanPermissions(rows, true)
}

func (r *Repository) GetPermissionsByUser(ctx context.Context, userID string) ([]*domain.Permission, error) {
	query := `
		SELECT ` + permissionColumns + ` FROM permissions p
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translateError(err, errPermissionNotFound)
	}

	return scanPermissions(rows, false)
}

func (r *Repository) CreatePermission(ctx context.Context, p *domain.Permission) error {
	query := `
		INSERT INTO permissions (id, title, description, start_date, end_date, status, user_id, verificator_id, verificator_comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	args := []any{p.ID, p.Title, p.Description, p.StartDate, p.EndDate, p.Status, p.UserID, p.VerificatorID, p.VerificatorComment}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&p.CreatedAt, &p.UpdatedAt, &p.Version); err != nil {
		return translateError(err, errPermissionNotFound)
	}

	return nil
}

func (r *Repository) UpdatePermission(ctx context.Context, p *domain.Permission) error {
	query := `
		UPDATE permissions
		SET
			title = $1,
			description = $2,
			start_date = $3,
			end_date = $4,
			status = $5,
			verificator_id = $6,
			verificator_comment = $7,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{p.Title, p.Description, p.StartDate, p.EndDate, p.Status, p.VerificatorID, p.VerificatorComment, p.ID, p.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&p.UpdatedAt, &p.Version); err != nil {
		return translateUpdateError(err)
	}

	return nil
}

func (r *Repository) DeletePermission(ctx context.Context, id string) error {
	query := `DELETE FROM permissions WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err, errPermissionNotFound)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return translateError(err, errPermissionNotFound)
	}
	if n == 0 {
		return apperror.NotFound(errPermissionNotFound)
	}

	return nil
}
