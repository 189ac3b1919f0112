package repository

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
)

const errConcurrentUpdate = "Record was modified concurrently, please retry"

type storageCode struct {
	status  int
	message string
}

// SQLSTATE codes reported to clients. Anything else is a 500.
var storageCodes = map[string]storageCode{
	"23505": {http.StatusConflict, "Unique constraint failed"},
	"23503": {http.StatusBadRequest, "Foreign key constraint failed"},
	"23502": {http.StatusBadRequest, "Null constraint violation"},
	"23514": {http.StatusBadRequest, "Constraint failed"},
	"22001": {http.StatusBadRequest, "Value too long for column type"},
	"22P02": {http.StatusBadRequest, "Invalid value for field"},
}

// Unique constraints double as the duplicate checks of the API.
var constraintMessages = map[string]string{
	"users_email_key": "Email already in use",
	"permissions_title_user_id_start_date_end_date_key": "Permission already exists",
}

// translateError maps driver errors onto API errors. notFound is the message
// used when the statement matched no row.
func translateError(err error, notFound string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := constraintMessages[pgErr.ConstraintName]; ok {
			appErr := apperror.Conflict(msg)
			appErr.Err = err
			return appErr
		}
		if code, ok := storageCodes[pgErr.Code]; ok {
			return apperror.Storage(code.status, code.message, err)
		}
		return apperror.Storage(http.StatusInternalServerError, "Database error", err)
	}

	return apperror.Unknown(err)
}

// translateUpdateError treats a missing row after a versioned update as a lost race.
func translateUpdateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.Conflict(errConcurrentUpdate)
	}
	return translateError(err, "")
}
