package utils

import (
	"time"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
)

func ValidatePermissionPeriod(start, end time.Time) error {
	if start.After(end) {
		return apperror.Validation("Start date must not be after end date")
	}
	return nil
}
