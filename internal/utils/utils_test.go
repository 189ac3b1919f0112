package utils

import (
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

func TestGenerateRandomOTP(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 50; i++ {
		otp, err := GenerateRandomOTP()
		require.NoError(t, err)
		assert.Regexp(t, re, otp)
	}
}

func TestGenerateRandomUser(t *testing.T) {
	local := regexp.MustCompile(`^[a-z]+[0-9]{2,4}$`)
	for i := 0; i < 20; i++ {
		u := GenerateRandomUser("hash", "example.com")
		assert.True(t, strings.HasSuffix(u.Email, "@example.com"))
		assert.Regexp(t, local, strings.TrimSuffix(u.Email, "@example.com"))
		assert.Equal(t, "hash", u.PasswordHash)
		assert.True(t, u.IsActive())
		assert.GreaterOrEqual(t, len([]rune(u.Name)), 2)
	}
}

func TestGenerateRandomPermission(t *testing.T) {
	owner := &domain.User{ID: "u-1", Role: domain.RoleUser}
	reviewer := &domain.User{ID: "v-1", Role: domain.RoleVerificator}

	for i := 0; i < 50; i++ {
		p := GenerateRandomPermission(owner, reviewer)
		assert.Equal(t, "u-1", p.UserID)
		assert.False(t, p.StartDate.After(p.EndDate))
		assert.True(t, p.EndDate.After(time.Now()))
		if p.Status.IsReviewOutcome() {
			require.NotNil(t, p.VerificatorID)
			assert.Equal(t, "v-1", *p.VerificatorID)
		}
	}
}

func TestValidatePermissionPeriod(t *testing.T) {
	now := time.Now()

	assert.NoError(t, ValidatePermissionPeriod(now, now))
	assert.NoError(t, ValidatePermissionPeriod(now, now.Add(time.Hour)))

	err := ValidatePermissionPeriod(now.Add(time.Hour), now)
	require.Error(t, err)
	appErr := apperror.From(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "Start date must not be after end date", appErr.Message)
}
