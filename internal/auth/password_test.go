package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123!", hash)

	ok, err := h.Verify(hash, "Secret123!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, "Secret124!")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	t.Parallel()

	ok, err := NewPasswordHasher(bcrypt.MinCost).Verify("not-a-hash", "Secret123!")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewPasswordHasher_CostOutOfRange(t *testing.T) {
	t.Parallel()

	hash, err := NewPasswordHasher(0).Hash("Secret123!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
