package mailqueue

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

func encode(t *testing.T, msg domain.MailMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func execute(t *testing.T, r *Rendered) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Template.Execute(&buf, r.Data))
	return buf.String()
}

func TestDecode_OTP(t *testing.T) {
	body := encode(t, domain.MailMessage{
		Type: domain.MailTypeVerifyEmail,
		To:   "alice@example.com",
		Data: domain.OTPMailData{Name: "Alice", OTP: "012345", Expiration: 15},
	})

	r, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", r.To)
	assert.Equal(t, "Permission Manager - Verify your email", r.Subject)

	html := execute(t, r)
	assert.Contains(t, html, "012345")
	assert.Contains(t, html, "15 minutes")
}

func TestDecode_PermissionStatus(t *testing.T) {
	body := encode(t, domain.MailMessage{
		Type: domain.MailTypePermissionStatus,
		To:   "alice@example.com",
		Data: domain.PermissionStatusMailData{Name: "Alice", Title: "Family trip", Status: domain.PermissionApproved, VerificatorComment: "<ok>"},
	})

	r, err := Decode(body)
	require.NoError(t, err)

	html := execute(t, r)
	assert.Contains(t, html, "Family trip")
	assert.Contains(t, html, "APPROVED")
	assert.Contains(t, html, "&lt;ok&gt;")
}

func TestDecode_CreateUser(t *testing.T) {
	body := encode(t, domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   "bob@example.com",
		Data: domain.CreateUserMailData{Name: "Bob", Email: "bob@example.com", Role: domain.RoleVerificator},
	})

	r, err := Decode(body)
	require.NoError(t, err)
	assert.Contains(t, execute(t, r), "VERIFICATOR")
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode(encode(t, domain.MailMessage{Type: "change_email", To: "a@example.com"}))
	assert.ErrorContains(t, err, "unsupported mail type")

	_, err = Decode(encode(t, domain.MailMessage{Type: domain.MailTypeResetPassword}))
	assert.ErrorContains(t, err, "no recipient")
}
