package domain

const (
	MailTypeCreateUser       = "create_user"
	MailTypeVerifyEmail      = "verify_email"
	MailTypeResetPassword    = "reset_password"
	MailTypePermissionStatus = "permission_status"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type OTPMailData struct {
	Name       string `json:"name"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"` // minutes
}

type PermissionStatusMailData struct {
	Name               string           `json:"name"`
	Title              string           `json:"title"`
	Status             PermissionStatus `json:"status"`
	VerificatorComment string           `json:"verificatorComment"`
}
