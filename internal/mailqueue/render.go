package mailqueue

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type layout struct {
	subject  string
	template string
}

var layouts = map[string]layout{
	domain.MailTypeCreateUser:       {"Permission Manager - Your account", "create_user.html"},
	domain.MailTypeVerifyEmail:      {"Permission Manager - Verify your email", "verify_email.html"},
	domain.MailTypeResetPassword:    {"Permission Manager - Reset your password", "reset_password.html"},
	domain.MailTypePermissionStatus: {"Permission Manager - Permission status updated", "permission_status.html"},
}

// Rendered is a mail ready to hand to an SMTP client.
type Rendered struct {
	To       string
	Subject  string
	Template *template.Template
	Data     any
}

type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Decode parses a queued message body and picks the template for its type.
func Decode(body []byte) (*Rendered, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	l, ok := layouts[env.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mail type %q", env.Type)
	}
	if env.To == "" {
		return nil, fmt.Errorf("mail of type %q has no recipient", env.Type)
	}

	var data any
	switch env.Type {
	case domain.MailTypeCreateUser:
		data = &domain.CreateUserMailData{}
	case domain.MailTypeVerifyEmail, domain.MailTypeResetPassword:
		data = &domain.OTPMailData{}
	case domain.MailTypePermissionStatus:
		data = &domain.PermissionStatusMailData{}
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return nil, err
	}

	return &Rendered{
		To:       env.To,
		Subject:  l.subject,
		Template: templates.Lookup(l.template),
		Data:     data,
	}, nil
}
