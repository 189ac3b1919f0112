// Package validation checks request bodies against the rules declared in their
// struct tags and reports the first violated rule as a client-facing message.
//
// Rules are evaluated in field order and, within a field, in tag order. Field
// names in messages come from the `label` tag, falling back to the json name.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
)

var passwordCharset = regexp.MustCompile(`^[A-Za-z0-9@#!$%^&*]*$`)

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
	now        func() time.Time
}

type message struct {
	tag  string
	text string
}

// Messages use {0} for the field label and {1} for the rule parameter.
var messages = []message{
	{"required", "{0} must not be empty"},
	{"min", "{0} must be at least {1} characters long"},
	{"max", "{0} must not be more than {1} characters long"},
	{"email", "Invalid email format"},
	{"oneof", "{0} must be one of [{1}]"},
	{"password", "Password can only contain letters, numbers, and special characters (@#!$%^&*)"},
	{"nospace", "{0} must not contain spaces"},
	{"notpast", "{0} must be at least today"},
}

func New() (*Validator, error) {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}

	locale := en.New()
	uni := ut.New(locale, locale)
	v.translator, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v.validate, v.translator); err != nil {
		return nil, err
	}

	v.validate.RegisterTagNameFunc(fieldLabel)
	v.validate.RegisterCustomTypeFunc(dateValue, Date{})

	if err := v.validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordCharset.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	if err := v.validate.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t\r\n")
	}); err != nil {
		return nil, err
	}
	if err := v.validate.RegisterValidation("notpast", v.notPast); err != nil {
		return nil, err
	}

	for _, m := range messages {
		if err := v.validate.RegisterTranslation(m.tag, v.translator, register(m), translate); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// Struct validates s and returns a validation error carrying the first failing
// rule's message.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return apperror.Validation(validationErrors[0].Translate(v.translator))
	}
	return apperror.Unknown(err)
}

// notPast accepts times at or after the moment of validation.
func (v *Validator) notPast(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.Before(v.now())
}

func register(m message) validator.RegisterTranslationsFunc {
	return func(trans ut.Translator) error {
		return trans.Add(m.tag, m.text, true)
	}
}

func translate(trans ut.Translator, fe validator.FieldError) string {
	msg, err := trans.T(fe.Tag(), fe.Field(), fe.Param())
	if err != nil {
		return fe.Error()
	}
	return msg
}

func fieldLabel(fld reflect.StructField) string {
	if label := fld.Tag.Get("label"); label != "" {
		return label
	}
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
