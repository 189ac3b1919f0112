package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/session"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/utils"
)

const (
	errInvalidOTP      = "Invalid verification code"
	errTooManyAttempts = "Too many failed attempts, please request a new code"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkEmailAvailable fails with a conflict when email belongs to a user other than selfID.
func (h *Handler) checkEmailAvailable(ctx context.Context, email, selfID string) error {
	existing, err := h.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return apperror.Conflict("Email already in use")
	case err == nil, apperror.IsKind(err, apperror.KindNotFound):
		return nil
	default:
		return err
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" label:"Name" validate:"required,min=3,max=50"`
		Email    string `json:"email" label:"Email" validate:"required,email"`
		Password string `json:"password" label:"Password" validate:"required,min=8,max=30,password,nospace"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	email := normalizeEmail(req.Email)
	if err := h.checkEmailAvailable(r.Context(), email, ""); err != nil {
		h.fail(w, r, err)
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.UserStatusInactive,
	}

	// the unique constraint still catches a concurrent registration
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}

	h.createdResponse(w, r, "User register successfully", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" label:"Email" validate:"required,email"`
		Password string `json:"password" label:"Password" validate:"required,min=8,max=30,password,nospace"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			h.fail(w, r, apperror.NotFound("Email not found"))
			return
		}
		h.fail(w, r, err)
		return
	}

	ok, err := h.passwords.Verify(user.PasswordHash, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, apperror.Validation("Invalid Password"))
		return
	}

	if !user.IsActive() {
		h.fail(w, r, apperror.Authorization("Email not verified"))
		return
	}

	token, _, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "User login successfully", envelope{"token": token})
}

// Logout revokes the caller's token until it would have expired anyway.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	claims, err := h.tokens.Parse(token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Revoke(r.Context(), token, time.Until(claims.ExpiresAt.Time)); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "User logout successfully", nil)
}

// sendOTP stores a fresh code for purpose and queues it to the user.
func (h *Handler) sendOTP(ctx context.Context, user *domain.User, purpose, mailType string) error {
	otp, err := utils.GenerateRandomOTP()
	if err != nil {
		return err
	}

	ttl := time.Duration(h.config.OTP.Expiration) * time.Second
	if err := h.sessions.SaveOTP(ctx, purpose, user.Email, otp, ttl); err != nil {
		return err
	}

	return h.mailer.Publish(ctx, domain.MailMessage{
		Type: mailType,
		To:   user.Email,
		Data: domain.OTPMailData{
			Name:       user.Name,
			OTP:        otp,
			Expiration: h.config.OTP.Expiration / 60,
		},
	})
}

// checkOTP fails unless otp is the live code for email and purpose. Every
// wrong guess is counted; the code is dropped after OTP.MaxAttempts of them.
func (h *Handler) checkOTP(ctx context.Context, purpose, email, otp string) error {
	ok, err := h.sessions.CheckOTP(ctx, purpose, email, otp)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	exhausted, err := h.sessions.RecordOTPFailure(ctx, purpose, email, h.config.OTP.MaxAttempts)
	if err != nil {
		return err
	}
	if exhausted {
		return apperror.Validation(errTooManyAttempts)
	}
	return apperror.Validation(errInvalidOTP)
}

type otpRequest struct {
	Email string `json:"email" label:"Email" validate:"required,email"`
}

func (h *Handler) RequireVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	const msg = "Verification code has been sent"

	user, err := h.store.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		// unknown addresses get the same answer as known ones
		if apperror.IsKind(err, apperror.KindNotFound) {
			h.successResponse(w, r, msg, nil)
			return
		}
		h.fail(w, r, err)
		return
	}

	if user.IsActive() {
		h.successResponse(w, r, msg, nil)
		return
	}

	if err := h.sendOTP(r.Context(), user, session.PurposeVerifyEmail, domain.MailTypeVerifyEmail); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, msg, nil)
}

func (h *Handler) ConfirmVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" label:"Email" validate:"required,email"`
		OTP   string `json:"otp" label:"Verification code" validate:"required,len=6,numeric"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	email := normalizeEmail(req.Email)
	if err := h.checkOTP(r.Context(), session.PurposeVerifyEmail, email, req.OTP); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user.Status = domain.UserStatusActive
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.DeleteOTP(r.Context(), session.PurposeVerifyEmail, email); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Email verified successfully", nil)
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	const msg = "Reset password code has been sent"

	user, err := h.store.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			h.successResponse(w, r, msg, nil)
			return
		}
		h.fail(w, r, err)
		return
	}

	if err := h.sendOTP(r.Context(), user, session.PurposeResetPassword, domain.MailTypeResetPassword); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, msg, nil)
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" label:"Email" validate:"required,email"`
		OTP      string `json:"otp" label:"Verification code" validate:"required,len=6,numeric"`
		Password string `json:"password" label:"Password" validate:"required,min=8,max=30,password,nospace"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	email := normalizeEmail(req.Email)
	if err := h.checkOTP(r.Context(), session.PurposeResetPassword, email, req.OTP); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user.PasswordHash = hash
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.DeleteOTP(r.Context(), session.PurposeResetPassword, email); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Password reset successfully", nil)
}
