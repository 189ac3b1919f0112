package handler

import (
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.GetAllUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Users fetched successfully", envelope{"users": users})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" label:"Name" validate:"required,min=3,max=50"`
		Email    string `json:"email" label:"Email" validate:"required,email"`
		Password string `json:"password" label:"Password" validate:"required,min=8,max=30,password,nospace"`
		Role     string `json:"role" label:"Role" validate:"required,oneof=USER ADMIN VERIFICATOR"`
		Status   string `json:"status" label:"Status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
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
		Role:         domain.Role(req.Role),
		Status:       domain.UserStatusInactive,
	}
	if req.Status != "" {
		user.Status = domain.UserStatus(req.Status)
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.mailer.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   user.Email,
		Data: domain.CreateUserMailData{Name: user.Name, Email: user.Email, Role: user.Role},
	}); err != nil {
		slog.Warn("failed to queue account mail", "user_id", user.ID, "error", err)
	}

	h.createdResponse(w, r, "User created successfully", envelope{"user": user})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "User fetched successfully", envelope{"user": userInfo(r)})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string `json:"name" label:"Name" validate:"omitempty,min=3,max=50"`
		Email    *string `json:"email" label:"Email" validate:"omitempty,email"`
		Password *string `json:"password" label:"Password" validate:"omitempty,min=8,max=30,password,nospace"`
		Role     *string `json:"role" label:"Role" validate:"omitempty,oneof=USER ADMIN VERIFICATOR"`
		Status   *string `json:"status" label:"Status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user := userInfo(r)

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := h.checkEmailAvailable(r.Context(), email, user.ID); err != nil {
			h.fail(w, r, err)
			return
		}
		user.Email = email
	}
	if req.Password != nil {
		hash, err := h.passwords.Hash(*req.Password)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		user.Role = domain.Role(*req.Role)
	}
	if req.Status != nil {
		user.Status = domain.UserStatus(*req.Status)
	}

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "User updated successfully", envelope{"user": user})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteUser(r.Context(), userInfo(r).ID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "User deleted successfully", nil)
}
