package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
)

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "Authenticated successfully", envelope{"user": me(r)})
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name" label:"Name" validate:"required,min=3,max=50"`
		Email string `json:"email" label:"Email" validate:"required,email"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user := me(r)
	email := normalizeEmail(req.Email)
	if err := h.checkEmailAvailable(r.Context(), email, user.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	user.Name = req.Name
	user.Email = email
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Account updated successfully", envelope{"user": user})
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password           string `json:"password" label:"Password" validate:"required"`
		NewPassword        string `json:"newPassword" label:"New password" validate:"required,min=8,max=30,password,nospace"`
		NewConfirmPassword string `json:"newConfirmPassword" label:"Confirm password" validate:"required"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if req.NewPassword != req.NewConfirmPassword {
		h.fail(w, r, apperror.Validation("New password and confirm password must be the same"))
		return
	}

	user := me(r)

	ok, err := h.passwords.Verify(user.PasswordHash, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, apperror.Validation("Invalid Password"))
		return
	}

	same, err := h.passwords.Verify(user.PasswordHash, req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if same {
		h.fail(w, r, apperror.Validation("New password must be different from current password"))
		return
	}

	hash, err := h.passwords.Hash(req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user.PasswordHash = hash
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Password updated successfully", nil)
}
