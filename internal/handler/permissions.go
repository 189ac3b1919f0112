package handler

import (
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/utils"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/validation"
)

func (h *Handler) GetAllPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.store.GetAllPermissions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Permissions fetched successfully", envelope{"permissions": permissions})
}

func (h *Handler) GetMyPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.store.GetPermissionsByUser(r.Context(), me(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Permissions fetched successfully", envelope{"permissions": permissions})
}

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string          `json:"title" label:"Title" validate:"required,min=3,max=50"`
		Description string          `json:"description" label:"Description" validate:"required,min=3,max=500"`
		StartDate   validation.Date `json:"startDate" label:"Start date" validate:"required"`
		EndDate     validation.Date `json:"endDate" label:"End date" validate:"required,notpast"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := utils.ValidatePermissionPeriod(req.StartDate.Time, req.EndDate.Time); err != nil {
		h.fail(w, r, err)
		return
	}

	owner := me(r)

	_, err := h.store.GetPermissionByKey(r.Context(), req.Title, owner.ID, req.StartDate.Time, req.EndDate.Time)
	switch {
	case err == nil:
		h.fail(w, r, apperror.Conflict("Permission already exists"))
		return
	case !apperror.IsKind(err, apperror.KindNotFound):
		h.fail(w, r, err)
		return
	}

	p := domain.NewPermission(owner, req.Title, req.Description, req.StartDate.Time, req.EndDate.Time)
	if err := h.store.CreatePermission(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}

	h.createdResponse(w, r, "Permission created successfully", envelope{"permission": p})
}

func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	p := permissionInfo(r)
	if err := p.CheckViewableBy(me(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Permission fetched successfully", envelope{"permission": p})
}

func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	p := permissionInfo(r)
	if err := p.CheckEditableBy(me(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	var req struct {
		Title       *string          `json:"title" label:"Title" validate:"omitempty,min=3,max=50"`
		Description *string          `json:"description" label:"Description" validate:"omitempty,min=3,max=500"`
		StartDate   *validation.Date `json:"startDate" label:"Start date"`
		EndDate     *validation.Date `json:"endDate" label:"End date" validate:"omitempty,notpast"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	changes := domain.PermissionChanges{Title: req.Title, Description: req.Description}
	if req.StartDate != nil {
		changes.StartDate = &req.StartDate.Time
	}
	if req.EndDate != nil {
		changes.EndDate = &req.EndDate.Time
	}
	p.Apply(changes)

	if err := utils.ValidatePermissionPeriod(p.StartDate, p.EndDate); err != nil {
		h.fail(w, r, err)
		return
	}

	// a clash with another permission of the same owner surfaces through the unique constraint
	if err := h.store.UpdatePermission(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Permission updated successfully", envelope{"permission": p})
}

func (h *Handler) CancelPermission(w http.ResponseWriter, r *http.Request) {
	p := permissionInfo(r)
	if err := p.CancelBy(me(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.store.UpdatePermission(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Permission cancelled successfully", envelope{"permission": p})
}

func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	p := permissionInfo(r)
	if err := p.CheckDeletableBy(me(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.store.DeletePermission(r.Context(), p.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.successResponse(w, r, "Permission deleted successfully", nil)
}

func (h *Handler) UpdatePermissionStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status             string  `json:"status" label:"Status" validate:"required,oneof=APPROVED REJECTED REVISED"`
		VerificatorComment *string `json:"verificatorComment" label:"Verificator comment" validate:"omitempty,min=3"`
	}

	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p := permissionInfo(r)
	if err := p.Review(me(r), domain.PermissionStatus(req.Status), req.VerificatorComment, h.config.Permission.AllowTerminalOverride); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.store.UpdatePermission(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}

	h.notifyStatusChange(r, p)

	h.successResponse(w, r, "Permission status updated successfully", envelope{"permission": p})
}

// notifyStatusChange mails the owner about a review. The update is already
// committed, so failures are only logged.
func (h *Handler) notifyStatusChange(r *http.Request, p *domain.Permission) {
	owner, err := h.store.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		slog.Warn("failed to load permission owner for notification", "permission_id", p.ID, "error", err)
		return
	}

	data := domain.PermissionStatusMailData{Name: owner.Name, Title: p.Title, Status: p.Status}
	if p.VerificatorComment != nil {
		data.VerificatorComment = *p.VerificatorComment
	}

	if err := h.mailer.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailTypePermissionStatus,
		To:   owner.Email,
		Data: data,
	}); err != nil {
		slog.Warn("failed to queue permission status mail", "permission_id", p.ID, "error", err)
	}
}
