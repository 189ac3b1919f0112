package domain

import (
	"time"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
)

type PermissionStatus string

const (
	PermissionPending   PermissionStatus = "PENDING"
	PermissionRevised   PermissionStatus = "REVISED"
	PermissionApproved  PermissionStatus = "APPROVED"
	PermissionRejected  PermissionStatus = "REJECTED"
	PermissionCancelled PermissionStatus = "CANCELLED"
)

// Open permissions are still in the hands of their owner.
func (s PermissionStatus) IsOpen() bool {
	return s == PermissionPending || s == PermissionRevised
}

func (s PermissionStatus) IsTerminal() bool {
	return s == PermissionApproved || s == PermissionRejected || s == PermissionCancelled
}

// IsReviewOutcome reports whether a reviewer may move a permission into s.
func (s PermissionStatus) IsReviewOutcome() bool {
	return s == PermissionApproved || s == PermissionRejected || s == PermissionRevised
}

type Permission struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	StartDate          time.Time        `json:"startDate"`
	EndDate            time.Time        `json:"endDate"`
	Status             PermissionStatus `json:"status"`
	UserID             string           `json:"userId"`
	User               *User            `json:"user,omitempty"`
	VerificatorID      *string          `json:"verificatorId"`
	VerificatorComment *string          `json:"verificatorComment"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	Version            int32            `json:"-"`
}

// PermissionChanges holds the owner-editable fields; nil means unchanged.
type PermissionChanges struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

func NewPermission(owner *User, title, description string, start, end time.Time) *Permission {
	return &Permission{
		Title:       title,
		Description: description,
		StartDate:   start,
		EndDate:     end,
		Status:      PermissionPending,
		UserID:      owner.ID,
	}
}

func (p *Permission) IsOwnedBy(u *User) bool {
	return u != nil && p.UserID == u.ID
}

func (p *Permission) CheckViewableBy(actor *User) error {
	if !p.IsOwnedBy(actor) && !actor.IsReviewer() {
		return apperror.Authorization("You are not authorized to access this permission")
	}
	return nil
}

func (p *Permission) CheckEditableBy(actor *User) error {
	if !p.IsOwnedBy(actor) {
		return apperror.Authorization("You are not authorized to update this permission")
	}
	if !p.Status.IsOpen() {
		return apperror.Validation("Permission cannot be updated because it is already processed")
	}
	return nil
}

// Apply copies the non-nil changes onto p. Callers check CheckEditableBy first.
func (p *Permission) Apply(c PermissionChanges) {
	if c.Title != nil {
		p.Title = *c.Title
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.StartDate != nil {
		p.StartDate = *c.StartDate
	}
	if c.EndDate != nil {
		p.EndDate = *c.EndDate
	}
}

func (p *Permission) CancelBy(actor *User) error {
	if !p.IsOwnedBy(actor) {
		return apperror.Authorization("You are not authorized to cancel this permission")
	}
	if !p.Status.IsOpen() {
		return apperror.Validation("Permission cannot be cancelled because it is already processed")
	}
	p.Status = PermissionCancelled
	return nil
}

// CheckDeletableBy lets reviewers delete unconditionally. Owners may delete
// anything that has not been approved or rejected.
func (p *Permission) CheckDeletableBy(actor *User) error {
	if actor.IsReviewer() {
		return nil
	}
	if !p.IsOwnedBy(actor) {
		return apperror.Authorization("You are not authorized to delete this permission")
	}
	if p.Status == PermissionApproved || p.Status == PermissionRejected {
		return apperror.Validation("Permission already approved or rejected")
	}
	return nil
}

// Review records a reviewer decision. A nil comment keeps the previous one.
// Unless allowTerminalOverride is set, decided permissions can not be reviewed again.
func (p *Permission) Review(reviewer *User, status PermissionStatus, comment *string, allowTerminalOverride bool) error {
	if !reviewer.IsReviewer() {
		return apperror.Authorization("You do not have permission to access")
	}
	if !status.IsReviewOutcome() {
		return apperror.Validation("Status must be one of [APPROVED REJECTED REVISED]")
	}
	if !allowTerminalOverride && p.Status.IsTerminal() {
		return apperror.Validation("Permission already processed")
	}

	p.Status = status
	reviewerID := reviewer.ID
	p.VerificatorID = &reviewerID
	if comment != nil {
		p.VerificatorComment = comment
	}
	return nil
}
