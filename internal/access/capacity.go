// Package access holds the two authorization models: a workspace-wide
// capacity list (file-storage backend) and per-entity share lists
// (database backend). Everything here is pure; callers persist the result.
package access

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

const DefaultMaxMembers = 2

type Capacity struct {
	MaxMembers int
}

func NewCapacity(maxMembers int) Capacity {
	if maxMembers <= 0 {
		maxMembers = DefaultMaxMembers
	}
	return Capacity{MaxMembers: maxMembers}
}

// NewMetadata is the record written when the first principal opens an empty workspace.
func NewMetadata(ownerEmail string, now time.Time) *model.WorkspaceMetadata {
	ownerEmail = model.NormalizeEmail(ownerEmail)
	return &model.WorkspaceMetadata{
		OwnerEmail:       ownerEmail,
		InvitedUserEmail: nil,
		ConnectedUsers:   []string{ownerEmail},
		CreatedAt:        now,
	}
}

// Validate rejects records that break the membership invariants.
func (c Capacity) Validate(meta *model.WorkspaceMetadata) error {
	if meta == nil {
		return fmt.Errorf("%w: metadata missing", appErr.ErrMalformed)
	}
	if strings.TrimSpace(meta.OwnerEmail) == "" {
		return fmt.Errorf("%w: metadata owner missing", appErr.ErrMalformed)
	}
	if len(meta.ConnectedUsers) > c.MaxMembers {
		return fmt.Errorf("%w: %d connected users exceeds %d", appErr.ErrMalformed, len(meta.ConnectedUsers), c.MaxMembers)
	}
	if !meta.IsConnected(meta.OwnerEmail) {
		return fmt.Errorf("%w: owner is not a member", appErr.ErrMalformed)
	}
	return nil
}

func (c Capacity) Full(meta *model.WorkspaceMetadata) bool {
	return len(meta.ConnectedUsers) >= c.MaxMembers
}

// Admit decides whether email may enter the workspace. When the pending
// invitee signs in the first time it returns an updated copy and
// changed=true; repeated sign-ins return changed=false.
func (c Capacity) Admit(meta *model.WorkspaceMetadata, email string) (*model.WorkspaceMetadata, bool, error) {
	if meta.IsConnected(email) {
		return meta, false, nil
	}
	if c.Full(meta) {
		return nil, false, appErr.ErrWorkspaceFull
	}
	if meta.InvitedUserEmail != nil && model.SameEmail(*meta.InvitedUserEmail, email) {
		next := meta.Clone()
		next.ConnectedUsers = append(next.ConnectedUsers, model.NormalizeEmail(email))
		return next, true, nil
	}
	return nil, false, appErr.ErrNotInvited
}

// CheckInvite validates an invitation issued by inviter.
func (c Capacity) CheckInvite(meta *model.WorkspaceMetadata, inviter, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if !model.SameEmail(meta.OwnerEmail, inviter) {
		return fmt.Errorf("%w: only the owner can invite", appErr.ErrForbidden)
	}
	if c.Full(meta) {
		return appErr.ErrWorkspaceFull
	}
	if meta.IsConnected(email) {
		return appErr.ErrAlreadyConnected
	}
	return nil
}

// Invite returns a copy of meta with the pending invite set.
func (c Capacity) Invite(meta *model.WorkspaceMetadata, email string) *model.WorkspaceMetadata {
	next := meta.Clone()
	email = model.NormalizeEmail(email)
	next.InvitedUserEmail = &email
	return next
}

func (c Capacity) CanInvite(meta *model.WorkspaceMetadata, email string) bool {
	if meta == nil {
		return false
	}
	return model.SameEmail(meta.OwnerEmail, email) && !c.Full(meta)
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email required", appErr.ErrInvalid)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: bad email %q", appErr.ErrInvalid, email)
	}
	return nil
}
