package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/store"
)

// ErrOwnerOnlyAdmins is returned when someone other than the creator grants or revokes admin.
var ErrOwnerOnlyAdmins = domainerrors.Forbidden("Only the board owner can manage admins")

// AddMemberRequest is the input of AddMember. Role defaults to member.
type AddMemberRequest struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role,omitempty"`
}

// AddMember gives an existing user access to the board. Owner or admin only;
// only the owner may grant admin.
func (s *BoardService) AddMember(ctx context.Context, ref Ref, req AddMemberRequest) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.AddMember", refAttrs(ref)...)
	defer end(&err)

	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return nil, domain.ErrInvalidRole
	}
	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		return nil, domainerrors.Validation("Email is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return s.apply(ctx, ref, accessManage, func(b *domain.Board, now time.Time) error {
		if role == domain.RoleAdmin && !b.CanDelete(ref.UserID) {
			return ErrOwnerOnlyAdmins
		}
		return b.AddMember(user.ID, role, now)
	})
}

// RemoveMember revokes a user's access. Owners and admins may remove members,
// only the owner may remove an admin, and anyone may leave a board.
func (s *BoardService) RemoveMember(ctx context.Context, ref Ref, memberID string) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.RemoveMember",
		refAttrs(ref, attribute.String("member.id", memberID))...)
	defer end(&err)

	level := accessManage
	if memberID == ref.UserID {
		level = accessView
	}
	return s.apply(ctx, ref, level, func(b *domain.Board, _ time.Time) error {
		if role, ok := b.RoleOf(memberID); ok && role == domain.RoleAdmin &&
			memberID != ref.UserID && !b.CanDelete(ref.UserID) {
			return ErrOwnerOnlyAdmins
		}
		return b.RemoveMember(memberID)
	})
}
