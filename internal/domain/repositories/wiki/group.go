package wiki

import (
	"context"

	"wikitree/internal/domain/models/wiki"
)

// GroupRepository stores user groups and their memberships.
type GroupRepository interface {
	Create(ctx context.Context, group *wiki.UserGroup) error
	GetByID(ctx context.Context, id string) (*wiki.UserGroup, error)

	// Delete removes the group and all of its memberships.
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error

	// ListGroupIDsByUser returns the ids of every group userID belongs to.
	ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error)

	CountByGroupAndUser(ctx context.Context, groupID, userID string) (int, error)
}
