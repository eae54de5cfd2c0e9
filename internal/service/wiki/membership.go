package wiki

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"wikitree/internal/domain/models/wiki"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
)

// DefaultMembershipTTL is how long a user's group list is reused.
const DefaultMembershipTTL = 5 * time.Minute

// Membership resolves which groups a user belongs to.
type Membership interface {
	// GroupIDs returns the ids of the user's groups. A guest has none.
	GroupIDs(ctx context.Context, user *wiki.User) ([]string, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)

	// Invalidate drops the cached groups of one user, Flush of every user.
	Invalidate(userID string)
	Flush()
}

// MembershipCache reads memberships from the group repository and keeps
// each user's group ids for a TTL.
type MembershipCache struct {
	groups wikiRepo.GroupRepository
	cache  *cache.Cache
}

// NewMembershipCache creates a membership resolver over groups
func NewMembershipCache(groups wikiRepo.GroupRepository, ttl time.Duration) *MembershipCache {
	if ttl <= 0 {
		ttl = DefaultMembershipTTL
	}
	return &MembershipCache{
		groups: groups,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (m *MembershipCache) GroupIDs(ctx context.Context, user *wiki.User) ([]string, error) {
	if user == nil {
		return nil, nil
	}
	if cached, found := m.cache.Get(user.ID); found {
		return slices.Clone(cached.([]string)), nil
	}

	ids, err := m.groups.ListGroupIDsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list groups of user %s: %w", user.ID, err)
	}
	m.cache.Set(user.ID, ids, cache.DefaultExpiration)
	return slices.Clone(ids), nil
}

// IsMember always asks the repository; scope validation must not act on a
// stale membership.
func (m *MembershipCache) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	n, err := m.groups.CountByGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

func (m *MembershipCache) Invalidate(userID string) {
	m.cache.Delete(userID)
}

func (m *MembershipCache) Flush() {
	m.cache.Flush()
}
