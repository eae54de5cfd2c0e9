package wiki

import (
	"maps"
	"slices"
	"time"
)

// Grant is the visibility level of a page.
type Grant int

const (
	GrantPublic     Grant = 1 // everyone
	GrantRestricted Grant = 2 // anyone with the link
	GrantSpecified  Grant = 3 // listed users
	GrantOwner      Grant = 4 // only me
	GrantUserGroup  Grant = 5 // members of one group
)

var grantLabels = map[Grant]string{
	GrantPublic:     "Public",
	GrantRestricted: "Anyone with the link",
	GrantSpecified:  "Specified users only",
	GrantOwner:      "Just me",
	GrantUserGroup:  "Only inside the group",
}

// Valid reports whether g is one of the known grants.
func (g Grant) Valid() bool {
	_, ok := grantLabels[g]
	return ok
}

// Label returns a human-readable name for g.
func (g Grant) Label() string {
	if l, ok := grantLabels[g]; ok {
		return l
	}
	return "Unknown"
}

// Status is the lifecycle state of a page.
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
)

// SlackChannelKey is the key of the Slack channel list inside Extended.
const SlackChannelKey = "slack"

// Page is a node of the implicit page tree. Ancestry is derived from Path.
type Page struct {
	ID             string         `json:"id" db:"id"`
	Path           string         `json:"path" db:"path"`
	RevisionID     *string        `json:"revision,omitempty" db:"revision_id"`
	RedirectTo     *string        `json:"redirect_to,omitempty" db:"redirect_to"`
	Status         Status         `json:"status" db:"status"`
	Grant          Grant          `json:"grant" db:"grant"`
	GrantedUsers   []string       `json:"granted_users" db:"granted_users"`
	GrantedGroup   *string        `json:"granted_group,omitempty" db:"granted_group"`
	Creator        *string        `json:"creator,omitempty" db:"creator"`
	LastUpdateUser *string        `json:"last_update_user,omitempty" db:"last_update_user"`
	Liker          []string       `json:"liker" db:"liker"`
	SeenUsers      []string       `json:"seen_users" db:"seen_users"`
	CommentCount   int            `json:"comment_count" db:"comment_count"`
	Extended       map[string]any `json:"extended,omitempty" db:"extended"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`

	// Populated by detail reads, never persisted
	LatestRevision *string   `json:"latest_revision,omitempty" db:"-"`
	RevisionData   *Revision `json:"revision_data,omitempty" db:"-"`
}

// IsPublished reports whether the page is live (a missing status counts as published).
func (p *Page) IsPublished() bool {
	return p.Status == "" || p.Status == StatusPublished
}

// IsDeleted reports whether the page has been soft deleted.
func (p *Page) IsDeleted() bool {
	return p.Status == StatusDeleted
}

// IsRedirect reports whether the page is a redirect stub.
func (p *Page) IsRedirect() bool {
	return p.RedirectTo != nil
}

// IsUpdatable reports whether an edit based on previousRevision may be
// applied. An edit made against a stale revision is rejected.
func (p *Page) IsUpdatable(previousRevision string) bool {
	current := ""
	if p.LatestRevision != nil {
		current = *p.LatestRevision
	} else if p.RevisionID != nil {
		current = *p.RevisionID
	}
	return current == previousRevision
}

// IsLiked reports whether userID likes the page.
func (p *Page) IsLiked(userID string) bool {
	return slices.Contains(p.Liker, userID)
}

// IsGrantedUser reports whether userID is in GrantedUsers.
func (p *Page) IsGrantedUser(userID string) bool {
	return slices.Contains(p.GrantedUsers, userID)
}

// IsCreator reports whether userID created the page.
func (p *Page) IsCreator(userID string) bool {
	return p.Creator != nil && *p.Creator == userID
}

// Like adds userID to Liker. It returns false when already present.
func (p *Page) Like(userID string) bool {
	if p.IsLiked(userID) {
		return false
	}
	p.Liker = append(p.Liker, userID)
	return true
}

// Unlike removes userID from Liker. It returns false when absent.
func (p *Page) Unlike(userID string) bool {
	i := slices.Index(p.Liker, userID)
	if i < 0 {
		return false
	}
	p.Liker = slices.Delete(p.Liker, i, i+1)
	return true
}

// MarkSeen adds userID to SeenUsers. It returns false when already present.
func (p *Page) MarkSeen(userID string) bool {
	if slices.Contains(p.SeenUsers, userID) {
		return false
	}
	p.SeenUsers = append(p.SeenUsers, userID)
	return true
}

// SlackChannels returns the Slack channel setting stored in Extended.
func (p *Page) SlackChannels() string {
	if p.Extended == nil {
		return ""
	}
	s, _ := p.Extended[SlackChannelKey].(string)
	return s
}

// SetSlackChannels stores channels in Extended, removing the key when empty.
func (p *Page) SetSlackChannels(channels string) {
	if channels == "" {
		delete(p.Extended, SlackChannelKey)
		return
	}
	if p.Extended == nil {
		p.Extended = make(map[string]any)
	}
	p.Extended[SlackChannelKey] = channels
}

// Clone returns a copy that shares no pointers, slices or maps with p.
func (p *Page) Clone() *Page {
	c := *p
	c.RevisionID = cloneString(p.RevisionID)
	c.RedirectTo = cloneString(p.RedirectTo)
	c.GrantedUsers = slices.Clone(p.GrantedUsers)
	c.GrantedGroup = cloneString(p.GrantedGroup)
	c.Creator = cloneString(p.Creator)
	c.LastUpdateUser = cloneString(p.LastUpdateUser)
	c.Liker = slices.Clone(p.Liker)
	c.SeenUsers = slices.Clone(p.SeenUsers)
	c.Extended = maps.Clone(p.Extended)
	c.LatestRevision = cloneString(p.LatestRevision)
	if p.RevisionData != nil {
		rev := *p.RevisionData
		rev.Author = cloneString(rev.Author)
		c.RevisionData = &rev
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ListResult is one page of a paginated page listing.
type ListResult struct {
	Pages      []Page `json:"pages"`
	TotalCount int    `json:"total_count"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
}
