package wiki

import (
	"context"
	"time"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
)

// PageService is the page tree: lifecycle operations and viewer-aware reads.
// A nil *wiki.User is a guest.
type PageService interface {
	Create(ctx context.Context, user *wiki.User, req *CreatePageRequest) (*wiki.Page, error)
	UpdatePage(ctx context.Context, user *wiki.User, pageID string, req *UpdatePageRequest) (*wiki.Page, error)

	// Rename moves one page. RenameRecursively moves the page and its subtree.
	Rename(ctx context.Context, user *wiki.User, pageID, newPath string, opts RenameOptions) (*wiki.Page, error)
	RenameRecursively(ctx context.Context, user *wiki.User, pageID, newPathPrefix string, opts RenameOptions) (*wiki.Page, error)

	// DeletePage moves a page to the trash, leaving a redirect stub behind.
	DeletePage(ctx context.Context, user *wiki.User, pageID string, opts MutationOptions) (*wiki.Page, error)
	DeletePageRecursively(ctx context.Context, user *wiki.User, pageID string, opts MutationOptions) (*wiki.Page, error)

	RevertDeletedPage(ctx context.Context, user *wiki.User, pageID string, opts MutationOptions) (*wiki.Page, error)
	RevertDeletedPageRecursively(ctx context.Context, user *wiki.User, pageID string, opts MutationOptions) (*wiki.Page, error)

	// CompletelyDeletePage destroys a page with its dependents and redirect chain.
	CompletelyDeletePage(ctx context.Context, user *wiki.User, pageID string, opts MutationOptions) (*wiki.Page, error)
	CompletelyDeletePageRecursively(ctx context.Context, user *wiki.User, pageID string, opts MutationOptions) (string, error)

	// RemoveRedirectOriginPageByPath destroys every stub forwarding to path,
	// directly or through other stubs.
	RemoveRedirectOriginPageByPath(ctx context.Context, path string) error

	FindByPath(ctx context.Context, path string) (*wiki.Page, error)
	FindByIDAndViewer(ctx context.Context, id string, user *wiki.User) (*wiki.Page, error)
	FindByPathAndViewer(ctx context.Context, path string, user *wiki.User) (*wiki.Page, error)
	FindAncestorByPathAndViewer(ctx context.Context, path string, user *wiki.User) (*wiki.Page, error)
	FindListWithDescendants(ctx context.Context, path string, user *wiki.User, opts pagequery.ListOptions) (*wiki.ListResult, error)
	FindListByStartWith(ctx context.Context, path string, user *wiki.User, opts pagequery.ListOptions) (*wiki.ListResult, error)
	FindListByCreator(ctx context.Context, creatorID string, viewer *wiki.User, opts pagequery.ListOptions) (*wiki.ListResult, error)
	FindListByPageIDs(ctx context.Context, ids []string, opts pagequery.ListOptions) (*wiki.ListResult, error)
	FindVisibleByIDs(ctx context.Context, ids []string, user *wiki.User) ([]wiki.Page, error)
	FindTemplate(ctx context.Context, path string) (*wiki.Template, error)
	IsAccessibleByViewer(ctx context.Context, id string, user *wiki.User) (bool, error)

	ListRevisions(ctx context.Context, user *wiki.User, pageID string) ([]wiki.Revision, error)
	ExportMarkdown(ctx context.Context, user *wiki.User, pageID, revisionID string) (string, error)
}

// SocialService covers likes, seen marks, comments, tags and the Slack
// channel setting.
type SocialService interface {
	Like(ctx context.Context, user *wiki.User, pageID string) (*wiki.Page, error)
	Unlike(ctx context.Context, user *wiki.User, pageID string) (*wiki.Page, error)
	MarkSeen(ctx context.Context, user *wiki.User, pageID string) (*wiki.Page, error)
	Likers(ctx context.Context, user *wiki.User, pageID string) ([]string, error)
	SeenUsers(ctx context.Context, user *wiki.User, pageID string) ([]string, error)
	UpdateSlackChannel(ctx context.Context, user *wiki.User, pageID, channels string) (*wiki.Page, error)

	AddComment(ctx context.Context, user *wiki.User, pageID, body string) (*wiki.Comment, error)
	DeleteComment(ctx context.Context, user *wiki.User, commentID string) error
	ListComments(ctx context.Context, user *wiki.User, pageID string) ([]wiki.Comment, error)

	UpdateTags(ctx context.Context, user *wiki.User, pageID string, tags []string) ([]string, error)
	ListTags(ctx context.Context, user *wiki.User, pageID string) ([]string, error)
}

// ShareLinkService manages links granting read access to a single page.
type ShareLinkService interface {
	CreateShareLink(ctx context.Context, user *wiki.User, pageID string, req *CreateShareLinkRequest) (*wiki.ShareLink, error)
	ListShareLinks(ctx context.Context, user *wiki.User, pageID string) ([]wiki.ShareLink, error)
	DeleteShareLink(ctx context.Context, user *wiki.User, linkID string) error
	DeleteAllShareLinks(ctx context.Context, user *wiki.User, pageID string) (int, error)

	// ResolveShareLink returns the linked page regardless of its grant.
	ResolveShareLink(ctx context.Context, linkID string) (*wiki.Page, error)
}

// AttachmentService stores files attached to pages.
type AttachmentService interface {
	UploadAttachment(ctx context.Context, user *wiki.User, pageID string, file *UploadedFile) (*wiki.Attachment, error)
	ListAttachments(ctx context.Context, user *wiki.User, pageID string) ([]wiki.Attachment, error)
}

// ImportService creates pages from an uploaded archive.
type ImportService interface {
	ImportArchive(ctx context.Context, user *wiki.User, basePath string, archive []byte) (*ImportResult, error)
}

// GroupService administers user groups.
type GroupService interface {
	CreateGroup(ctx context.Context, name string) (*wiki.UserGroup, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error

	// DeleteGroup removes the group after applying action to its pages.
	DeleteGroup(ctx context.Context, groupID string, action GroupPageAction, transferTo string) error
}

// CreatePageRequest represents a page creation request
type CreatePageRequest struct {
	Path             string      `json:"path"`
	Body             string      `json:"body"`
	Format           wiki.Format `json:"format,omitempty"`
	RedirectTo       *string     `json:"redirect_to,omitempty"`
	Grant            wiki.Grant  `json:"grant,omitempty"`
	GrantUserGroupID *string     `json:"grant_user_group_id,omitempty"`
	SocketClientID   string      `json:"socket_client_id,omitempty"`
}

// UpdatePageRequest represents a page edit. A zero Grant and nil group keep
// the page's current scope.
type UpdatePageRequest struct {
	Body               string      `json:"body"`
	Format             wiki.Format `json:"format,omitempty"`
	PreviousRevisionID string      `json:"previous_revision_id,omitempty"` // optimistic check, skipped when empty
	Grant              wiki.Grant  `json:"grant,omitempty"`
	GrantUserGroupID   *string     `json:"grant_user_group_id,omitempty"`
	SocketClientID     string      `json:"socket_client_id,omitempty"`
}

// RenameOptions controls Rename and RenameRecursively.
type RenameOptions struct {
	CreateRedirectPage bool   `json:"create_redirect_page"`
	UpdateMetadata     bool   `json:"update_metadata"`
	SocketClientID     string `json:"socket_client_id,omitempty"`
}

// MutationOptions carries the originating socket client through an operation.
type MutationOptions struct {
	SocketClientID string `json:"socket_client_id,omitempty"`
}

// CreateShareLinkRequest represents a share link creation request
type CreateShareLinkRequest struct {
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	Description string     `json:"description"`
}

// UploadedFile is an attachment upload.
type UploadedFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// GroupPageAction decides what happens to a deleted group's pages.
type GroupPageAction string

const (
	GroupPagePublicize GroupPageAction = "public"
	GroupPageDelete    GroupPageAction = "delete"
	GroupPageTransfer  GroupPageAction = "transfer"
)

// ImportResult reports an archive import.
type ImportResult struct {
	Created []ImportedPage `json:"created"`
	Skipped []ImportedPage `json:"skipped"`
	Errors  []ImportError  `json:"errors"`
}

// ImportedPage is one archive entry that produced, or would have produced, a page.
type ImportedPage struct {
	File string `json:"file"`
	Path string `json:"path"`
	ID   string `json:"id,omitempty"`
}

// ImportError represents an entry that could not be imported
type ImportError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}
