package handler

import "net/http"

// Handlers groups every HTTP handler the API serves. Realtime is optional.
type Handlers struct {
	Pages       *PageHandler
	Social      *SocialHandler
	ShareLinks  *ShareLinkHandler
	Attachments *AttachmentHandler
	Import      *ImportHandler
	Groups      *GroupHandler
	Search      *SearchHandler
	Realtime    http.Handler
}

// NewRouter registers the API routes (Go 1.22+ enhanced patterns).
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", HealthCheck)

	// Page reads. Literal segments win over {id}.
	mux.HandleFunc("GET /api/pages", h.Pages.GetByPath)
	mux.HandleFunc("GET /api/pages/ancestor", h.Pages.GetAncestor)
	mux.HandleFunc("GET /api/pages/list", h.Pages.ListDescendants)
	mux.HandleFunc("GET /api/pages/list-by-start-with", h.Pages.ListByStartWith)
	mux.HandleFunc("GET /api/pages/list-by-creator", h.Pages.ListByCreator)
	mux.HandleFunc("GET /api/pages/template", h.Pages.GetTemplate)
	mux.HandleFunc("GET /api/pages/{id}", h.Pages.GetByID)
	mux.HandleFunc("GET /api/pages/{id}/revisions", h.Pages.ListRevisions)
	mux.HandleFunc("GET /api/pages/{id}/export", h.Pages.Export)

	// Page lifecycle
	mux.HandleFunc("POST /api/pages", h.Pages.Create)
	mux.HandleFunc("PUT /api/pages/{id}", h.Pages.Update)
	mux.HandleFunc("POST /api/pages/{id}/rename", h.Pages.Rename)
	mux.HandleFunc("POST /api/pages/{id}/delete", h.Pages.Delete)
	mux.HandleFunc("POST /api/pages/{id}/revert", h.Pages.Revert)
	mux.HandleFunc("DELETE /api/pages/{id}", h.Pages.CompletelyDelete)

	// Social
	mux.HandleFunc("PUT /api/pages/{id}/like", h.Social.Like)
	mux.HandleFunc("DELETE /api/pages/{id}/like", h.Social.Unlike)
	mux.HandleFunc("GET /api/pages/{id}/likes", h.Social.ListLikers)
	mux.HandleFunc("GET /api/pages/{id}/seen", h.Social.ListSeenUsers)
	mux.HandleFunc("POST /api/pages/{id}/seen", h.Social.MarkSeen)
	mux.HandleFunc("PATCH /api/pages/{id}/slack", h.Social.UpdateSlackChannel)
	mux.HandleFunc("GET /api/pages/{id}/tags", h.Social.ListTags)
	mux.HandleFunc("PUT /api/pages/{id}/tags", h.Social.UpdateTags)
	mux.HandleFunc("POST /api/pages/{id}/comments", h.Social.AddComment)
	mux.HandleFunc("GET /api/pages/{id}/comments", h.Social.ListComments)
	mux.HandleFunc("DELETE /api/comments/{id}", h.Social.DeleteComment)

	// Attachments
	mux.HandleFunc("POST /api/pages/{id}/attachments", h.Attachments.Upload)
	mux.HandleFunc("GET /api/pages/{id}/attachments", h.Attachments.List)

	// Share links
	mux.HandleFunc("POST /api/pages/{id}/share-links", h.ShareLinks.Create)
	mux.HandleFunc("GET /api/pages/{id}/share-links", h.ShareLinks.List)
	mux.HandleFunc("DELETE /api/pages/{id}/share-links", h.ShareLinks.DeleteAll)
	mux.HandleFunc("GET /api/share-links/{id}", h.ShareLinks.Resolve)
	mux.HandleFunc("DELETE /api/share-links/{id}", h.ShareLinks.Delete)

	// Import
	mux.HandleFunc("POST /api/import", h.Import.Import)

	// Groups
	mux.HandleFunc("POST /api/groups", h.Groups.Create)
	mux.HandleFunc("POST /api/groups/{id}/members", h.Groups.AddMember)
	mux.HandleFunc("DELETE /api/groups/{id}/members/{userId}", h.Groups.RemoveMember)
	mux.HandleFunc("DELETE /api/groups/{id}", h.Groups.Delete)

	// Search
	mux.HandleFunc("GET /api/search", h.Search.Search)

	if h.Realtime != nil {
		mux.Handle("GET /api/realtime", h.Realtime)
	}

	return mux
}
