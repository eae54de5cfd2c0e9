package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/httputil"
)

// SocialHandler serves likes, seen marks, tags, comments and the Slack
// channel setting of a page.
type SocialHandler struct {
	social wikiSvc.SocialService
	logger *slog.Logger
}

func NewSocialHandler(social wikiSvc.SocialService, logger *slog.Logger) *SocialHandler {
	return &SocialHandler{social: social, logger: logger}
}

// PUT /api/pages/{id}/like
func (h *SocialHandler) Like(w http.ResponseWriter, r *http.Request) {
	page, err := h.social.Like(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// DELETE /api/pages/{id}/like
func (h *SocialHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	page, err := h.social.Unlike(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// usersResponse lists user ids related to a page.
type usersResponse struct {
	Users []string `json:"users"`
}

// GET /api/pages/{id}/likes
func (h *SocialHandler) ListLikers(w http.ResponseWriter, r *http.Request) {
	users, err := h.social.Likers(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, usersResponse{Users: users})
}

// GET /api/pages/{id}/seen
func (h *SocialHandler) ListSeenUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.social.SeenUsers(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, usersResponse{Users: users})
}

// POST /api/pages/{id}/seen
func (h *SocialHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	page, err := h.social.MarkSeen(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// slackRequest is the body of PATCH /api/pages/{id}/slack. A null or empty
// channels value clears the setting.
type slackRequest struct {
	Channels httputil.OptionalString `json:"channels"`
}

// PATCH /api/pages/{id}/slack
func (h *SocialHandler) UpdateSlackChannel(w http.ResponseWriter, r *http.Request) {
	var req slackRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Channels.Present {
		httputil.RespondError(w, http.StatusBadRequest, "channels is required")
		return
	}
	page, err := h.social.UpdateSlackChannel(r.Context(), httputil.GetUser(r), r.PathValue("id"), req.Channels.Or(""))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// GET /api/pages/{id}/tags
func (h *SocialHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.social.ListTags(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

// UpdateTags replaces the page's tag set.
// PUT /api/pages/{id}/tags
func (h *SocialHandler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	var req tagsResponse
	if !decode(w, r, &req) {
		return
	}
	tags, err := h.social.UpdateTags(r.Context(), httputil.GetUser(r), r.PathValue("id"), req.Tags)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

type commentRequest struct {
	Body string `json:"body"`
}

// POST /api/pages/{id}/comments
func (h *SocialHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decode(w, r, &req) {
		return
	}
	comment, err := h.social.AddComment(r.Context(), httputil.GetUser(r), r.PathValue("id"), req.Body)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// GET /api/pages/{id}/comments
func (h *SocialHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.social.ListComments(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, comments)
}

// DELETE /api/comments/{id}
func (h *SocialHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.social.DeleteComment(r.Context(), httputil.GetUser(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}
