package handler

import (
	"log/slog"
	"net/http"

	"wikitree/internal/domain"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/httputil"
)

// GroupHandler administers user groups. Every route requires an admin.
type GroupHandler struct {
	groups wikiSvc.GroupService
	logger *slog.Logger
}

func NewGroupHandler(groups wikiSvc.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	UserID string `json:"user_id"`
}

// POST /api/groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req createGroupRequest
	if !decode(w, r, &req) {
		return
	}
	group, err := h.groups.CreateGroup(r.Context(), req.Name)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, group)
}

// POST /api/groups/{id}/members
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.groups.AddMember(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// DELETE /api/groups/{id}/members/{userId}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := h.groups.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("userId")); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// Delete removes a group after publicizing, deleting or transferring its pages.
// DELETE /api/groups/{id}?action=public|delete|transfer&transferTo=
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	action, ok := requireQuery(w, r, "action")
	if !ok {
		return
	}
	groupID := r.PathValue("id")
	err := h.groups.DeleteGroup(r.Context(), groupID, wikiSvc.GroupPageAction(action), r.URL.Query().Get("transferTo"))
	if err != nil {
		handleError(w, err)
		return
	}
	h.logger.Info("group deleted", "group_id", groupID, "action", action, "admin", httputil.GetUserID(r))
	httputil.RespondNoContent(w)
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user := httputil.GetUser(r)
	switch {
	case user == nil:
		handleError(w, &domain.UnauthorizedError{Message: "authentication required"})
		return false
	case !user.Admin:
		handleError(w, &domain.ForbiddenError{Message: "admin only"})
		return false
	}
	return true
}
