package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/httputil"
)

// ShareLinkHandler manages share links and resolves them for anyone holding one.
type ShareLinkHandler struct {
	links  wikiSvc.ShareLinkService
	logger *slog.Logger
}

func NewShareLinkHandler(links wikiSvc.ShareLinkService, logger *slog.Logger) *ShareLinkHandler {
	return &ShareLinkHandler{links: links, logger: logger}
}

// POST /api/pages/{id}/share-links
func (h *ShareLinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.CreateShareLinkRequest
	if !decode(w, r, &req) {
		return
	}
	link, err := h.links.CreateShareLink(r.Context(), httputil.GetUser(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, link)
}

// GET /api/pages/{id}/share-links
func (h *ShareLinkHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.ListShareLinks(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, links)
}

// DeleteAll removes every link of a page.
// DELETE /api/pages/{id}/share-links
func (h *ShareLinkHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.links.DeleteAllShareLinks(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// DELETE /api/share-links/{id}
func (h *ShareLinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.DeleteShareLink(r.Context(), httputil.GetUser(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// Resolve returns the linked page to any caller, guests included.
// GET /api/share-links/{id}
func (h *ShareLinkHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	page, err := h.links.ResolveShareLink(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}
