package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/httputil"
)

// PageHandler serves page reads and lifecycle operations.
type PageHandler struct {
	pages  wikiSvc.PageService
	logger *slog.Logger
}

func NewPageHandler(pages wikiSvc.PageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{pages: pages, logger: logger}
}

// renameRequest is the body of POST /api/pages/{id}/rename.
type renameRequest struct {
	NewPath     string `json:"new_path"`
	Recursively bool   `json:"recursively"`
	wikiSvc.RenameOptions
}

// mutationRequest is the optional body of delete and revert.
type mutationRequest struct {
	Recursively bool `json:"recursively"`
	wikiSvc.MutationOptions
}

// GetByPath returns the page at ?path=.
// GET /api/pages
func (h *PageHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}
	page, err := h.pages.FindByPathAndViewer(r.Context(), path, httputil.GetUser(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// GetByID returns a page with its current revision.
// GET /api/pages/{id}
func (h *PageHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.FindByIDAndViewer(r.Context(), r.PathValue("id"), httputil.GetUser(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// GET /api/pages/ancestor?path=
func (h *PageHandler) GetAncestor(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}
	page, err := h.pages.FindAncestorByPathAndViewer(r.Context(), path, httputil.GetUser(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// ListDescendants lists a page and everything below it.
// GET /api/pages/list?path=&offset=&limit=&sort=&desc=
func (h *PageHandler) ListDescendants(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		handleError(w, err)
		return
	}
	result, err := h.pages.FindListWithDescendants(r.Context(), path, httputil.GetUser(r), opts)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// GET /api/pages/list-by-start-with?path=
func (h *PageHandler) ListByStartWith(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		handleError(w, err)
		return
	}
	result, err := h.pages.FindListByStartWith(r.Context(), path, httputil.GetUser(r), opts)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// GET /api/pages/list-by-creator?user=
func (h *PageHandler) ListByCreator(w http.ResponseWriter, r *http.Request) {
	creator, ok := requireQuery(w, r, "user")
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		handleError(w, err)
		return
	}
	result, err := h.pages.FindListByCreator(r.Context(), creator, httputil.GetUser(r), opts)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetTemplate returns the template a new page at ?path= would use, or null.
// GET /api/pages/template?path=
func (h *PageHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}
	tmpl, err := h.pages.FindTemplate(r.Context(), path)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tmpl)
}

// Create creates a page.
// POST /api/pages
// Returns 201, or 409 with the occupant's id when the path is taken
func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.CreatePageRequest
	if !decode(w, r, &req) {
		return
	}
	page, err := h.pages.Create(r.Context(), httputil.GetUser(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, page)
}

// PUT /api/pages/{id}
func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req wikiSvc.UpdatePageRequest
	if !decode(w, r, &req) {
		return
	}
	page, err := h.pages.UpdatePage(r.Context(), httputil.GetUser(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// Rename moves a page, or with "recursively" its whole subtree.
// POST /api/pages/{id}/rename
func (h *PageHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decode(w, r, &req) {
		return
	}
	if req.NewPath == "" {
		httputil.RespondError(w, http.StatusBadRequest, "new_path is required")
		return
	}

	user, id := httputil.GetUser(r), r.PathValue("id")
	var (
		page *wiki.Page
		err  error
	)
	if req.Recursively {
		page, err = h.pages.RenameRecursively(r.Context(), user, id, req.NewPath, req.RenameOptions)
	} else {
		page, err = h.pages.Rename(r.Context(), user, id, req.NewPath, req.RenameOptions)
	}
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// Delete moves a page (or subtree) to the trash.
// POST /api/pages/{id}/delete
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.pages.DeletePage, h.pages.DeletePageRecursively)
}

// Revert restores a trashed page (or subtree).
// POST /api/pages/{id}/revert
func (h *PageHandler) Revert(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.pages.RevertDeletedPage, h.pages.RevertDeletedPageRecursively)
}

type mutation func(ctx context.Context, user *wiki.User, pageID string, opts wikiSvc.MutationOptions) (*wiki.Page, error)

func (h *PageHandler) mutate(w http.ResponseWriter, r *http.Request, single, recursive mutation) {
	var req mutationRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	op := single
	if req.Recursively {
		op = recursive
	}
	page, err := op(r.Context(), httputil.GetUser(r), r.PathValue("id"), req.MutationOptions)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// CompletelyDelete destroys a page (or subtree) with its dependents.
// DELETE /api/pages/{id}?recursively=&socketClientId=
func (h *PageHandler) CompletelyDelete(w http.ResponseWriter, r *http.Request) {
	user, id := httputil.GetUser(r), r.PathValue("id")
	opts := wikiSvc.MutationOptions{SocketClientID: r.URL.Query().Get("socketClientId")}

	if queryBool(r, "recursively") {
		path, err := h.pages.CompletelyDeletePageRecursively(r.Context(), user, id, opts)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"path": path})
		return
	}

	page, err := h.pages.CompletelyDeletePage(r.Context(), user, id, opts)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// GET /api/pages/{id}/revisions
func (h *PageHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := h.pages.ListRevisions(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, revs)
}

// Export downloads a revision as a markdown file with front matter.
// GET /api/pages/{id}/export?revision=
func (h *PageHandler) Export(w http.ResponseWriter, r *http.Request) {
	out, err := h.pages.ExportMarkdown(r.Context(), httputil.GetUser(r), r.PathValue("id"), r.URL.Query().Get("revision"))
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="page.md"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}

// HealthCheck is a simple health check endpoint
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
