package handler

import (
	"context"
	"log/slog"
	"net/http"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/httputil"
	"wikitree/internal/search"
)

// Searcher answers full-text page searches for a viewer.
type Searcher interface {
	Search(ctx context.Context, user *wiki.User, text string, offset, limit int) (search.Response, error)
}

type SearchHandler struct {
	searcher Searcher
	logger   *slog.Logger
}

func NewSearchHandler(searcher Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

// Search runs ?q= against the page index. Without a reachable index the
// result is empty, not an error.
// GET /api/search?q=&offset=&limit=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		handleError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		handleError(w, err)
		return
	}

	resp, err := h.searcher.Search(r.Context(), httputil.GetUser(r), r.URL.Query().Get("q"), offset, limit)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
