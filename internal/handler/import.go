package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/httputil"
)

// ImportHandler handles bulk import HTTP requests.
type ImportHandler struct {
	importService wikiSvc.ImportService
	logger        *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importService wikiSvc.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

// Import creates pages from a zip archive of markdown and HTML files.
// POST /api/import
//
// Form fields:
//   - file: required, the zip archive
//
// Query parameters:
//   - path: optional, the page the archive is unpacked under (empty = root)
//
// Existing pages are skipped, never overwritten. Entries that fail are
// reported in the response and do not abort the import.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, ok := readFormFile(w, r, "file")
	if !ok {
		return
	}
	basePath := r.URL.Query().Get("path")

	h.logger.Info("starting import",
		"user_id", httputil.GetUserID(r),
		"file", file.FileName,
		"size", len(file.Content),
		"path", basePath,
	)

	result, err := h.importService.ImportArchive(r.Context(), httputil.GetUser(r), basePath, file.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("import complete",
		"path", basePath,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"failed", len(result.Errors),
	)
	httputil.RespondJSON(w, http.StatusOK, result)
}
