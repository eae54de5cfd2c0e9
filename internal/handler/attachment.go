package handler

import (
	"io"
	"log/slog"
	"net/http"

	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/httputil"
)

// maxUploadMemory bounds the in-memory part of a parsed multipart form.
const maxUploadMemory = 32 << 20

// AttachmentHandler accepts file uploads for pages.
type AttachmentHandler struct {
	attachments wikiSvc.AttachmentService
	logger      *slog.Logger
}

func NewAttachmentHandler(attachments wikiSvc.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, logger: logger}
}

// Upload stores the multipart field "file" as an attachment of the page.
// POST /api/pages/{id}/attachments
// Size limits are enforced by the service.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, ok := readFormFile(w, r, "file")
	if !ok {
		return
	}

	att, err := h.attachments.UploadAttachment(r.Context(), httputil.GetUser(r), r.PathValue("id"), file)
	if err != nil {
		handleError(w, err)
		return
	}
	h.logger.Info("attachment uploaded",
		"page_id", att.PageID,
		"attachment_id", att.ID,
		"size", len(file.Content),
	)
	httputil.RespondJSON(w, http.StatusCreated, att)
}

// GET /api/pages/{id}/attachments
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.attachments.ListAttachments(r.Context(), httputil.GetUser(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, list)
}

// readFormFile parses a multipart upload and reads one field fully.
func readFormFile(w http.ResponseWriter, r *http.Request, field string) (*wikiSvc.UploadedFile, bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}
	f, header, err := r.FormFile(field)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "no "+field+" provided")
		return nil, false
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to read "+field)
		return nil, false
	}
	return &wikiSvc.UploadedFile{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, true
}
