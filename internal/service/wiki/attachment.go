package wiki

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
)

// UploadAttachment stores the file in the blob store, then records it. The
// blob is removed again if the record cannot be written.
func (s *Service) UploadAttachment(ctx context.Context, user *wiki.User, pageID string, file *wikiSvc.UploadedFile) (*wiki.Attachment, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	name := filepath.Base(file.FileName)
	if name == "." || name == "/" || name == "" {
		return nil, &domain.ValidationError{Message: "file name is required"}
	}
	size := int64(len(file.Content))
	if limit := s.Config.MaxAttachmentSize; limit > 0 && size > limit {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("file exceeds %d bytes", limit)}
	}

	if _, err := s.findForEdit(ctx, pageID, user); err != nil {
		return nil, err
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = http.DetectContentType(file.Content)
	}

	a := &wiki.Attachment{
		PageID:      pageID,
		FileName:    name,
		ContentType: contentType,
		Size:        size,
		ObjectKey:   fmt.Sprintf("attachments/%s/%s/%s", pageID, uuid.NewString(), name),
		Creator:     &user.ID,
		CreatedAt:   s.Now(),
	}
	if err := s.Blobs.Put(ctx, a.ObjectKey, bytes.NewReader(file.Content), size, contentType); err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	if err := s.Attachments.Create(ctx, a); err != nil {
		if rmErr := s.Blobs.Remove(ctx, a.ObjectKey); rmErr != nil {
			s.Logger.Warn("failed to remove orphaned blob", "key", a.ObjectKey, "error", rmErr)
		}
		return nil, fmt.Errorf("record attachment: %w", err)
	}

	s.Logger.Info("attachment uploaded",
		"attachment_id", a.ID,
		"page_id", pageID,
		"size", size,
	)
	return a, nil
}

func (s *Service) ListAttachments(ctx context.Context, user *wiki.User, pageID string) ([]wiki.Attachment, error) {
	if _, err := s.findForEdit(ctx, pageID, user); err != nil {
		return nil, err
	}
	out, err := s.Attachments.ListByPageID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return out, nil
}
