package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/blob"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/policy"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

const defaultContentType = "application/octet-stream"

// AttachmentService manages files uploaded to tickets.
type AttachmentService struct {
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	blobs       blob.Store
	maxSize     int64
	logger      *zap.Logger
}

// AttachmentDependencies bundles collaborators for the attachment service.
type AttachmentDependencies struct {
	TicketRepo     repository.TicketRepository
	AttachmentRepo repository.AttachmentRepository
	Blobs          blob.Store
	// MaxSize caps upload size in bytes; zero disables the check.
	MaxSize int64
	Logger  *zap.Logger
}

// UploadInput is a file received from a client.
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// NewAttachmentService constructs the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	return &AttachmentService{
		tickets:     deps.TicketRepo,
		attachments: deps.AttachmentRepo,
		blobs:       deps.Blobs,
		maxSize:     deps.MaxSize,
		logger:      defaultLogger(deps.Logger),
	}
}

// List returns the ticket's attachments.
func (s *AttachmentService) List(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Attachment, error) {
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUploadAttachment(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to view attachments on this ticket")
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return attachments, nil
}

// Upload stores the bytes under a generated name and records the metadata.
// If the metadata cannot be written the stored bytes are removed again.
func (s *AttachmentService) Upload(ctx context.Context, actor domain.Actor, ticketID string, input UploadInput) (*domain.Attachment, error) {
	originalName := filepath.Base(strings.TrimSpace(input.FileName))
	if originalName == "" || originalName == "." || originalName == string(filepath.Separator) {
		return nil, apperrors.NewValidationError("file name is required", map[string]any{"field": "file"})
	}
	if len(input.Data) == 0 {
		return nil, apperrors.NewValidationError("file is empty", map[string]any{"field": "file"})
	}
	if s.maxSize > 0 && int64(len(input.Data)) > s.maxSize {
		return nil, apperrors.NewValidationError("file too large",
			map[string]any{"field": "file", "max_bytes": s.maxSize})
	}

	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUploadAttachment(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to upload files to this ticket")
	}

	storedName := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	handle, err := s.blobs.Put(ctx, storedName, input.Data)
	if err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	attachment := &domain.Attachment{
		TicketID:     ticket.ID,
		UploaderID:   actor.ID,
		StoredName:   storedName,
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         int64(len(input.Data)),
		BlobHandle:   handle,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		if delErr := s.blobs.Delete(ctx, handle); delErr != nil {
			s.logger.Warn("remove blob after failed upload", zap.String("handle", handle), zap.Error(delErr))
		}
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	return attachment, nil
}

// Download returns the attachment metadata and bytes.
func (s *AttachmentService) Download(ctx context.Context, actor domain.Actor, ticketID, attachmentID string) (*domain.Attachment, []byte, error) {
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanView(ticket, actor) {
		return nil, nil, apperrors.NewAccessDenied("you don't have permission to download files from this ticket")
	}
	attachment, err := s.loadAttachment(ctx, ticket.ID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.blobs.Get(ctx, attachment.BlobHandle)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, apperrors.NewNotFound("attachment file", map[string]any{"attachment_id": attachment.ID})
		}
		return nil, nil, err
	}
	return attachment, data, nil
}

// Delete removes the attachment record and its bytes.
func (s *AttachmentService) Delete(ctx context.Context, actor domain.Actor, ticketID, attachmentID string) error {
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return err
	}
	attachment, err := s.loadAttachment(ctx, ticket.ID, attachmentID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteAttachment(attachment, actor) {
		return apperrors.NewAccessDenied("you don't have permission to delete this attachment")
	}
	if err := s.attachments.Delete(ctx, attachment.ID); err != nil {
		return notFoundOr(err, "attachment", map[string]any{"attachment_id": attachment.ID})
	}
	if err := s.blobs.Delete(ctx, attachment.BlobHandle); err != nil {
		s.logger.Warn("orphaned attachment blob",
			zap.String("attachment_id", attachment.ID),
			zap.String("handle", attachment.BlobHandle),
			zap.Error(err))
	}
	return nil
}

// loadAttachment treats an attachment of another ticket as absent.
func (s *AttachmentService) loadAttachment(ctx context.Context, ticketID, attachmentID string) (*domain.Attachment, error) {
	details := map[string]any{"attachment_id": attachmentID}
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, notFoundOr(err, "attachment", details)
	}
	if attachment.TicketID != ticketID {
		return nil, apperrors.NewNotFound("attachment", details)
	}
	return attachment, nil
}
