package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// failingAttachments rejects every metadata write.
type failingAttachments struct {
	repository.AttachmentRepository
}

func (failingAttachments) Create(context.Context, *domain.Attachment) error {
	return errors.New("disk full")
}

func TestUploadStoresUnderGeneratedName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	attachment, err := f.attachments.Upload(ctx, f.u1, ticket.ID, UploadInput{
		FileName:    "../../Screen Shot.PNG",
		ContentType: "image/png",
		Data:        []byte("png"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if attachment.OriginalName != "Screen Shot.PNG" {
		t.Fatalf("unexpected original name %q", attachment.OriginalName)
	}
	if filepath.Ext(attachment.StoredName) != ".png" || strings.Contains(attachment.StoredName, "Screen") {
		t.Fatalf("stored name should be generated, got %q", attachment.StoredName)
	}
	if attachment.Size != 3 || attachment.UploaderID != f.u1.ID || attachment.BlobHandle == "" {
		t.Fatalf("unexpected metadata %+v", attachment)
	}

	second, err := f.attachments.Upload(ctx, f.u1, ticket.ID, UploadInput{FileName: "Screen Shot.PNG", Data: []byte("png")})
	if err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if second.StoredName == attachment.StoredName {
		t.Fatalf("stored names collide")
	}
	if second.ContentType != defaultContentType {
		t.Fatalf("expected default content type, got %q", second.ContentType)
	}

	got, data, err := f.attachments.Download(ctx, f.u1, ticket.ID, attachment.ID)
	if err != nil || string(data) != "png" || got.ID != attachment.ID {
		t.Fatalf("Download = %+v %q %v", got, data, err)
	}
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	for _, input := range []UploadInput{
		{FileName: "", Data: []byte("x")},
		{FileName: "a.txt"},
		{FileName: "big.bin", Data: make([]byte, 2<<10)},
	} {
		_, err := f.attachments.Upload(ctx, f.u1, ticket.ID, input)
		expectCode(t, err, apperrors.CodeValidation)
	}

	_, err := f.attachments.Upload(ctx, f.u2, ticket.ID, UploadInput{FileName: "a.txt", Data: []byte("x")})
	expectCode(t, err, apperrors.CodeAccessDenied)
	if f.blobs.Len() != 0 {
		t.Fatalf("rejected uploads left blobs behind")
	}
}

func TestUploadRemovesBlobWhenMetadataFails(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.u1)
	svc := NewAttachmentService(AttachmentDependencies{
		TicketRepo:     f.store.Tickets(),
		AttachmentRepo: failingAttachments{f.store.Attachments()},
		Blobs:          f.blobs,
	})

	if _, err := svc.Upload(context.Background(), f.u1, ticket.ID, UploadInput{FileName: "a.txt", Data: []byte("x")}); err == nil {
		t.Fatalf("expected upload failure")
	}
	if f.blobs.Len() != 0 {
		t.Fatalf("blob left behind after failed metadata write")
	}
}

func TestAttachmentAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)
	other := f.createTicket(t, f.u2)
	f.assign(t, ticket.ID, f.a1)

	attachment, err := f.attachments.Upload(ctx, f.a1, ticket.ID, UploadInput{FileName: "fix.sh", Data: []byte("#!/bin/sh")})
	if err != nil {
		t.Fatalf("agent upload: %v", err)
	}

	list, err := f.attachments.List(ctx, f.u1, ticket.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	_, err = f.attachments.List(ctx, f.u2, ticket.ID)
	expectCode(t, err, apperrors.CodeAccessDenied)

	_, _, err = f.attachments.Download(ctx, f.u2, ticket.ID, attachment.ID)
	expectCode(t, err, apperrors.CodeAccessDenied)

	// addressing the attachment through another ticket hides it
	_, _, err = f.attachments.Download(ctx, f.u2, other.ID, attachment.ID)
	expectCode(t, err, apperrors.CodeNotFound)

	// creator is not the uploader
	err = f.attachments.Delete(ctx, f.u1, ticket.ID, attachment.ID)
	expectCode(t, err, apperrors.CodeAccessDenied)

	if err := f.attachments.Delete(ctx, f.a1, ticket.ID, attachment.ID); err != nil {
		t.Fatalf("uploader delete: %v", err)
	}
	if f.blobs.Len() != 0 {
		t.Fatalf("blob survived attachment delete")
	}
	err = f.attachments.Delete(ctx, f.admin, ticket.ID, attachment.ID)
	expectCode(t, err, apperrors.CodeNotFound)
}
