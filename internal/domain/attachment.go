package domain

import "time"

// Attachment stores metadata for a file uploaded to a ticket. The bytes live in
// the blob store under BlobHandle.
type Attachment struct {
	ID           string
	TicketID     string
	UploaderID   string
	StoredName   string
	OriginalName string
	ContentType  string
	Size         int64
	BlobHandle   string
	CreatedAt    time.Time
}
