package models

import (
	"io"

	"google.golang.org/api/calendar/v3"
)

// AttachmentDescriptor links an event to an object held by the storage service.
// FileURL and IconLink are informational and may go stale if the object moves.
type AttachmentDescriptor struct {
	FileID   string
	FileURL  string
	Title    string
	MimeType string
	IconLink string
}

// RawFile is a binary payload supplied by the caller for upload.
type RawFile struct {
	Name     string
	MimeType string // may be empty, in which case it is detected from the content
	Body     io.Reader
}

// EventAttachment renders the descriptor in the calendar service's schema.
func (a AttachmentDescriptor) EventAttachment() *calendar.EventAttachment {
	return &calendar.EventAttachment{
		FileId:   a.FileID,
		FileUrl:  a.FileURL,
		Title:    a.Title,
		MimeType: a.MimeType,
		IconLink: a.IconLink,
	}
}
