package google

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"calbridge/internal/models"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const fileFields = "id, name, mimeType, webViewLink, iconLink"

// DriveClient stores attachment content in Google Drive.
type DriveClient struct {
	service *drive.Service
	logger  *slog.Logger
}

// NewDriveClient creates a Drive client from an authenticated HTTP client.
func NewDriveClient(ctx context.Context, logger *slog.Logger, httpClient *http.Client, opts ...option.ClientOption) (*DriveClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveClient{service: service, logger: logger}, nil
}

// CreateObject uploads content as a new Drive file and returns its id.
func (d *DriveClient) CreateObject(ctx context.Context, name, mimeType string, content io.Reader) (string, error) {
	file := &drive.File{Name: name, MimeType: mimeType}

	created, err := d.service.Files.Create(file).
		Media(content, googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", storageError(fmt.Sprintf("failed to upload %s", name), "", err)
	}

	d.logger.Debug("Uploaded file to Drive", "name", name, "fileID", created.Id)
	return created.Id, nil
}

// GetObject fetches the descriptor fields of a Drive file.
func (d *DriveClient) GetObject(ctx context.Context, objectID string) (models.AttachmentDescriptor, error) {
	f, err := d.service.Files.Get(objectID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return models.AttachmentDescriptor{}, storageError("failed to fetch file metadata", objectID, err)
	}

	return models.AttachmentDescriptor{
		FileID:   f.Id,
		FileURL:  f.WebViewLink,
		Title:    f.Name,
		MimeType: f.MimeType,
		IconLink: f.IconLink,
	}, nil
}
