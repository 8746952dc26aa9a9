// Package attachments makes sure attachment binaries exist in the storage service
// and describes them in a form the calendar service can link to.
package attachments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"calbridge/internal/apperr"
	"calbridge/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// Storage is the subset of the storage service the materializer consumes.
// Implementations return *apperr.Error values of kind storage.
type Storage interface {
	CreateObject(ctx context.Context, name, mimeType string, content io.Reader) (string, error)
	GetObject(ctx context.Context, objectID string) (models.AttachmentDescriptor, error)
}

// Materializer uploads new binaries and resolves existing storage objects.
type Materializer struct {
	storage Storage
	logger  *slog.Logger
	tempDir string
}

// NewMaterializer creates a new Materializer. An empty tempDir uses the OS default.
func NewMaterializer(logger *slog.Logger, storage Storage, tempDir string) *Materializer {
	return &Materializer{storage: storage, logger: logger, tempDir: tempDir}
}

// UploadNew stores file in the storage service and returns its canonical descriptor.
// The binary is spooled to a temporary file first; that file is removed before
// UploadNew returns, whatever the outcome.
func (m *Materializer) UploadNew(ctx context.Context, file models.RawFile) (models.AttachmentDescriptor, error) {
	tmp, err := os.CreateTemp(m.tempDir, "calbridge-upload-*")
	if err != nil {
		return models.AttachmentDescriptor{}, apperr.Storage("failed to create temporary file", 0, err)
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("Failed to remove temporary upload file", "path", tmp.Name(), "error", err)
		}
	}()

	if _, err := io.Copy(tmp, file.Body); err != nil {
		return models.AttachmentDescriptor{}, apperr.Storage(fmt.Sprintf("failed to read %s", file.Name), 0, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return models.AttachmentDescriptor{}, apperr.Storage("failed to rewind temporary file", 0, err)
	}

	mimeType := file.MimeType
	if mimeType == "" {
		mt, err := mimetype.DetectReader(tmp)
		if err != nil {
			return models.AttachmentDescriptor{}, apperr.Storage("failed to detect content type", 0, err)
		}
		mimeType = mt.String()
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return models.AttachmentDescriptor{}, apperr.Storage("failed to rewind temporary file", 0, err)
		}
	}

	m.logger.Debug("Uploading attachment", "name", file.Name, "mimeType", mimeType)
	objectID, err := m.storage.CreateObject(ctx, file.Name, mimeType, tmp)
	if err != nil {
		return models.AttachmentDescriptor{}, fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}

	desc, err := m.storage.GetObject(ctx, objectID)
	if err != nil {
		return models.AttachmentDescriptor{}, fmt.Errorf("failed to fetch metadata for uploaded %s: %w", file.Name, err)
	}

	m.logger.Info("Uploaded attachment", "name", file.Name, "fileID", desc.FileID)
	return desc, nil
}

// ResolveExisting returns the descriptor of an object already held by the storage service.
func (m *Materializer) ResolveExisting(ctx context.Context, objectID string) (models.AttachmentDescriptor, error) {
	desc, err := m.storage.GetObject(ctx, objectID)
	if err != nil {
		return models.AttachmentDescriptor{}, fmt.Errorf("failed to resolve attachment %s: %w", objectID, err)
	}
	return desc, nil
}
