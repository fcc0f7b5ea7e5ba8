package storage

import (
	"context"
	"errors"
	"io"
)

// ErrStorageDisabled is returned when no object storage is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// StorageService defines the interface for storage operations.
type StorageService interface {
	// UploadImage stores an image under folder and returns its public URL.
	UploadImage(ctx context.Context, r io.Reader, folder, filename string) (string, error)
	// DeleteFile removes a stored object by its public ID.
	DeleteFile(ctx context.Context, publicID string) error
}

// DisabledStorage rejects every operation. It stands in when CLOUDINARY_URL is unset.
type DisabledStorage struct{}

func (DisabledStorage) UploadImage(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrStorageDisabled
}

func (DisabledStorage) DeleteFile(context.Context, string) error {
	return ErrStorageDisabled
}
