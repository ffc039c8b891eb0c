// Package storage keeps service images in an external blob store.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrDisabled = errors.New("image storage is not configured")

type Image struct {
	URL      string
	PublicID string
}

type ImageStore interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*Image, error)
	Delete(ctx context.Context, publicID string) error
}

// DisabledStore rejects uploads. It is used when no Cloudinary credentials are set
// so services can still be created without an image.
type DisabledStore struct{}

func (DisabledStore) Upload(ctx context.Context, file io.Reader, filename string) (*Image, error) {
	return nil, ErrDisabled
}

func (DisabledStore) Delete(ctx context.Context, publicID string) error {
	return nil
}
