package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"local-services/pkg/utils"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(config utils.StorageConfig) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(config.CloudName, config.APIKey, config.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: config.Folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, file io.Reader, filename string) (*Image, error) {
	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("upload %s: %s", filename, resp.Error.Message)
	}

	return &Image{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return errors.New(resp.Error.Message)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("destroy %s: unexpected result %q", publicID, resp.Result)
	}
	return nil
}
