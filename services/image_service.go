package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/alphasafe/alphasafe-api/utils"
	"github.com/google/uuid"
)

// ImageService validates photo uploads and moves them in and out of
// object storage
type ImageService struct {
	storage ObjectStorage
}

// NewImageService creates an image service on top of storage
func NewImageService(storage ObjectStorage) *ImageService {
	return &ImageService{storage: storage}
}

// UploadImage validates and stores a photo for an intervention and returns
// its storage key
func (s *ImageService) UploadImage(ctx context.Context, interventionID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", &ValidationError{Field: "file", Message: err.Error()}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := utils.ObjectKey(interventionID, uuid.NewString(), fileHeader.Filename)
	if err := s.storage.PutObject(ctx, key, content, utils.ContentTypeFor(fileHeader.Filename)); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// ImageURL generates a URL for reading a stored photo
func (s *ImageService) ImageURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.storage.GetPresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage removes a stored photo
func (s *ImageService) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
