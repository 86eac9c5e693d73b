package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// AllowedImageFormats maps the accepted photo extensions to their content type
var AllowedImageFormats = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return &FileUploadError{Code: "NO_FILE", Message: "No file provided"}
	}

	// Check file size
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	if fileHeader.Size == 0 {
		return &FileUploadError{Code: "EMPTY_FILE", Message: "File is empty"}
	}

	// Check file extension
	if ContentTypeFor(fileHeader.Filename) == "" {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only .png, .jpg, .jpeg and .webp files are allowed",
		}
	}

	return nil
}

// ContentTypeFor returns the content type of an accepted image filename,
// or an empty string for anything else
func ContentTypeFor(filename string) string {
	return AllowedImageFormats[strings.ToLower(filepath.Ext(filename))]
}

// ObjectKey builds the storage key of a photo uploaded for an intervention
func ObjectKey(interventionID uint, unique, filename string) string {
	name := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	return fmt.Sprintf("interventions/%d/%s_%s", interventionID, unique, name)
}
