package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/internal/storage"
	"stillpoint_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// UploadService stores admin-uploaded media (cover images, audio, video) in
// the object store and returns the key the catalog references.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, folder string) (*dto.UploadResponse, error)
	Delete(ctx context.Context, path string) error
}

type UploadServiceImpl struct {
	store        storage.Storage
	maxSize      int64
	allowedTypes []string
}

func NewUploadService(store storage.Storage, maxSize int64, allowedTypes []string) UploadService {
	return &UploadServiceImpl{
		store:        store,
		maxSize:      maxSize,
		allowedTypes: allowedTypes,
	}
}

func (s *UploadServiceImpl) Upload(ctx context.Context, file *multipart.FileHeader, folder string) (*dto.UploadResponse, error) {
	if file.Size > s.maxSize {
		return nil, apperrors.ErrFileTooLarge.WithDetails(map[string]interface{}{
			"max_size": s.maxSize,
			"size":     file.Size,
		})
	}

	src, err := file.Open()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	defer src.Close()

	// Sniff the real content type instead of trusting the client header.
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && n == 0 {
		return nil, apperrors.InternalError(err)
	}
	contentType := http.DetectContentType(head[:n])
	if !s.typeAllowed(contentType) {
		// Sniffing cannot tell some audio containers apart; fall back to the
		// declared type before rejecting.
		declared := file.Header.Get("Content-Type")
		if !s.typeAllowed(declared) {
			return nil, apperrors.ErrInvalidFileType.WithDetails(map[string]interface{}{
				"content_type": contentType,
			})
		}
		contentType = declared
	}

	if _, err := src.Seek(0, 0); err != nil {
		return nil, apperrors.InternalError(err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	key := fmt.Sprintf("%s/%s/%s%s",
		sanitizeFolder(folder),
		time.Now().Format("2006/01"),
		uuid.NewString(),
		ext,
	)

	if err := s.store.Save(ctx, key, src, contentType); err != nil {
		return nil, apperrors.InternalError(err)
	}

	url, err := s.store.GetURL(ctx, key)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "File uploaded",
		"path", key,
		"content_type", contentType,
		"size", file.Size)

	return &dto.UploadResponse{
		Path:        key,
		URL:         url,
		ContentType: contentType,
		Size:        file.Size,
	}, nil
}

func (s *UploadServiceImpl) Delete(ctx context.Context, path string) error {
	if err := s.store.Delete(ctx, path); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *UploadServiceImpl) typeAllowed(contentType string) bool {
	for _, t := range s.allowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

// sanitizeFolder restricts the caller-chosen folder to a single flat name.
func sanitizeFolder(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" || strings.ContainsAny(folder, "./\\") {
		return "media"
	}
	return folder
}
