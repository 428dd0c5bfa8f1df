package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/media"
	"github.com/google/uuid"
)

var ErrMediaDisabled = errors.New("media storage is not configured")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type MediaService struct {
	objects  media.ObjectStore
	maxBytes int64
}

// NewMediaService accepts a nil store; uploads then fail with
// ErrMediaDisabled.
func NewMediaService(objects media.ObjectStore, maxBytes int64) *MediaService {
	return &MediaService{objects: objects, maxBytes: maxBytes}
}

func (s *MediaService) Enabled() bool {
	return s.objects != nil
}

func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload normalizes a report photo and stores it under
// reports/<user_id>/<uuid>.jpg.
func (s *MediaService) Upload(ctx context.Context, userID uuid.UUID, contentType string, data []byte) (*dto.MediaResponse, error) {
	if !s.Enabled() {
		return nil, ErrMediaDisabled
	}
	if !allowedImageTypes[contentType] {
		return nil, invalid("image", "must be a JPEG or PNG image")
	}
	if len(data) == 0 {
		return nil, invalid("image", "is required")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, invalid("image", fmt.Sprintf("must be at most %d bytes", s.maxBytes))
	}

	out, err := media.Normalize(data)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return nil, invalid("image", "could not be decoded")
		}
		return nil, err
	}

	if err := s.objects.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("reports/%s/%s.jpg", userID, uuid.New())
	if err := s.objects.Put(ctx, key, out, "image/jpeg"); err != nil {
		return nil, err
	}

	slog.Info("report photo stored", "user_id", userID.String(), "key", key, "in_bytes", len(data), "out_bytes", len(out))
	return &dto.MediaResponse{URL: s.objects.URL(key), Key: key}, nil
}
