// Package services – UploadService
//
// This file implements the upload gate: it validates a multipart media blob
// against its per-type size ceiling and stores it under a deterministic
// stable key. It returns the key, never a URL; later reads resolve keys to
// presigned URLs independently.
package services

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/hklets/go-rental-backend/internal/storage"
)

// UploadService writes validated media blobs to object storage.
type UploadService struct {
	// Storage is the blob backend.
	Storage storage.Storage

	// MaxImageBytes and MaxVideoBytes are the per-type size ceilings.
	MaxImageBytes int64
	MaxVideoBytes int64

	// Now is a clock seam for deterministic keys in tests; nil means
	// time.Now.
	Now func() time.Time
}

// UploadResult is the outcome of a successful upload: the stable key the
// caller should persist, and the sanitized filename echoed for display.
type UploadResult struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
}

// ImageCeiling returns the configured image size ceiling.
func (s *UploadService) ImageCeiling() int64 { return s.MaxImageBytes }

// VideoCeiling returns the configured video size ceiling.
func (s *UploadService) VideoCeiling() int64 { return s.MaxVideoBytes }

// UploadImage stores a property photo for userID. Size is the declared blob
// length; uploads above MaxImageBytes are rejected before any byte reaches
// storage.
func (s *UploadService) UploadImage(ctx context.Context, userID, filename string, size int64, body io.Reader) (*UploadResult, error) {
	return s.save(ctx, storage.CategoryPropertyImage, userID, filename, size, body, s.MaxImageBytes)
}

// UploadVideo stores a virtual tour video for userID, same contract as
// UploadImage with the video ceiling.
func (s *UploadService) UploadVideo(ctx context.Context, userID, filename string, size int64, body io.Reader) (*UploadResult, error) {
	return s.save(ctx, storage.CategoryVirtualTour, userID, filename, size, body, s.MaxVideoBytes)
}

func (s *UploadService) save(ctx context.Context, category, userID, filename string, size int64, body io.Reader, maxBytes int64) (*UploadResult, error) {
	if body == nil || size <= 0 {
		return nil, ErrNoFile
	}
	if maxBytes > 0 && size > maxBytes {
		return nil, &FileTooLargeError{MaxBytes: maxBytes}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	key := storage.BuildKey(category, userID, filename, now().UTC())

	// The declared size is untrusted. Buffer at most one byte past the
	// ceiling so an understated size is caught before anything is stored;
	// a truncated blob must never land in storage.
	data, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, &FileTooLargeError{MaxBytes: maxBytes}
	}

	if err := s.Storage.Save(ctx, key, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &UploadResult{Key: key, Filename: storage.SanitizeFilename(filename)}, nil
}
