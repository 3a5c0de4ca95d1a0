package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"connectly/internal/model"
)

const avatarJPEGQuality = 85

// ObjectStore is the object storage MediaService writes to.
// *storage.Bucket implements it.
type ObjectStore interface {
	URL(key string) string
	KeyFromURL(url string) (string, bool)
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
	Delete(ctx context.Context, key string) error
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

// MediaService decides what gets stored and under which key. Avatars are
// normalized server side; post media is uploaded by the client through a
// presigned URL.
type MediaService struct {
	store ObjectStore
}

func NewMediaService(store ObjectStore) *MediaService {
	return &MediaService{store: store}
}

// UploadAvatar checks size and type, crops to a square JPEG and stores it
// under a fresh key.
func (s *MediaService) UploadAvatar(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	data, _, err := readAndValidateImage(file, header, model.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpeg, err := resizeToJPEG(data, model.AvatarWidth, model.AvatarHeight, avatarJPEGQuality)
	if err != nil {
		return nil, err
	}

	key := model.AvatarFolder + "/" + uuid.NewString() + model.AvatarExt
	if err := s.store.Put(ctx, key, jpeg, model.ContentTypeJPEG, model.AvatarCacheControl); err != nil {
		return nil, err
	}
	return &model.UploadResult{URL: s.store.URL(key), Key: key}, nil
}

func (s *MediaService) PresignPostUpload(ctx context.Context, contentType string) (*model.PresignPostUploadResponse, error) {
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	key := model.PostMediaFolder + "/" + uuid.NewString() + model.ImageExtension(contentType)
	uploadURL, err := s.store.PresignPut(ctx, key, contentType, model.PresignExpirySec*time.Second)
	if err != nil {
		return nil, err
	}

	return &model.PresignPostUploadResponse{
		UploadURL:  uploadURL,
		PublicURL:  s.store.URL(key),
		Key:        key,
		ExpiresInS: model.PresignExpirySec,
	}, nil
}

func (s *MediaService) KeyFromURL(url string) (string, bool) {
	return s.store.KeyFromURL(url)
}

func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

// readAndValidateImage reads at most maxSize bytes and resolves the content
// type, sniffing it when the part did not declare one.
func readAndValidateImage(file io.Reader, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	contentType, _, _ = strings.Cut(contentType, ";")
	contentType = strings.TrimSpace(contentType)

	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidImageType
	}
	return data, contentType, nil
}

func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidImageType, err)
	}

	var buf bytes.Buffer
	thumb := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
