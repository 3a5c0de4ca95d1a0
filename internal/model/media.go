package model

import "errors"

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000"

	PostMediaFolder  = "posts"
	MaxPostMediaSize = 10 * 1024 * 1024
	PresignExpirySec = 900
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var imageExtensions = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

var (
	ErrFileTooLarge       = errors.New("file too large")
	ErrInvalidImageType   = errors.New("invalid image type")
	ErrMediaNotConfigured = errors.New("media storage is not configured")
)

// UploadResult is the location of an uploaded object.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignPostUploadRequest asks for a presigned URL to upload post media directly.
// The client PUTs bytes to UploadURL, then sends PublicURL as the post's media.
type PresignPostUploadRequest struct {
	ContentType string `json:"content_type" validate:"required"`
	FileSize    int64  `json:"file_size" validate:"omitempty,gte=0"`
}

type PresignPostUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expires_in"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := imageExtensions[contentType]
	return ok
}

// ImageExtension returns the file extension used for a supported content type.
func ImageExtension(contentType string) string {
	return imageExtensions[contentType]
}
